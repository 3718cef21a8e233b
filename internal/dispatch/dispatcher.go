package dispatch

import (
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/protocol"
)

// Outcome reports what Dispatch did with a data channel message.
type Outcome string

const (
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeRaw means the frame was not JSON.
	OutcomeRaw Outcome = "raw"
	// OutcomeUnrecognized means the frame was JSON but not a known action.
	OutcomeUnrecognized Outcome = "unrecognized"
)

// Callbacks are invoked for the four known action names. Nil callbacks are skipped.
type Callbacks struct {
	AddNotes      func(items []string)
	OpenBills     func()
	OpenBankDeals func()
	OpenHospital  func()
}

type Dispatcher struct {
	callbacks Callbacks
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func New(callbacks Callbacks, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{callbacks: callbacks, logger: logger, metrics: metrics}
}

// Dispatch fires at most one callback. Unknown messages are ignored, never errors.
func (d *Dispatcher) Dispatch(msg protocol.ChannelMessage) Outcome {
	switch m := msg.(type) {
	case protocol.RawMessage:
		d.logger.Debug("data channel raw message ignored", zap.Int("bytes", len(m.Text)))
		d.metrics.Action("", string(OutcomeRaw))
		return OutcomeRaw
	case protocol.ParsedMessage:
		action, ok := m.Action()
		if !ok {
			d.logger.Debug("data channel message ignored", zap.String("type", m.Type))
			d.metrics.Action("", string(OutcomeUnrecognized))
			return OutcomeUnrecognized
		}
		return d.dispatchAction(action)
	default:
		d.metrics.Action("", string(OutcomeUnrecognized))
		return OutcomeUnrecognized
	}
}

func (d *Dispatcher) dispatchAction(action protocol.ActionMessage) Outcome {
	var fire func()
	switch action.Name {
	case protocol.ActionAddNotes:
		if cb := d.callbacks.AddNotes; cb != nil {
			items := action.NotesItems()
			fire = func() { cb(items) }
		}
	case protocol.ActionOpenBills:
		fire = d.callbacks.OpenBills
	case protocol.ActionOpenBankDeals:
		fire = d.callbacks.OpenBankDeals
	case protocol.ActionOpenHospital:
		fire = d.callbacks.OpenHospital
	default:
		d.logger.Info("unknown action ignored", zap.String("name", string(action.Name)))
		d.metrics.Action("unknown", string(OutcomeUnrecognized))
		return OutcomeUnrecognized
	}

	if fire != nil {
		fire()
	}
	d.logger.Info("action dispatched", zap.String("name", string(action.Name)))
	d.metrics.Action(string(action.Name), string(OutcomeDispatched))
	return OutcomeDispatched
}
