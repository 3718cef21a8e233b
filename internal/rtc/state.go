package rtc

import (
	"errors"
	"fmt"
)

// State is the negotiator lifecycle. Only one session can be live at a time.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var ErrInvalidState = errors.New("operation not allowed in current session state")

// StateError reports a rejected transition.
type StateError struct {
	Op      string
	Current State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s rejected while %s", e.Op, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
