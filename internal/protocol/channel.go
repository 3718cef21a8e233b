package protocol

import (
	"bytes"
	"encoding/json"
)

// ActionName is one of the fixed actions the realtime model can request.
type ActionName string

const (
	ActionAddNotes      ActionName = "add_notes"
	ActionOpenBills     ActionName = "open_bills"
	ActionOpenBankDeals ActionName = "open_bank_deals"
	ActionOpenHospital  ActionName = "open_hospital"
)

const TypeAction = "action"

// ActionMessage is an app-level instruction received on the data channel.
type ActionMessage struct {
	Type    string          `json:"type"`
	Name    ActionName      `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type notesPayload struct {
	Items []string `json:"items"`
}

// NotesItems returns payload.items, or nil when the payload has another shape.
func (m ActionMessage) NotesItems() []string {
	if len(m.Payload) == 0 {
		return nil
	}
	var p notesPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil
	}
	return p.Items
}

// ChannelMessage is either a ParsedMessage or a RawMessage.
type ChannelMessage interface {
	channelMessage()
}

// ParsedMessage is a data channel frame that was valid JSON.
type ParsedMessage struct {
	Data json.RawMessage
	// Type is the top-level "type" field when Data is an object that has one.
	Type string
}

// RawMessage is a data channel frame that was not JSON.
type RawMessage struct {
	Text string
}

func (ParsedMessage) channelMessage() {}
func (RawMessage) channelMessage()    {}

// ParseChannelMessage classifies a frame without ever failing.
func ParseChannelMessage(data []byte) ChannelMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return RawMessage{Text: string(data)}
	}
	var env struct {
		Type string `json:"type"`
	}
	// Non-object JSON (arrays, scalars) simply has no type.
	_ = json.Unmarshal(trimmed, &env)
	return ParsedMessage{Data: append(json.RawMessage(nil), trimmed...), Type: env.Type}
}

// Action decodes the message as an ActionMessage when its type is "action".
func (m ParsedMessage) Action() (ActionMessage, bool) {
	if m.Type != TypeAction {
		return ActionMessage{}, false
	}
	var a ActionMessage
	if err := json.Unmarshal(m.Data, &a); err != nil {
		return ActionMessage{}, false
	}
	return a, true
}
