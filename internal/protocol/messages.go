package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tamween-app/tamween/internal/intent"
)

// MessageType identifies websocket payload variants on the fallback transport.
type MessageType string

const (
	TypeTextRequest    MessageType = "text_request"
	TypeImageRequest   MessageType = "image_request"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
}

type TextRequest struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Text      string      `json:"text"`
	Context   []string    `json:"context,omitempty"`
	Language  string      `json:"language,omitempty"`
}

type ImageRequest struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	ImageData string      `json:"imageData"`
	Text      string      `json:"text,omitempty"`
	Language  string      `json:"language,omitempty"`
}

type AssistantReply struct {
	Type          MessageType    `json:"type"`
	RequestID     string         `json:"request_id,omitempty"`
	Response      string         `json:"response"`
	Action        *intent.Action `json:"action"`
	Language      string         `json:"language"`
	Transcription string         `json:"transcription,omitempty"`
	Error         bool           `json:"error,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTextRequest:
		var msg TextRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid text_request: text is required")
		}
		return msg, nil
	case TypeImageRequest:
		var msg ImageRequest
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.ImageData) == "" {
			return nil, errors.New("invalid image_request: imageData is required")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
