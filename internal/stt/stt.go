package stt

import (
	"context"
	"fmt"
)

// Clip is one buffered audio upload.
type Clip struct {
	Data     []byte
	MIMEType string
	Filename string
	// Language is a BCP-47 hint, empty when unknown.
	Language string
}

// Transcriber turns a whole clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// StatusError is a non-2xx answer from a transcription provider.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s stt status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *StatusError) HTTPStatus() int { return e.Status }
