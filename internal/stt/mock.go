package stt

import (
	"context"
	"strings"
)

// MockProvider is a local fallback used when no transcription provider is configured.
type MockProvider struct {
	Text string
}

func NewMockProvider() *MockProvider { return &MockProvider{Text: "simulated voice input"} }

func (p *MockProvider) Transcribe(_ context.Context, clip Clip) (string, error) {
	if len(clip.Data) == 0 {
		return "", nil
	}
	return strings.TrimSpace(p.Text), nil
}
