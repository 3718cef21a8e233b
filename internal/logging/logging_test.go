package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty", "json"); err == nil {
		t.Fatalf("New() error = nil, want error for unknown level")
	}
}

func TestNewBuildsConsoleLogger(t *testing.T) {
	logger, err := New("debug", "console")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Fatalf("debug level should be enabled")
	}
}
