package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type generateBody struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MIMEType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func replyJSON(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
		}},
	})
	return string(raw)
}

func newTestClient(t *testing.T, srv *httptest.Server, failures int) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		APIKey:             "test-key",
		BaseURL:            srv.URL + "/",
		TextModel:          "text-model",
		VisionModel:        "vision-model",
		Timeout:            5 * time.Second,
		BreakerFailures:    failures,
		BreakerOpenTimeout: time.Minute,
	}, srv.Client(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestGenerateTextSendsSystemContextAndText(t *testing.T) {
	var got generateBody
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(replyJSON("  Opening your bills.  ")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 5)
	text, err := c.GenerateText(context.Background(), TextRequest{
		System:  "you are tamween",
		Context: []string{"hi", "", "show me bills"},
		Text:    "open bills",
	})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if text != "Opening your bills." {
		t.Fatalf("text = %q", text)
	}
	if !strings.HasSuffix(gotPath, "models/text-model:generateContent") {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("x-goog-api-key = %q", gotKey)
	}
	if len(got.Contents) != 3 || got.Contents[2].Parts[0].Text != "open bills" {
		t.Fatalf("contents = %+v", got.Contents)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "you are tamween" {
		t.Fatalf("systemInstruction = %+v", got.SystemInstruction)
	}
}

func TestDescribeImageSendsInlineData(t *testing.T) {
	var got generateBody
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(replyJSON("An EWA bill for 12 BHD.")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 5)
	text, err := c.DescribeImage(context.Background(), ImageRequest{Data: []byte("png"), MIMEType: "image/png", Prompt: "what is this?"})
	if err != nil {
		t.Fatalf("DescribeImage() error = %v", err)
	}
	if text != "An EWA bill for 12 BHD." {
		t.Fatalf("text = %q", text)
	}
	if !strings.HasSuffix(gotPath, "models/vision-model:generateContent") {
		t.Fatalf("path = %q", gotPath)
	}
	parts := got.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" || parts[1].Text != "what is this?" {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestGenerateEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(replyJSON("   ")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 5)
	if _, err := c.GenerateText(context.Background(), TextRequest{Text: "hi"}); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("GenerateText() error = %v, want ErrEmptyReply", err)
	}
	text, err := c.Transcribe(context.Background(), clipOf("audio/wav"))
	if err != nil || text != "" {
		t.Fatalf("Transcribe() = %q, %v, want empty transcription", text, err)
	}
}

func TestBreakerOpensOnUpstreamFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 2)
	for i := 0; i < 2; i++ {
		_, err := c.GenerateText(context.Background(), TextRequest{Text: "hi"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.HTTPStatus() != http.StatusServiceUnavailable {
			t.Fatalf("call %d error = %v, want 503 APIError", i, err)
		}
	}
	if _, err := c.GenerateText(context.Background(), TextRequest{Text: "hi"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}
}

func TestBadRequestDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad image","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, 1)
	for i := 0; i < 3; i++ {
		if _, err := c.DescribeImage(context.Background(), ImageRequest{Data: []byte("x"), MIMEType: "image/png"}); errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d tripped the breaker", i)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("upstream calls = %d, want 3", got)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c, err := New(context.Background(), Config{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.GenerateText(context.Background(), TextRequest{Text: "hi"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
}
