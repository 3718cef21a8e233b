package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	STTModelID string
}

// ElevenLabsProvider calls the batch speech-to-text REST endpoint.
type ElevenLabsProvider struct {
	cfg    ElevenLabsConfig
	client *http.Client
}

func NewElevenLabsProvider(cfg ElevenLabsConfig, client *http.Client) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.STTModelID) == "" {
		cfg.STTModelID = "scribe_v1"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ElevenLabsProvider{cfg: cfg, client: client}
}

type elevenTranscript struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

func (p *ElevenLabsProvider) Transcribe(ctx context.Context, clip Clip) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", p.cfg.STTModelID); err != nil {
		return "", err
	}
	if lang := languageCode(clip.Language); lang != "" {
		if err := mw.WriteField("language_code", lang); err != nil {
			return "", err
		}
	}
	name := clip.Filename
	if name == "" {
		name = "audio"
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(clip.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("create stt request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", p.cfg.APIKey)

	res, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send stt request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &StatusError{Provider: "elevenlabs", Status: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out elevenTranscript
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return out.Text, nil
}

// languageCode reduces a tag like "ar-BH" to its primary subtag.
func languageCode(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return tag
}
