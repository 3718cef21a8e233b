package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/gemini"
	"github.com/tamween-app/tamween/internal/stt"
)

type sttSetup struct {
	transcriber      stt.Transcriber
	resolvedProvider string
	detail           string
}

// resolveTranscriber picks the speech-to-text backend for the audio fallback.
// gm may be nil when no Google key is configured. Auto mode with no key leaves
// the transcriber nil so audio requests fail instead of inventing speech; the
// mock is only used when asked for by name.
func resolveTranscriber(cfg config.Config, gm *gemini.Client, client *http.Client) (sttSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.STTProvider))
	if mode == "" {
		mode = "auto"
	}

	tryElevenLabs := func() (sttSetup, bool) {
		if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
			return sttSetup{}, false
		}
		p := stt.NewElevenLabsProvider(stt.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabsAPIKey,
			BaseURL:    cfg.ElevenLabsBaseURL,
			STTModelID: cfg.ElevenLabsSTTModel,
		}, client)
		return sttSetup{transcriber: p, resolvedProvider: "elevenlabs", detail: "elevenlabs " + cfg.ElevenLabsSTTModel}, true
	}
	tryGemini := func() (sttSetup, bool) {
		if gm == nil || strings.TrimSpace(cfg.GoogleAPIKey) == "" {
			return sttSetup{}, false
		}
		return sttSetup{transcriber: gm, resolvedProvider: "gemini", detail: "gemini " + cfg.GeminiTextModel}, true
	}
	switch mode {
	case "elevenlabs":
		if setup, ok := tryElevenLabs(); ok {
			return setup, nil
		}
		return sttSetup{}, fmt.Errorf("STT_PROVIDER=elevenlabs but ELEVENLABS_API_KEY is not set")
	case "gemini":
		if setup, ok := tryGemini(); ok {
			return setup, nil
		}
		return sttSetup{}, fmt.Errorf("STT_PROVIDER=gemini but GOOGLE_API_KEY is not set")
	case "mock":
		return sttSetup{transcriber: stt.NewMockProvider(), resolvedProvider: "mock", detail: "mock"}, nil
	case "auto":
		if setup, ok := tryElevenLabs(); ok {
			return setup, nil
		}
		if setup, ok := tryGemini(); ok {
			return setup, nil
		}
		return sttSetup{resolvedProvider: "none", detail: "none (set ELEVENLABS_API_KEY or GOOGLE_API_KEY)"}, nil
	default:
		return sttSetup{}, fmt.Errorf("invalid STT_PROVIDER: %q (expected auto|elevenlabs|gemini|mock)", cfg.STTProvider)
	}
}
