package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/assistant"
	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/gemini"
	"github.com/tamween-app/tamween/internal/httpapi"
	"github.com/tamween-app/tamween/internal/notes"
	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/tokenbroker"
)

type STTInfo struct {
	Provider string
	Detail   string
}

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Metrics *observability.Metrics
	STT     STTInfo

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	return build(ctx, cfg, logger, observability.NewMetrics(cfg.MetricsNamespace))
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GoogleAPIKey == "" {
		logger.Warn("GOOGLE_API_KEY is not set; token minting and generation will fail")
	}

	httpClient := &http.Client{Timeout: cfg.GeminiTimeout}

	broker := tokenbroker.New(tokenbroker.Config{
		APIKey: cfg.GoogleAPIKey,
		URL:    cfg.GeminiTokenURL,
	}, httpClient, logger.Named("tokenbroker"), metrics)

	gm, err := gemini.New(ctx, gemini.Config{
		APIKey:             cfg.GoogleAPIKey,
		BaseURL:            cfg.GeminiBaseURL,
		TextModel:          cfg.GeminiTextModel,
		VisionModel:        cfg.GeminiVisionModel,
		Timeout:            cfg.GeminiTimeout,
		BreakerFailures:    cfg.GeminiBreakerFailures,
		BreakerOpenTimeout: cfg.GeminiBreakerOpenTimeout,
	}, httpClient, logger.Named("gemini"), metrics)
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}

	sttSetup, err := resolveTranscriber(cfg, gm, httpClient)
	if err != nil {
		return nil, err
	}
	cfg.STTProvider = sttSetup.resolvedProvider
	if sttSetup.transcriber == nil {
		logger.Warn("no speech-to-text provider configured; audio requests will fail", zap.String("detail", sttSetup.detail))
	}

	store, err := notes.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("notes store init failed: %w", err)
	}

	svc := assistant.NewService(assistant.Options{
		Text:        gm,
		Vision:      gm,
		Transcriber: sttSetup.transcriber,
		Logger:      logger.Named("assistant"),
		Metrics:     metrics,
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Broker:    broker,
		Assistant: svc,
		Notes:     store,
		Metrics:   metrics,
		Logger:    logger.Named("http"),
	})

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Metrics: metrics,
		STT: STTInfo{
			Provider: sttSetup.resolvedProvider,
			Detail:   sttSetup.detail,
		},
		Cleanup: store.Close,
	}, nil
}
