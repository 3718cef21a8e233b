// Command tamween-voice is a headless realtime client. It mints a session
// credential from the Tamween backend, opens a WebRTC session with the
// realtime endpoint and applies the actions it receives on the data channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/app"
	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/logging"
	"github.com/tamween-app/tamween/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.BuildVoiceClient(ctx, cfg, logger, observability.NewMetrics(cfg.MetricsNamespace))
	if err != nil {
		logger.Error("voice client init failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	defer client.Close()

	err = client.Run(ctx)
	switch {
	case err == nil:
		logger.Info("voice client stopped")
	case errors.Is(err, app.ErrConnectionLost):
		logger.Warn("realtime connection lost")
	default:
		logger.Error("voice client failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
