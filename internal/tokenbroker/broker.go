package tokenbroker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/observability"
)

var ErrMissingCredential = errors.New("missing credential")

// UpstreamError is a non-2xx answer from the mint endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("token mint status %d", e.Status)
	}
	return e.Body
}

func (e *UpstreamError) HTTPStatus() int { return e.Status }

// Config controls the broker. APIKey never leaves the server.
type Config struct {
	APIKey string
	URL    string
	// SessionTTL bounds how long the minted credential may be used to open a session.
	SessionTTL time.Duration
	// ExpireTTL bounds the lifetime of an opened session.
	ExpireTTL time.Duration
}

// Broker exchanges the long-lived API key for a single-use session credential.
type Broker struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func New(cfg Config, client *http.Client, logger *zap.Logger, metrics *observability.Metrics) *Broker {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Minute
	}
	if cfg.ExpireTTL <= 0 {
		cfg.ExpireTTL = 30 * time.Minute
	}
	return &Broker{cfg: cfg, client: client, logger: logger, metrics: metrics, now: time.Now}
}

type mintRequest struct {
	Uses                 int    `json:"uses"`
	ExpireTime           string `json:"expireTime"`
	NewSessionExpireTime string `json:"newSessionExpireTime"`
}

// Mint performs exactly one upstream call and returns its body verbatim.
// Nothing is cached, so every call yields a fresh credential.
func (b *Broker) Mint(ctx context.Context) (json.RawMessage, error) {
	key := strings.TrimSpace(b.cfg.APIKey)
	if key == "" {
		b.metrics.Mint("missing_credential")
		return nil, ErrMissingCredential
	}

	now := b.now().UTC()
	payload, err := json.Marshal(mintRequest{
		Uses:                 1,
		ExpireTime:           now.Add(b.cfg.ExpireTTL).Format(time.RFC3339),
		NewSessionExpireTime: now.Add(b.cfg.SessionTTL).Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal mint request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	started := time.Now()
	res, err := b.client.Do(req)
	b.metrics.ObserveUpstream("token_mint", time.Since(started))
	if err != nil {
		b.metrics.Mint("transport_error")
		b.metrics.UpstreamError("gemini", "token_transport")
		return nil, fmt.Errorf("send mint request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		b.metrics.Mint("transport_error")
		return nil, fmt.Errorf("read mint response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b.metrics.Mint("upstream_error")
		b.metrics.UpstreamError("gemini", fmt.Sprintf("token_%d", res.StatusCode))
		b.logger.Warn("token mint rejected upstream", zap.Int("status", res.StatusCode))
		return nil, &UpstreamError{Status: res.StatusCode, Body: string(body)}
	}

	b.metrics.Mint("ok")
	return json.RawMessage(body), nil
}
