package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/reliability"
	"github.com/tamween-app/tamween/internal/stt"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	ErrEmptyReply    = errors.New("gemini returned an empty reply")
	// ErrUnavailable is returned while the breaker is open.
	ErrUnavailable = errors.New("gemini temporarily unavailable")
)

// APIError is a non-2xx answer from the generateContent endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
}

func (e *APIError) HTTPStatus() int { return e.Status }

type Config struct {
	APIKey             string
	BaseURL            string
	TextModel          string
	VisionModel        string
	Timeout            time.Duration
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
}

// Client wraps the genai SDK with per-call timeouts and a shared circuit breaker.
// A Client built without an API key fails every call with ErrMissingAPIKey.
type Client struct {
	cfg     Config
	models  *genai.Models
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *observability.Metrics
}

func New(ctx context.Context, cfg Config, httpClient *http.Client, logger *zap.Logger, metrics *observability.Metrics) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.TextModel) == "" {
		cfg.TextModel = "gemini-2.0-flash"
	}
	if strings.TrimSpace(cfg.VisionModel) == "" {
		cfg.VisionModel = cfg.TextModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}

	c := &Client{cfg: cfg, logger: logger, metrics: metrics}
	failures := uint32(cfg.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return !reliability.CountsAsFailure(err)
		},
	})

	if strings.TrimSpace(cfg.APIKey) == "" {
		return c, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// TextRequest is one stateless generation call.
type TextRequest struct {
	System  string
	Context []string
	Text    string
}

// ImageRequest carries one inline image and an optional prompt.
type ImageRequest struct {
	System   string
	Data     []byte
	MIMEType string
	Prompt   string
}

func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Context)+1)
	for _, entry := range req.Context {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(entry, genai.RoleUser))
	}
	contents = append(contents, genai.NewContentFromText(req.Text, genai.RoleUser))
	return c.generate(ctx, "gemini_text", c.cfg.TextModel, req.System, contents)
}

func (c *Client) DescribeImage(ctx context.Context, req ImageRequest) (string, error) {
	parts := []*genai.Part{genai.NewPartFromBytes(req.Data, req.MIMEType)}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		parts = append(parts, genai.NewPartFromText(prompt))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, "gemini_vision", c.cfg.VisionModel, req.System, contents)
}

const transcribePrompt = "Transcribe this audio exactly as spoken. Reply with the transcription only, or nothing if there is no speech."

// Transcribe lets the client act as a speech-to-text provider.
func (c *Client) Transcribe(ctx context.Context, clip stt.Clip) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(clip.Data, clip.MIMEType),
		genai.NewPartFromText(transcribePrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	text, err := c.generate(ctx, "gemini_stt", c.cfg.TextModel, "", contents)
	if errors.Is(err, ErrEmptyReply) {
		return "", nil
	}
	return text, err
}

func (c *Client) generate(ctx context.Context, op, model, system string, contents []*genai.Content) (string, error) {
	if c.models == nil {
		return "", ErrMissingAPIKey
	}
	var cfg *genai.GenerateContentConfig
	if strings.TrimSpace(system) != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}

	started := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		resp, err := c.models.GenerateContent(callCtx, model, contents, cfg)
		if err != nil {
			return nil, normalizeError(err)
		}
		return resp.Text(), nil
	})
	c.metrics.ObserveUpstream(op, time.Since(started))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.UpstreamError("gemini", "breaker_open")
			return "", ErrUnavailable
		}
		c.metrics.UpstreamError("gemini", errorCode(err))
		c.logger.Warn("gemini call failed", zap.String("operation", op), zap.Error(err))
		return "", err
	}

	text := strings.TrimSpace(out.(string))
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func normalizeError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Status: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

func errorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status_%d", apiErr.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "transport"
}
