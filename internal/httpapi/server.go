package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/assistant"
	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/notes"
	"github.com/tamween-app/tamween/internal/observability"
)

// TokenMinter exchanges the server credential for a session credential.
type TokenMinter interface {
	Mint(ctx context.Context) (json.RawMessage, error)
}

// Assistant answers the stateless fallback requests.
type Assistant interface {
	Reply(ctx context.Context, in assistant.TextInput) assistant.Reply
	ReplyToAudio(ctx context.Context, in assistant.AudioInput) (assistant.Reply, error)
	DescribeImage(ctx context.Context, in assistant.ImageInput) (assistant.Reply, error)
}

type Deps struct {
	Broker    TokenMinter
	Assistant Assistant
	Notes     notes.Store
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

type Server struct {
	cfg       config.Config
	broker    TokenMinter
	assistant Assistant
	notes     notes.Store
	metrics   *observability.Metrics
	logger    *zap.Logger
	origins   map[string]struct{}
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		broker:    deps.Broker,
		assistant: deps.Assistant,
		notes:     deps.Notes,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		origins:   make(map[string]struct{}, len(cfg.CORSAllowedOrigins)),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, o := range cfg.CORSAllowedOrigins {
		s.origins[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkWSOrigin,
	}
	return s
}

// checkWSOrigin allows same-origin and allowlisted browsers. Non-browser
// clients usually omit Origin and are allowed.
func (s *Server) checkWSOrigin(r *http.Request) bool {
	if s.cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if _, ok := s.origins[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID, s.recoverer, s.accessLog, s.cors)

	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/gemini-token", s.handleToken)
	r.Post("/token", s.handleToken)

	r.Route("/gemini-realtime", func(r chi.Router) {
		r.Post("/text", s.handleText)
		r.Post("/audio", s.handleAudio)
		r.Post("/image", s.handleImage)
		r.Get("/ws", s.handleWS)
	})

	r.Get("/v1/perf/latency", s.handlePerfLatency)
	r.Get("/v1/notes", s.handleListNotes)
	r.Post("/v1/notes", s.handleAddNotes)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Tamween API is running",
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
