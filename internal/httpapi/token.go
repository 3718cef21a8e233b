package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/tokenbroker"
)

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		respondError(w, http.StatusInternalServerError, "missing_credential", "Missing credential")
		return
	}
	body, err := s.broker.Mint(r.Context())
	if err != nil {
		var upErr *tokenbroker.UpstreamError
		switch {
		case errors.Is(err, tokenbroker.ErrMissingCredential):
			respondError(w, http.StatusInternalServerError, "missing_credential", "Missing credential")
		case errors.As(err, &upErr):
			respondError(w, http.StatusInternalServerError, "upstream_error", upErr.Body)
		default:
			s.logger.Warn("token mint failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "upstream_error", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
