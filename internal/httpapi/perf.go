package httpapi

import (
	"net/http"

	"github.com/tamween-app/tamween/internal/observability"
)

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		var empty *observability.LatencyWindow
		respondJSON(w, http.StatusOK, empty.Snapshot())
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.Latency.Snapshot())
}
