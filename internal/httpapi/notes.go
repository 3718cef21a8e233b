package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tamween-app/tamween/internal/notes"
)

type addNotesRequest struct {
	Items  []string `json:"items"`
	Source string   `json:"source"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "notes store not configured")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := s.notes.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "notes_failed", err.Error())
		return
	}
	if list == nil {
		list = []notes.Note{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"notes": list})
}

func (s *Server) handleAddNotes(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "notes store not configured")
		return
	}
	var req addNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = "api"
	}
	created, err := s.notes.Add(r.Context(), req.Items, req.Source)
	if err != nil {
		if errors.Is(err, notes.ErrEmptyItems) {
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "notes_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"notes": created})
}
