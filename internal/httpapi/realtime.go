package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/assistant"
)

type textRequest struct {
	Text     string   `json:"text"`
	Context  []string `json:"context"`
	Language string   `json:"language"`
}

type imageRequest struct {
	ImageData string `json:"imageData"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

// multipartOverhead covers form fields and boundaries around the audio part.
const multipartOverhead = 1 << 20

// handleText never answers with an error status. Malformed bodies, empty
// text and generation failures all come back as an apology with error=true.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.logger.Debug("text request rejected", zap.Error(err))
		req = textRequest{Language: req.Language}
	}
	reply := s.assistant.Reply(r.Context(), assistant.TextInput{
		Text:     req.Text,
		Context:  req.Context,
		Language: req.Language,
	})
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxAudioBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.MaxAudioBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, http.StatusRequestEntityTooLarge, "too_large", "audio file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "No audio file provided")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "No audio file provided")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read audio file")
		return
	}

	var history []string
	if raw := strings.TrimSpace(r.FormValue("context")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "context must be a JSON array of strings")
			return
		}
	}

	reply, err := s.assistant.ReplyToAudio(r.Context(), assistant.AudioInput{
		Data:     data,
		MIMEType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
		Context:  history,
		Language: r.FormValue("language"),
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, reply)
	case errors.Is(err, assistant.ErrNoAudio):
		respondError(w, http.StatusBadRequest, "invalid_request", "No audio file provided")
	case errors.Is(err, assistant.ErrEmptyTranscription):
		respondError(w, http.StatusBadRequest, "empty_transcription", "Could not transcribe audio")
	default:
		s.logger.Warn("audio request failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "transcription_failed", "Failed to process audio")
	}
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	// Base64 inflates by 4/3; leave room for the JSON envelope.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes*4/3+multipartOverhead)
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, http.StatusRequestEntityTooLarge, "too_large", "image too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	data, mimeType, err := assistant.DecodeImageData(req.ImageData)
	if err != nil {
		msg := "No image provided"
		if errors.Is(err, assistant.ErrInvalidImage) {
			msg = "Invalid image data"
		}
		respondError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	reply, err := s.assistant.DescribeImage(r.Context(), assistant.ImageInput{
		Data:     data,
		MIMEType: mimeType,
		Prompt:   req.Text,
		Language: req.Language,
	})
	if err != nil {
		s.logger.Warn("image request failed", zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "vision_failed", "Failed to analyze image")
		return
	}
	respondJSON(w, http.StatusOK, reply)
}
