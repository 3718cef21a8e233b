package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/assistant"
	"github.com/tamween-app/tamween/internal/protocol"
)

const (
	wsReadLimit    = 16 << 20
	wsIdleTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleWS carries the text and image fallback over one socket. Every request
// is answered independently; nothing is kept between messages.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.logger.Debug("ws connected", zap.String("request_id", requestIDFrom(r.Context())))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					// Unblocks ReadMessage in the handler loop.
					_ = conn.Close()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.observeWS("outbound", t)
				}
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			// Echo request_id when the envelope decodes so the client can correlate.
			var env protocol.Envelope
			_ = json.Unmarshal(data, &env)
			s.enqueue(ctx, outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				RequestID: env.RequestID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.observeWS("inbound", t)
		}
		if !s.enqueue(ctx, outbound, s.answerWS(ctx, parsed)) {
			break
		}
	}

	cancel()
	<-writerDone
	s.logger.Debug("ws disconnected", zap.String("request_id", requestIDFrom(r.Context())))
}

func (s *Server) enqueue(ctx context.Context, outbound chan<- any, msg any) bool {
	select {
	case <-ctx.Done():
		return false
	case outbound <- msg:
		return true
	}
}

func (s *Server) answerWS(ctx context.Context, msg any) any {
	switch m := msg.(type) {
	case protocol.TextRequest:
		reply := s.assistant.Reply(ctx, assistant.TextInput{Text: m.Text, Context: m.Context, Language: m.Language})
		return assistantReply(m.RequestID, reply)
	case protocol.ImageRequest:
		data, mimeType, err := assistant.DecodeImageData(m.ImageData)
		if err != nil {
			return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, RequestID: m.RequestID, Code: "invalid_image", Detail: err.Error()}
		}
		reply, err := s.assistant.DescribeImage(ctx, assistant.ImageInput{
			Data: data, MIMEType: mimeType, Prompt: m.Text, Language: m.Language,
		})
		if err != nil {
			s.logger.Warn("ws image request failed", zap.Error(err))
			code := "vision_failed"
			if errors.Is(err, context.Canceled) {
				code = "canceled"
			}
			return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, RequestID: m.RequestID, Code: code, Detail: "Failed to analyze image"}
		}
		return assistantReply(m.RequestID, reply)
	default:
		return protocol.ErrorEvent{Type: protocol.TypeErrorEvent, Code: "unsupported", Detail: protocol.ErrUnsupportedType.Error()}
	}
}

func assistantReply(requestID string, r assistant.Reply) protocol.AssistantReply {
	return protocol.AssistantReply{
		Type:          protocol.TypeAssistantReply,
		RequestID:     requestID,
		Response:      r.Response,
		Action:        r.Action,
		Language:      r.Language,
		Transcription: r.Transcription,
		Error:         r.Error,
	}
}

func (s *Server) observeWS(direction string, t protocol.MessageType) {
	if s.metrics == nil {
		return
	}
	s.metrics.WSMessages.WithLabelValues(direction, strings.ToLower(string(t))).Inc()
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.TextRequest:
		return m.Type, true
	case protocol.ImageRequest:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
