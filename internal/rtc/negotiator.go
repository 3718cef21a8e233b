// Package rtc negotiates one realtime audio session with the upstream model:
// a single non-trickle SDP offer/answer exchange authorized by a session credential.
package rtc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/protocol"
)

// DataChannelLabel is the label of the single structured-message channel.
const DataChannelLabel = "actions"

// TokenError is a broker response that did not yield a credential.
type TokenError struct {
	Status  int
	Message string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token broker error (status %d): %s", e.Status, e.Message)
}

// SDPExchangeError is a non-2xx answer from the upstream SDP endpoint.
type SDPExchangeError struct {
	Status int
	Body   string
}

func (e *SDPExchangeError) Error() string {
	return fmt.Sprintf("sdp exchange status %d: %s", e.Status, e.Body)
}

func (e *SDPExchangeError) HTTPStatus() int { return e.Status }

type Config struct {
	// STUNURL is the only ICE server. Empty means host candidates only.
	STUNURL    string
	HTTPClient *http.Client
	// API overrides the pion API, mostly to tune the setting engine.
	API     *webrtc.API
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

type Options struct {
	TokenURL     string
	SDPURL       string
	LanguageHint string
	Source       AudioSource
	// OnTrackAudio receives the first remote track only.
	OnTrackAudio func(track *webrtc.TrackRemote)
	// OnData receives every inbound data channel frame, parsed or raw.
	OnData func(msg protocol.ChannelMessage)
	// OnConnectionState observes transport state. Nothing reconnects on failure.
	OnConnectionState func(state webrtc.PeerConnectionState)
}

// Negotiator owns the session state machine.
type Negotiator struct {
	cfg    Config
	client *http.Client
	api    *webrtc.API
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	current *Session
}

func NewNegotiator(cfg Config) *Negotiator {
	n := &Negotiator{cfg: cfg, client: cfg.HTTPClient, api: cfg.API, logger: cfg.Logger}
	if n.client == nil {
		n.client = &http.Client{Timeout: 30 * time.Second}
	}
	if n.api == nil {
		n.api = webrtc.NewAPI()
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Negotiator) transition(op string, from, to State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != from {
		return &StateError{Op: op, Current: n.state}
	}
	n.state = to
	return nil
}

func (n *Negotiator) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// Connect runs the full negotiation. It is rejected unless the negotiator is idle,
// and a failure leaves it idle again with every acquired resource released.
func (n *Negotiator) Connect(ctx context.Context, opts Options) (*Session, error) {
	if err := n.transition("connect", StateIdle, StateConnecting); err != nil {
		return nil, err
	}
	s, err := n.connect(ctx, opts)
	if err != nil {
		n.setState(StateIdle)
		n.cfg.Metrics.RTCEvent("connect_failed")
		n.logger.Warn("realtime connect failed", zap.Error(err))
		return nil, err
	}

	n.mu.Lock()
	n.state = StateActive
	n.current = s
	n.mu.Unlock()
	n.cfg.Metrics.RTCEvent("connected")
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.ActiveRTCSessions.Inc()
	}
	n.logger.Info("realtime session active", zap.String("session_id", s.id))
	return s, nil
}

func (n *Negotiator) connect(ctx context.Context, opts Options) (_ *Session, err error) {
	if strings.TrimSpace(opts.SDPURL) == "" {
		return nil, errors.New("sdp url is required")
	}
	source := opts.Source
	if source == nil {
		source = SilenceSource{}
	}

	cred, err := n.fetchCredential(ctx, opts.TokenURL)
	if err != nil {
		return nil, err
	}

	pcConfig := webrtc.Configuration{}
	if stun := strings.TrimSpace(n.cfg.STUNURL); stun != "" {
		pcConfig.ICEServers = []webrtc.ICEServer{{URLs: []string{stun}}}
	}
	pc, err := n.api.NewPeerConnection(pcConfig)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	s := &Session{id: uuid.NewString(), negotiator: n, pc: pc}
	defer func() {
		if err != nil {
			_ = s.release()
		}
	}()

	var firstTrack sync.Once
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		firstTrack.Do(func() {
			n.logger.Info("remote audio track", zap.String("session_id", s.id), zap.String("codec", track.Codec().MimeType))
			if opts.OnTrackAudio != nil {
				opts.OnTrackAudio(track)
			}
		})
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		n.logger.Info("peer connection state", zap.String("session_id", s.id), zap.String("state", state.String()))
		n.cfg.Metrics.RTCEvent("pc_" + state.String())
		if opts.OnConnectionState != nil {
			opts.OnConnectionState(state)
		}
	})

	s.dc, err = pc.CreateDataChannel(DataChannelLabel, nil)
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	if opts.OnData != nil {
		s.dc.OnMessage(messageHandler(opts.OnData))
	}

	s.mic, err = source.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire microphone: %w", err)
	}
	if _, err = pc.AddTrack(s.mic.Track()); err != nil {
		return nil, fmt.Errorf("add microphone track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, fmt.Errorf("ice gathering: %w", ctx.Err())
	}

	bearer, err := cred.Bearer()
	if err != nil {
		return nil, err
	}
	answer, err := n.exchangeSDP(ctx, opts.SDPURL, opts.LanguageHint, bearer, pc.LocalDescription().SDP)
	if err != nil {
		return nil, err
	}
	if err = pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	return s, nil
}

func messageHandler(onData func(protocol.ChannelMessage)) func(webrtc.DataChannelMessage) {
	return func(msg webrtc.DataChannelMessage) {
		onData(protocol.ParseChannelMessage(msg.Data))
	}
}

func (n *Negotiator) fetchCredential(ctx context.Context, tokenURL string) (*Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	res, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	var errPayload struct {
		Error json.RawMessage `json:"error"`
	}
	_ = json.Unmarshal(body, &errPayload)
	if present(errPayload.Error) || res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		var text string
		if json.Unmarshal(errPayload.Error, &text) == nil && text != "" {
			msg = text
		}
		return nil, &TokenError{Status: res.StatusCode, Message: msg}
	}
	return ParseCredential(body)
}

func (n *Negotiator) exchangeSDP(ctx context.Context, sdpURL, languageHint, bearer, offer string) (string, error) {
	u, err := url.Parse(sdpURL)
	if err != nil {
		return "", fmt.Errorf("parse sdp url: %w", err)
	}
	if hint := strings.TrimSpace(languageHint); hint != "" {
		q := u.Query()
		q.Set("language", hint)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewBufferString(offer))
	if err != nil {
		return "", fmt.Errorf("create sdp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/sdp")

	started := time.Now()
	res, err := n.client.Do(req)
	n.cfg.Metrics.ObserveUpstream("sdp_exchange", time.Since(started))
	if err != nil {
		return "", fmt.Errorf("send sdp offer: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 256<<10))
	if err != nil {
		return "", fmt.Errorf("read sdp answer: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		n.cfg.Metrics.UpstreamError("realtime", fmt.Sprintf("sdp_%d", res.StatusCode))
		return "", &SDPExchangeError{Status: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return string(body), nil
}

// Stop ends the active session.
func (n *Negotiator) Stop() error {
	n.mu.Lock()
	s := n.current
	n.mu.Unlock()
	if s == nil {
		return &StateError{Op: "stop", Current: n.State()}
	}
	return s.Stop()
}

func (n *Negotiator) stop(s *Session) error {
	n.mu.Lock()
	if n.state != StateActive || n.current != s {
		cur := n.state
		n.mu.Unlock()
		return &StateError{Op: "stop", Current: cur}
	}
	n.state = StateStopping
	n.mu.Unlock()

	err := s.release()

	n.mu.Lock()
	n.state = StateIdle
	n.current = nil
	n.mu.Unlock()
	n.cfg.Metrics.RTCEvent("stopped")
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.ActiveRTCSessions.Dec()
	}
	n.logger.Info("realtime session stopped", zap.String("session_id", s.id))
	return err
}

// Session is the live transport handle.
type Session struct {
	id         string
	negotiator *Negotiator
	pc         *webrtc.PeerConnection
	dc         *webrtc.DataChannel
	mic        Microphone
}

func (s *Session) ID() string                              { return s.id }
func (s *Session) PeerConnection() *webrtc.PeerConnection { return s.pc }
func (s *Session) DataChannel() *webrtc.DataChannel       { return s.dc }

// Stop halts every sender, releases the microphone and closes the peer
// connection. It is the only cleanup path.
func (s *Session) Stop() error {
	return s.negotiator.stop(s)
}

func (s *Session) release() error {
	var errs []error
	if s.pc != nil {
		for _, sender := range s.pc.GetSenders() {
			if err := sender.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop sender: %w", err))
			}
		}
	}
	if s.mic != nil {
		if err := s.mic.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release microphone: %w", err))
		}
	}
	if s.pc != nil {
		if err := s.pc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close peer connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
