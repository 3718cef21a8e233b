package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/dispatch"
	"github.com/tamween-app/tamween/internal/intent"
	"github.com/tamween-app/tamween/internal/notes"
	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/protocol"
	"github.com/tamween-app/tamween/internal/rtc"
)

// ErrConnectionLost is returned by Run when the peer connection fails or closes
// on its own. The client does not reconnect.
var ErrConnectionLost = errors.New("realtime connection lost")

// VoiceClient is the headless realtime client: it negotiates one session and
// routes data channel actions into the notes store and navigation log.
type VoiceClient struct {
	cfg        config.Config
	negotiator *rtc.Negotiator
	dispatcher *dispatch.Dispatcher
	notes      notes.Store
	source     rtc.AudioSource
	logger     *zap.Logger
	metrics    *observability.Metrics

	// Navigate receives the route for open_* actions.
	Navigate func(route string)
}

func BuildVoiceClient(ctx context.Context, cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) (*VoiceClient, error) {
	if strings.TrimSpace(cfg.RTCSDPURL) == "" {
		return nil, fmt.Errorf("RTC_SDP_URL is required")
	}
	if strings.TrimSpace(cfg.RTCTokenURL) == "" {
		return nil, fmt.Errorf("RTC_TOKEN_URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := notes.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("notes store init failed: %w", err)
	}

	c := &VoiceClient{
		cfg:     cfg,
		notes:   store,
		source:  rtc.SilenceSource{},
		logger:  logger,
		metrics: metrics,
	}
	c.Navigate = func(route string) {
		c.logger.Info("navigate", zap.String("route", route))
	}
	c.negotiator = rtc.NewNegotiator(rtc.Config{
		STUNURL:    cfg.RTCSTUNURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger.Named("rtc"),
		Metrics:    metrics,
	})
	c.dispatcher = dispatch.New(dispatch.Callbacks{
		AddNotes:      c.addNotes,
		OpenBills:     func() { c.Navigate(intent.RouteBills) },
		OpenBankDeals: func() { c.Navigate(intent.RouteDeals) },
		OpenHospital:  func() { c.Navigate(intent.RouteHealth) },
	}, logger.Named("dispatch"), metrics)
	return c, nil
}

func (c *VoiceClient) addNotes(items []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	created, err := c.notes.Add(ctx, items, "voice")
	if err != nil {
		c.logger.Warn("add notes failed", zap.Strings("items", items), zap.Error(err))
		return
	}
	c.logger.Info("notes added", zap.Int("count", len(created)))
}

// Run opens one session and blocks until ctx is done or the connection drops.
// The session is always stopped before Run returns.
func (c *VoiceClient) Run(ctx context.Context) error {
	lost := make(chan struct{}, 1)
	sess, err := c.negotiator.Connect(ctx, rtc.Options{
		TokenURL:     c.cfg.RTCTokenURL,
		SDPURL:       c.cfg.RTCSDPURL,
		LanguageHint: c.cfg.RTCLanguageHint,
		Source:       c.source,
		OnTrackAudio: c.drainTrack,
		OnData: func(msg protocol.ChannelMessage) {
			c.dispatcher.Dispatch(msg)
		},
		OnConnectionState: func(state webrtc.PeerConnectionState) {
			c.logger.Info("connection state", zap.String("state", state.String()))
			if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
				select {
				case lost <- struct{}{}:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	c.logger.Info("realtime session active", zap.String("session_id", sess.ID()))

	var runErr error
	select {
	case <-ctx.Done():
	case <-lost:
		runErr = ErrConnectionLost
	}
	if err := sess.Stop(); err != nil && !errors.Is(err, rtc.ErrInvalidState) {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// drainTrack reads the remote audio so the receive pipeline keeps flowing.
// Playback is out of scope for the headless client.
func (c *VoiceClient) drainTrack(track *webrtc.TrackRemote) {
	c.logger.Info("remote audio track",
		zap.String("codec", track.Codec().MimeType),
		zap.String("track_id", track.ID()),
	)
	go func() {
		for {
			if _, _, err := track.ReadRTP(); err != nil {
				return
			}
		}
	}()
}

func (c *VoiceClient) Close() error {
	return c.notes.Close()
}
