package rtc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

var ErrMicrophoneDenied = errors.New("microphone access denied")

// Microphone is one acquired local audio track.
type Microphone interface {
	Track() webrtc.TrackLocal
	// Close releases the device. It is called from Session.Stop.
	Close() error
}

// AudioSource acquires the local microphone for a session.
type AudioSource interface {
	Acquire(ctx context.Context) (Microphone, error)
}

type AudioSourceFunc func(ctx context.Context) (Microphone, error)

func (f AudioSourceFunc) Acquire(ctx context.Context) (Microphone, error) { return f(ctx) }

// opusSilence is a single 20ms Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

const frameDuration = 20 * time.Millisecond

// SilenceSource produces an Opus track that only carries silence. The headless
// client uses it so the upstream sees a live outbound audio stream.
type SilenceSource struct{}

func (SilenceSource) Acquire(_ context.Context) (Microphone, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "tamween-mic",
	)
	if err != nil {
		return nil, err
	}
	m := &silenceMic{track: track, done: make(chan struct{})}
	m.wg.Add(1)
	go m.pump()
	return m, nil
}

type silenceMic struct {
	track *webrtc.TrackLocalStaticSample
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func (m *silenceMic) Track() webrtc.TrackLocal { return m.track }

func (m *silenceMic) pump() {
	defer m.wg.Done()
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			// Errors before the track is bound are expected and harmless.
			_ = m.track.WriteSample(media.Sample{Data: opusSilence, Duration: frameDuration})
		}
	}
}

func (m *silenceMic) Close() error {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
	return nil
}
