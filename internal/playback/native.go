package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/audio"
	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// AudioFetcher downloads a direct audio link.
type AudioFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadSeekCloser, error)
}

// NativeBackend plays direct mp3 links on the local audio device.
type NativeBackend struct {
	fetcher    AudioFetcher
	sampleRate beep.SampleRate
	poll       time.Duration
	initOutput func(beep.SampleRate) error
	open       func(io.ReadCloser, audio.Options) (*audio.Player, error)
	log        *logrus.Entry
}

func NewNativeBackend(cfg *config.Config, fetcher AudioFetcher) *NativeBackend {
	rate := beep.SampleRate(cfg.Player.AudioSampleRate)
	if rate <= 0 {
		rate = 44100
	}
	return &NativeBackend{
		fetcher:    fetcher,
		sampleRate: rate,
		poll:       time.Duration(cfg.Player.PollIntervalMs) * time.Millisecond,
		initOutput: audio.InitSpeaker,
		open:       audio.Open,
		log:        logging.For("NATIVE"),
	}
}

func (b *NativeBackend) Type() types.MediaType { return types.MediaMP3 }

// LoadSDK opens the audio device.
func (b *NativeBackend) LoadSDK(ctx context.Context) error {
	return b.initOutput(b.sampleRate)
}

func (b *NativeBackend) ResourceID(song types.Song) (string, error) {
	return media.ResourceID(song)
}

func (b *NativeBackend) Create(ctx context.Context, url string) (Handle, error) {
	body, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	p, err := b.open(body, audio.Options{
		SampleRate:   b.sampleRate,
		PollInterval: b.poll,
		Log:          b.log.WithField("url", url),
	})
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("open audio: %w", err)
	}

	h := &nativeHandle{player: p}
	p.OnPosition(h.handlePosition)
	p.OnFinished(h.handleFinished)
	return h, nil
}

// nativeHandle is ready as soon as the file is decoded.
type nativeHandle struct {
	mu        sync.Mutex
	player    *audio.Player
	listener  Listener
	destroyed bool
}

func (h *nativeHandle) Bind(l Listener) {
	h.mu.Lock()
	h.listener = l
	h.mu.Unlock()

	l.OnReady()
	if d := h.player.Duration(); d > 0 {
		l.OnDuration(d.Seconds())
	}
}

func (h *nativeHandle) Unbind() {
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
}

func (h *nativeHandle) Play() error {
	return h.player.Play()
}

func (h *nativeHandle) Pause() error {
	return h.player.Pause()
}

func (h *nativeHandle) Seek(seconds float64) error {
	return h.player.Seek(time.Duration(seconds * float64(time.Second)))
}

func (h *nativeHandle) SetVolume(volume int) error {
	return h.player.SetVolume(float64(volume) / 100)
}

func (h *nativeHandle) Destroy() error {
	h.mu.Lock()
	h.destroyed = true
	h.listener = nil
	h.mu.Unlock()
	return h.player.Close()
}

func (h *nativeHandle) currentListener() Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	return h.listener
}

func (h *nativeHandle) handlePosition(d time.Duration) {
	if l := h.currentListener(); l != nil {
		l.OnTime(d.Seconds())
	}
}

func (h *nativeHandle) handleFinished() {
	if l := h.currentListener(); l != nil {
		l.OnEnded()
	}
}
