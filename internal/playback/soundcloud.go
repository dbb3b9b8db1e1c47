package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type SoundCloudEvent string

const (
	SoundCloudReady        SoundCloudEvent = "ready"
	SoundCloudPlayProgress SoundCloudEvent = "playProgress"
	SoundCloudFinish       SoundCloudEvent = "finish"
	SoundCloudError        SoundCloudEvent = "error"
)

// SoundCloudProgress is the payload of widget events. Positions are in
// milliseconds.
type SoundCloudProgress struct {
	CurrentPosition  float64
	RelativePosition float64
	LoadedProgress   float64
}

// SoundCloudWidget is the part of the widget API the backend drives. Times
// are in milliseconds, volume in 0-100, and getters answer through
// callbacks.
type SoundCloudWidget interface {
	Play()
	Pause()
	SeekTo(milliseconds float64)
	SetVolume(volume float64)
	GetDuration(callback func(milliseconds float64))
	Bind(event SoundCloudEvent, fn func(SoundCloudProgress))
	Unbind(event SoundCloudEvent)
	Destroy()
}

type SoundCloudSDK interface {
	Load(ctx context.Context) error
	NewWidget(ctx context.Context, mountPoint, trackURL string) (SoundCloudWidget, error)
}

var errSoundCloudWidget = errors.New("soundcloud: widget error")

// SoundCloudBackend relies on pushed playProgress events for time.
type SoundCloudBackend struct {
	sdk        SoundCloudSDK
	mountPoint string
	log        *logrus.Entry
}

func NewSoundCloudBackend(sdk SoundCloudSDK, mountPoint string) *SoundCloudBackend {
	return &SoundCloudBackend{
		sdk:        sdk,
		mountPoint: mountPoint,
		log:        logging.For("SOUNDCLOUD"),
	}
}

func (b *SoundCloudBackend) Type() types.MediaType { return types.MediaSoundCloud }

func (b *SoundCloudBackend) LoadSDK(ctx context.Context) error { return b.sdk.Load(ctx) }

func (b *SoundCloudBackend) ResourceID(song types.Song) (string, error) {
	return media.ResourceID(song)
}

func (b *SoundCloudBackend) Create(ctx context.Context, trackURL string) (Handle, error) {
	w, err := b.sdk.NewWidget(ctx, b.mountPoint, trackURL)
	if err != nil {
		return nil, fmt.Errorf("create soundcloud widget: %w", err)
	}

	h := &soundcloudHandle{widget: w, log: b.log.WithField("track", trackURL)}
	w.Bind(SoundCloudReady, func(SoundCloudProgress) { h.handleReady() })
	w.Bind(SoundCloudPlayProgress, h.handleProgress)
	w.Bind(SoundCloudFinish, func(SoundCloudProgress) { h.handleFinish() })
	w.Bind(SoundCloudError, func(SoundCloudProgress) { h.handleError() })
	return h, nil
}

var soundCloudEvents = []SoundCloudEvent{SoundCloudReady, SoundCloudPlayProgress, SoundCloudFinish, SoundCloudError}

type soundcloudHandle struct {
	mu        sync.Mutex
	widget    SoundCloudWidget
	listener  Listener
	ready     bool
	destroyed bool
	log       *logrus.Entry
}

func (h *soundcloudHandle) Bind(l Listener) {
	h.mu.Lock()
	h.listener = l
	ready := h.ready
	h.mu.Unlock()

	if ready {
		l.OnReady()
		h.reportDuration()
	}
}

func (h *soundcloudHandle) Unbind() {
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
}

func (h *soundcloudHandle) live() (SoundCloudWidget, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil, types.ErrHandleGone
	}
	return h.widget, nil
}

func (h *soundcloudHandle) Play() error {
	w, err := h.live()
	if err != nil {
		return err
	}
	w.Play()
	return nil
}

func (h *soundcloudHandle) Pause() error {
	w, err := h.live()
	if err != nil {
		return err
	}
	w.Pause()
	return nil
}

func (h *soundcloudHandle) Seek(seconds float64) error {
	w, err := h.live()
	if err != nil {
		return err
	}
	w.SeekTo(seconds * 1000)
	return nil
}

func (h *soundcloudHandle) SetVolume(volume int) error {
	w, err := h.live()
	if err != nil {
		return err
	}
	w.SetVolume(float64(volume))
	return nil
}

func (h *soundcloudHandle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	h.listener = nil
	h.mu.Unlock()

	for _, ev := range soundCloudEvents {
		h.widget.Unbind(ev)
	}
	h.widget.Destroy()
	return nil
}

func (h *soundcloudHandle) currentListener() Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	return h.listener
}

func (h *soundcloudHandle) handleReady() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.ready = true
	l := h.listener
	h.mu.Unlock()

	if l != nil {
		l.OnReady()
		h.reportDuration()
	}
}

// reportDuration asks the widget for the track length, which it answers
// asynchronously.
func (h *soundcloudHandle) reportDuration() {
	w, err := h.live()
	if err != nil {
		return
	}
	guard(h.log, "get duration", func() error {
		w.GetDuration(func(ms float64) {
			if l := h.currentListener(); l != nil && ms > 0 {
				l.OnDuration(ms / 1000)
			}
		})
		return nil
	})
}

func (h *soundcloudHandle) handleProgress(p SoundCloudProgress) {
	if l := h.currentListener(); l != nil {
		l.OnTime(p.CurrentPosition / 1000)
	}
}

func (h *soundcloudHandle) handleFinish() {
	if l := h.currentListener(); l != nil {
		l.OnEnded()
	}
}

func (h *soundcloudHandle) handleError() {
	if l := h.currentListener(); l != nil {
		l.OnError(errSoundCloudWidget)
	}
}
