package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type VimeoEvent string

const (
	VimeoLoaded     VimeoEvent = "loaded"
	VimeoTimeUpdate VimeoEvent = "timeupdate"
	VimeoEnded      VimeoEvent = "ended"
	VimeoErrorEvent VimeoEvent = "error"
)

// VimeoEventData is the payload of player events. Times are in seconds.
type VimeoEventData struct {
	Seconds  float64
	Duration float64
	Percent  float64
	Err      error
}

// VimeoPlayer is the part of the embed player API the backend drives. Each
// method resolves like the vendor's promises: it returns once applied.
// Volume is a fraction in [0, 1].
type VimeoPlayer interface {
	Play() error
	Pause() error
	SetCurrentTime(seconds float64) error
	SetVolume(volume float64) error
	GetDuration() (float64, error)
	On(event VimeoEvent, fn func(VimeoEventData))
	Off(event VimeoEvent)
	Destroy() error
}

type VimeoSDK interface {
	Load(ctx context.Context) error
	NewPlayer(ctx context.Context, mountPoint, videoID string) (VimeoPlayer, error)
}

type VimeoBackend struct {
	sdk        VimeoSDK
	mountPoint string
	log        *logrus.Entry
}

func NewVimeoBackend(sdk VimeoSDK, mountPoint string) *VimeoBackend {
	return &VimeoBackend{
		sdk:        sdk,
		mountPoint: mountPoint,
		log:        logging.For("VIMEO"),
	}
}

func (b *VimeoBackend) Type() types.MediaType { return types.MediaVimeo }

func (b *VimeoBackend) LoadSDK(ctx context.Context) error { return b.sdk.Load(ctx) }

func (b *VimeoBackend) ResourceID(song types.Song) (string, error) {
	return media.ResourceID(song)
}

func (b *VimeoBackend) Create(ctx context.Context, videoID string) (Handle, error) {
	p, err := b.sdk.NewPlayer(ctx, b.mountPoint, videoID)
	if err != nil {
		return nil, fmt.Errorf("create vimeo player: %w", err)
	}

	h := &vimeoHandle{player: p, log: b.log.WithField("video", videoID)}
	p.On(VimeoLoaded, func(VimeoEventData) { h.handleLoaded() })
	p.On(VimeoTimeUpdate, h.handleTimeUpdate)
	p.On(VimeoEnded, func(VimeoEventData) { h.handleEnded() })
	p.On(VimeoErrorEvent, h.handleError)
	return h, nil
}

var vimeoEvents = []VimeoEvent{VimeoLoaded, VimeoTimeUpdate, VimeoEnded, VimeoErrorEvent}

type vimeoHandle struct {
	mu        sync.Mutex
	player    VimeoPlayer
	listener  Listener
	ready     bool
	destroyed bool
	log       *logrus.Entry
}

func (h *vimeoHandle) Bind(l Listener) {
	h.mu.Lock()
	h.listener = l
	ready := h.ready
	h.mu.Unlock()

	if ready {
		l.OnReady()
		h.reportDuration()
	}
}

func (h *vimeoHandle) Unbind() {
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
}

func (h *vimeoHandle) live() (VimeoPlayer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil, types.ErrHandleGone
	}
	return h.player, nil
}

func (h *vimeoHandle) Play() error {
	p, err := h.live()
	if err != nil {
		return err
	}
	return p.Play()
}

func (h *vimeoHandle) Pause() error {
	p, err := h.live()
	if err != nil {
		return err
	}
	return p.Pause()
}

func (h *vimeoHandle) Seek(seconds float64) error {
	p, err := h.live()
	if err != nil {
		return err
	}
	return p.SetCurrentTime(seconds)
}

func (h *vimeoHandle) SetVolume(volume int) error {
	p, err := h.live()
	if err != nil {
		return err
	}
	return p.SetVolume(float64(volume) / 100)
}

func (h *vimeoHandle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	h.listener = nil
	h.mu.Unlock()

	for _, ev := range vimeoEvents {
		h.player.Off(ev)
	}
	return h.player.Destroy()
}

func (h *vimeoHandle) currentListener() Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	return h.listener
}

func (h *vimeoHandle) handleLoaded() {
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

func (h *vimeoHandle) reportDuration() {
	p, err := h.live()
	if err != nil {
		return
	}
	var duration float64
	if err := guard(h.log, "get duration", func() (err error) {
		duration, err = p.GetDuration()
		return err
	}); err != nil {
		return
	}
	if l := h.currentListener(); l != nil && duration > 0 {
		l.OnDuration(duration)
	}
}

func (h *vimeoHandle) handleTimeUpdate(data VimeoEventData) {
	l := h.currentListener()
	if l == nil {
		return
	}
	l.OnTime(data.Seconds)
	if data.Duration > 0 {
		l.OnDuration(data.Duration)
	}
}

func (h *vimeoHandle) handleEnded() {
	if l := h.currentListener(); l != nil {
		l.OnEnded()
	}
}

func (h *vimeoHandle) handleError(data VimeoEventData) {
	err := data.Err
	if err == nil {
		err = fmt.Errorf("vimeo: player error")
	}
	if l := h.currentListener(); l != nil {
		l.OnError(err)
	}
}
