package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// IFrame player states.
const (
	YouTubeUnstarted = -1
	YouTubeEnded     = 0
	YouTubePlaying   = 1
	YouTubePaused    = 2
	YouTubeBuffering = 3
	YouTubeCued      = 5
)

// YouTubePlayer is the part of the IFrame player API the backend drives.
// Time is in seconds and volume in 0-100.
type YouTubePlayer interface {
	PlayVideo()
	PauseVideo()
	SeekTo(seconds float64, allowSeekAhead bool)
	SetVolume(volume int)
	GetCurrentTime() float64
	GetDuration() float64
	Destroy()
}

type YouTubeEvents struct {
	OnReady       func()
	OnStateChange func(state int)
	OnError       func(code int)
}

// YouTubeSDK loads the IFrame API and constructs players on a mount point.
type YouTubeSDK interface {
	Load(ctx context.Context) error
	NewPlayer(ctx context.Context, mountPoint, videoID string, events YouTubeEvents) (YouTubePlayer, error)
}

// YouTubeError carries an IFrame onError code.
type YouTubeError struct {
	Code int
}

func (e *YouTubeError) Error() string {
	switch e.Code {
	case 2:
		return "youtube: invalid video id"
	case 5:
		return "youtube: html5 player error"
	case 100:
		return "youtube: video not found"
	case 101, 150:
		return "youtube: embedding not allowed"
	default:
		return fmt.Sprintf("youtube: player error %d", e.Code)
	}
}

// YouTubeBackend reports time by polling the player, since the IFrame API
// does not push progress.
type YouTubeBackend struct {
	sdk        YouTubeSDK
	mountPoint string
	poll       time.Duration
	log        *logrus.Entry
}

func NewYouTubeBackend(sdk YouTubeSDK, mountPoint string, poll time.Duration) *YouTubeBackend {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &YouTubeBackend{
		sdk:        sdk,
		mountPoint: mountPoint,
		poll:       poll,
		log:        logging.For("YOUTUBE"),
	}
}

func (b *YouTubeBackend) Type() types.MediaType { return types.MediaYouTube }

func (b *YouTubeBackend) LoadSDK(ctx context.Context) error { return b.sdk.Load(ctx) }

func (b *YouTubeBackend) ResourceID(song types.Song) (string, error) {
	return media.ResourceID(song)
}

func (b *YouTubeBackend) Create(ctx context.Context, videoID string) (Handle, error) {
	h := &youtubeHandle{
		poll: b.poll,
		stop: make(chan struct{}),
		log:  b.log.WithField("video", videoID),
	}

	p, err := b.sdk.NewPlayer(ctx, b.mountPoint, videoID, YouTubeEvents{
		OnReady:       h.handleReady,
		OnStateChange: h.handleStateChange,
		OnError:       h.handleError,
	})
	if err != nil {
		return nil, fmt.Errorf("create youtube player: %w", err)
	}

	h.mu.Lock()
	h.player = p
	startPoll := h.ready
	h.mu.Unlock()
	if startPoll {
		h.startPolling()
	}
	return h, nil
}

type youtubeHandle struct {
	mu        sync.Mutex
	player    YouTubePlayer
	listener  Listener
	ready     bool
	polling   bool
	destroyed bool
	poll      time.Duration
	stop      chan struct{}
	log       *logrus.Entry
}

func (h *youtubeHandle) Bind(l Listener) {
	h.mu.Lock()
	h.listener = l
	ready := h.ready && h.player != nil
	h.mu.Unlock()

	if ready {
		l.OnReady()
	}
}

func (h *youtubeHandle) Unbind() {
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
}

func (h *youtubeHandle) live() (YouTubePlayer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed || h.player == nil {
		return nil, types.ErrHandleGone
	}
	return h.player, nil
}

func (h *youtubeHandle) Play() error {
	p, err := h.live()
	if err != nil {
		return err
	}
	p.PlayVideo()
	return nil
}

func (h *youtubeHandle) Pause() error {
	p, err := h.live()
	if err != nil {
		return err
	}
	p.PauseVideo()
	return nil
}

func (h *youtubeHandle) Seek(seconds float64) error {
	p, err := h.live()
	if err != nil {
		return err
	}
	p.SeekTo(seconds, true)
	return nil
}

func (h *youtubeHandle) SetVolume(volume int) error {
	p, err := h.live()
	if err != nil {
		return err
	}
	p.SetVolume(volume)
	return nil
}

func (h *youtubeHandle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	h.listener = nil
	p := h.player
	close(h.stop)
	h.mu.Unlock()

	if p != nil {
		p.Destroy()
	}
	return nil
}

func (h *youtubeHandle) handleReady() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.ready = true
	hasPlayer := h.player != nil
	l := h.listener
	h.mu.Unlock()

	// The SDK may report ready before NewPlayer returns; Create starts the
	// poller in that case.
	if !hasPlayer {
		return
	}
	h.startPolling()
	if l != nil {
		l.OnReady()
	}
}

func (h *youtubeHandle) handleStateChange(state int) {
	if state != YouTubeEnded {
		return
	}
	if l := h.currentListener(); l != nil {
		l.OnEnded()
	}
}

func (h *youtubeHandle) handleError(code int) {
	h.log.WithField("code", code).Debug("Player error")
	if l := h.currentListener(); l != nil {
		l.OnError(&YouTubeError{Code: code})
	}
}

func (h *youtubeHandle) currentListener() Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil
	}
	return h.listener
}

func (h *youtubeHandle) startPolling() {
	h.mu.Lock()
	if h.polling || h.destroyed {
		h.mu.Unlock()
		return
	}
	h.polling = true
	h.mu.Unlock()

	go h.pollLoop()
}

func (h *youtubeHandle) pollLoop() {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.pollOnce()
		case <-h.stop:
			return
		}
	}
}

func (h *youtubeHandle) pollOnce() {
	h.mu.Lock()
	p, l := h.player, h.listener
	h.mu.Unlock()
	if p == nil || l == nil {
		return
	}

	var current, duration float64
	err := guard(h.log, "poll", func() error {
		current = p.GetCurrentTime()
		duration = p.GetDuration()
		return nil
	})
	if err != nil {
		return
	}

	l.OnTime(current)
	if duration > 0 {
		l.OnDuration(duration)
	}
}
