package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
)

var ErrClosed = errors.New("audio player closed")

type Options struct {
	// SampleRate is the output rate. Sources at another rate are resampled.
	SampleRate   beep.SampleRate
	PollInterval time.Duration
	Output       Output
	Log          *logrus.Entry
}

// Player plays one decoded file. It starts paused and reports its position
// on a ticker while playing.
type Player struct {
	mu sync.Mutex

	out      Output
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	duration time.Duration
	position time.Duration
	started  bool
	closed   bool

	onPosition func(time.Duration)
	onFinished func()

	ticker *time.Ticker
	done   chan struct{}
	log    *logrus.Entry
}

// Open decodes an mp3 stream. r should be seekable for Seek to work.
func Open(r io.ReadCloser, opts Options) (*Player, error) {
	streamer, format, err := mp3.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return newPlayer(streamer, format, opts), nil
}

func newPlayer(streamer beep.StreamSeekCloser, format beep.Format, opts Options) *Player {
	if opts.Output == nil {
		opts.Output = Speaker
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = logging.For("AUDIO")
	}

	p := &Player{
		out:      opts.Output,
		streamer: streamer,
		format:   format,
		duration: format.SampleRate.D(streamer.Len()),
		done:     make(chan struct{}),
		log:      opts.Log,
	}

	var source beep.Streamer = streamer
	if opts.SampleRate != 0 && opts.SampleRate != format.SampleRate {
		source = beep.Resample(4, format.SampleRate, opts.SampleRate, streamer)
	}
	p.ctrl = &beep.Ctrl{Streamer: source, Paused: true}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	applyVolume(p.volume, 1)

	p.log.WithFields(logrus.Fields{
		"sample_rate": format.SampleRate,
		"channels":    format.NumChannels,
		"duration":    p.duration,
	}).Debug("Audio decoded")

	p.ticker = time.NewTicker(opts.PollInterval)
	go p.positionUpdater()

	return p
}

// applyVolume maps a linear 0..1 level onto the exponential gain of
// effects.Volume. 1 is unity gain, 0 is silent.
func applyVolume(v *effects.Volume, level float64) {
	level = max(0, min(1, level))
	v.Volume = (level - 1) * 5
	v.Silent = level == 0
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if !p.started {
		p.out.Lock()
		if p.streamer.Position() >= p.streamer.Len() {
			if err := p.streamer.Seek(0); err != nil {
				p.out.Unlock()
				return fmt.Errorf("rewind: %w", err)
			}
		}
		p.out.Unlock()

		p.out.Play(beep.Seq(p.volume, beep.Callback(func() {
			go p.finish()
		})))
		p.started = true
	}

	p.out.Lock()
	p.ctrl.Paused = false
	p.out.Unlock()

	p.log.Debug("Resumed playback")
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.out.Lock()
	p.ctrl.Paused = true
	p.out.Unlock()

	p.log.Debug("Paused playback")
	return nil
}

// Seek moves to position, clamped to the file bounds.
func (p *Player) Seek(position time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	n := p.format.SampleRate.N(position)
	n = max(0, min(n, p.streamer.Len()-1))

	p.out.Lock()
	err := p.streamer.Seek(n)
	p.out.Unlock()
	if err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	p.position = p.format.SampleRate.D(n)
	p.log.WithField("position", p.position).Debug("Seeked")
	return nil
}

// SetVolume takes a linear level in [0, 1].
func (p *Player) SetVolume(level float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.out.Lock()
	applyVolume(p.volume, level)
	p.out.Unlock()
	return nil
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.out.Lock()
	defer p.out.Unlock()
	return !p.started || p.ctrl.Paused
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.position
	}
	p.out.Lock()
	defer p.out.Unlock()
	return p.format.SampleRate.D(p.streamer.Position())
}

func (p *Player) Duration() time.Duration {
	return p.duration
}

func (p *Player) OnPosition(callback func(time.Duration)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPosition = callback
}

func (p *Player) OnFinished(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = callback
}

// Close detaches the stream from the output and releases the decoder. It is
// safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.onPosition = nil
	p.onFinished = nil

	p.out.Lock()
	p.ctrl.Paused = true
	p.ctrl.Streamer = nil
	p.out.Unlock()
	p.mu.Unlock()

	close(p.done)
	p.ticker.Stop()

	if err := p.streamer.Close(); err != nil {
		return fmt.Errorf("close decoder: %w", err)
	}
	p.log.Debug("Audio player closed")
	return nil
}

func (p *Player) finish() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.started = false
	callback := p.onFinished
	p.mu.Unlock()

	p.log.Debug("Playback finished")
	if callback != nil {
		callback()
	}
}

func (p *Player) positionUpdater() {
	for {
		select {
		case <-p.ticker.C:
			p.updatePosition()
		case <-p.done:
			return
		}
	}
}

func (p *Player) updatePosition() {
	p.mu.Lock()
	if p.closed || !p.started {
		p.mu.Unlock()
		return
	}

	p.out.Lock()
	current := p.format.SampleRate.D(p.streamer.Position())
	p.out.Unlock()

	if current == p.position {
		p.mu.Unlock()
		return
	}
	p.position = current
	callback := p.onPosition
	p.mu.Unlock()

	if callback != nil {
		callback(current)
	}
}
