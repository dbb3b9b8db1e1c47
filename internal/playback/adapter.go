package playback

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type AdapterOptions struct {
	// RetryAttempts bounds handle creation attempts per song.
	RetryAttempts int
	// RetryBackoff is multiplied by the attempt number.
	RetryBackoff time.Duration
}

func OptionsFromConfig(cfg *config.Config) AdapterOptions {
	opts := AdapterOptions{
		RetryAttempts: cfg.Player.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Player.RetryBackoffMs) * time.Millisecond,
	}
	return opts.withDefaults()
}

func (o AdapterOptions) withDefaults() AdapterOptions {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	return o
}

// Adapter reconciles the store with the handle of one backend. It follows
// the current song while mounted and reports handle events back to the
// store. Each attachment to a song gets a new generation; callbacks from an
// older generation are dropped.
type Adapter struct {
	backend  Backend
	store    *player.Store
	loader   *SDKLoader
	registry *Registry
	opts     AdapterOptions
	log      *logrus.Entry

	mu          sync.Mutex
	mounted     bool
	state       AdapterState
	gen         uint64
	ctx         context.Context
	cancel      context.CancelFunc
	songID      string
	resourceID  string
	handle      Handle
	failures    int
	seeking     bool
	seekPending bool
	seekTarget  float64
	lastSeekSeq uint64
	version     uint64
	unsubscribe func()
}

func NewAdapter(backend Backend, store *player.Store, loader *SDKLoader, registry *Registry, opts AdapterOptions) *Adapter {
	return &Adapter{
		backend:  backend,
		store:    store,
		loader:   loader,
		registry: registry,
		opts:     opts.withDefaults(),
		log:      logging.For("ADAPTER").WithField("type", backend.Type()),
		cancel:   func() {},
	}
}

func (a *Adapter) Type() types.MediaType {
	return a.backend.Type()
}

func (a *Adapter) State() AdapterState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Failed reports that the adapter holds a song it has stopped trying to
// play: creation gave up after its retries, or the song has no resource.
func (a *Adapter) Failed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted && a.songID != "" && a.state == StateUninitialized
}

// Mount starts following the store.
func (a *Adapter) Mount() {
	a.mu.Lock()
	if a.mounted {
		a.mu.Unlock()
		return
	}
	a.mounted = true
	a.state = StateUninitialized
	a.unsubscribe = a.store.Subscribe(a.onEvent)
	a.mu.Unlock()

	a.log.Debug("Mounted")
	a.onEvent(player.Event{Changes: player.ChangeSong, State: a.store.Snapshot()})
}

// Unmount releases the handle and stops following the store.
func (a *Adapter) Unmount() {
	a.mu.Lock()
	if !a.mounted {
		a.mu.Unlock()
		return
	}
	a.mounted = false
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	h, resourceID := a.detachLocked()
	a.state = StateDestroyed
	a.mu.Unlock()

	unsubscribe()
	a.release(h, resourceID)
	a.log.Debug("Unmounted")
}

func (a *Adapter) onEvent(ev player.Event) {
	st := ev.State

	a.mu.Lock()
	if !a.mounted || st.Version < a.version {
		a.mu.Unlock()
		return
	}
	a.version = st.Version

	if ev.Changes.Has(player.ChangeSong) {
		// Attach to the song that is current now.
		st = a.store.Snapshot()
		song := st.CurrentSong
		switch {
		case song == nil || song.Type != a.backend.Type():
			h, resourceID := a.detachLocked()
			a.mu.Unlock()
			a.release(h, resourceID)
			return

		case song.ID != a.songID:
			h, oldResource := a.detachLocked()
			a.songID = song.ID
			a.lastSeekSeq = st.SeekSeq

			resourceID, err := a.backend.ResourceID(*song)
			if err != nil {
				a.mu.Unlock()
				a.release(h, oldResource)
				a.log.WithError(err).WithField("song", song.ID).Warn("Song has no playable resource")
				return
			}

			a.resourceID = resourceID
			a.ctx, a.cancel = context.WithCancel(context.Background())
			a.state = StateLoadingSDK
			gen := a.gen
			a.mu.Unlock()

			a.release(h, oldResource)
			go a.run(gen)
			return
		}
	}

	h := a.handle
	gen := a.gen
	ready := a.state == StateReady && h != nil
	seeking := a.seeking

	seek := false
	if ev.Changes.Has(player.ChangeSeek) && st.SeekSeq != a.lastSeekSeq {
		a.lastSeekSeq = st.SeekSeq
		if ready {
			seek = a.requestSeekLocked(st.CurrentTime)
			seeking = true
		}
	}
	a.mu.Unlock()

	if !ready {
		return
	}

	if ev.Changes.Has(player.ChangeVolume) {
		guard(a.log, "set volume", func() error { return h.SetVolume(st.Volume) })
	}

	switch {
	case seek:
		go a.seekLoop(gen, h)
	case ev.Changes.Has(player.ChangePlayState) && !seeking:
		a.applyPlayIntent(h, st.IsPlaying)
	}
}

// run performs one attempt to bring the attachment to READY.
func (a *Adapter) run(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	songID := a.songID
	resourceID := a.resourceID
	a.state = StateLoadingSDK
	a.mu.Unlock()

	if err := a.loader.Load(ctx, a.backend); err != nil {
		a.fail(gen, err)
		return
	}

	if !a.transition(gen, StateCreatingHandle) {
		return
	}

	h, err := a.registry.GetOrCreate(a.backend.Type(), resourceID, func() (Handle, error) {
		var h Handle
		err := guard(a.log, "create", func() (err error) {
			h, err = a.backend.Create(ctx, resourceID)
			return err
		})
		return h, err
	})
	if err != nil {
		a.fail(gen, err)
		return
	}

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		a.registry.Release(a.backend.Type(), resourceID)
		return
	}
	a.handle = h
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{"song": songID, "resource": resourceID}).Debug("Handle attached")
	guard(a.log, "bind", func() error {
		h.Bind(&binding{adapter: a, gen: gen, songID: songID})
		return nil
	})
}

func (a *Adapter) ready(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.handle == nil || a.state == StateReady {
		a.mu.Unlock()
		return
	}
	a.state = StateReady
	h := a.handle
	songID := a.songID
	a.mu.Unlock()

	st := a.store.Snapshot()
	if st.CurrentSongID() != songID {
		return
	}
	a.log.WithField("song", songID).Debug("Handle ready")

	guard(a.log, "set volume", func() error { return h.SetVolume(st.Volume) })

	if st.CurrentTime > 0 {
		a.mu.Lock()
		if gen != a.gen {
			a.mu.Unlock()
			return
		}
		a.lastSeekSeq = st.SeekSeq
		start := a.requestSeekLocked(st.CurrentTime)
		a.mu.Unlock()

		if start {
			a.seekLoop(gen, h)
		}
		return
	}

	if st.IsPlaying {
		guard(a.log, "play", h.Play)
	}
}

// requestSeekLocked makes seconds the seek target and reports whether the
// caller has to start a seek loop. A running loop picks up the new target.
func (a *Adapter) requestSeekLocked(seconds float64) bool {
	a.seekTarget = seconds
	a.seekPending = true
	if a.seeking {
		return false
	}
	a.seeking = true
	return true
}

// seekLoop applies seek targets until none is pending, then re-applies the
// latest play intent. Play/pause reconciliation is suppressed meanwhile.
func (a *Adapter) seekLoop(gen uint64, h Handle) {
	for {
		a.mu.Lock()
		if gen != a.gen {
			a.mu.Unlock()
			return
		}
		if !a.seekPending {
			a.seeking = false
			a.mu.Unlock()
			break
		}
		target := a.seekTarget
		a.seekPending = false
		a.mu.Unlock()

		guard(a.log, "seek", func() error { return h.Seek(target) })
	}

	a.applyPlayIntent(h, a.store.Snapshot().IsPlaying)
}

func (a *Adapter) applyPlayIntent(h Handle, playing bool) {
	if playing {
		guard(a.log, "play", h.Play)
	} else {
		guard(a.log, "pause", h.Pause)
	}
}

// fail tears down the attachment and schedules another attempt until the
// retry budget for the song is spent.
func (a *Adapter) fail(gen uint64, err error) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.failures++
	attempt := a.failures
	resourceID := a.resourceID
	ctx := a.ctx
	a.handle = nil
	a.seeking = false
	a.seekPending = false
	a.gen++
	next := a.gen
	giveUp := attempt >= a.opts.RetryAttempts
	if giveUp {
		a.state = StateUninitialized
	} else {
		a.state = StateLoadingSDK
	}
	a.mu.Unlock()

	log := a.log.WithError(err).WithFields(logrus.Fields{"resource": resourceID, "attempt": attempt})
	a.registry.Teardown(a.backend.Type(), resourceID)

	if giveUp {
		log.Warn("Giving up on player")
		return
	}
	log.Debug("Player failed, retrying")

	backoff := a.opts.RetryBackoff * time.Duration(attempt)
	go func() {
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-timer.C:
			a.run(next)
		case <-ctx.Done():
		}
	}()
}

func (a *Adapter) transition(gen uint64, state AdapterState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return false
	}
	a.state = state
	return true
}

func (a *Adapter) current(gen uint64) (current, seeking bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.gen, a.seeking
}

// detachLocked invalidates the current attachment and returns the handle it
// held, if any. The caller releases it after unlocking.
func (a *Adapter) detachLocked() (Handle, string) {
	h, resourceID := a.handle, a.resourceID
	a.gen++
	a.cancel()
	a.cancel = func() {}
	a.handle = nil
	a.songID = ""
	a.resourceID = ""
	a.failures = 0
	a.seeking = false
	a.seekPending = false
	if a.state != StateDestroyed {
		a.state = StateUninitialized
	}
	return h, resourceID
}

func (a *Adapter) release(h Handle, resourceID string) {
	if h == nil {
		return
	}
	a.registry.Release(a.backend.Type(), resourceID)
}

type binding struct {
	adapter *Adapter
	gen     uint64
	songID  string
}

func (b *binding) OnReady() {
	b.adapter.ready(b.gen)
}

func (b *binding) OnTime(seconds float64) {
	if current, seeking := b.adapter.current(b.gen); current && !seeking {
		b.adapter.store.SetCurrentTime(b.songID, seconds)
	}
}

func (b *binding) OnDuration(seconds float64) {
	if current, _ := b.adapter.current(b.gen); current {
		b.adapter.store.SetDuration(b.songID, seconds)
	}
}

func (b *binding) OnEnded() {
	if current, _ := b.adapter.current(b.gen); current {
		b.adapter.log.WithField("song", b.songID).Debug("Song ended")
		b.adapter.store.Next()
	}
}

func (b *binding) OnError(err error) {
	b.adapter.fail(b.gen, err)
}
