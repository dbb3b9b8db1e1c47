package playback

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// Router keeps exactly one adapter mounted: the one matching the current
// song's media type. The previous adapter is unmounted before the next one
// mounts.
type Router struct {
	store    *player.Store
	adapters map[types.MediaType]*Adapter
	log      *logrus.Entry

	switchMu    sync.Mutex
	mu          sync.Mutex
	active      *Adapter
	activeType  types.MediaType
	unsubscribe func()
}

func NewRouter(store *player.Store, loader *SDKLoader, registry *Registry, opts AdapterOptions, backends ...Backend) *Router {
	r := &Router{
		store:      store,
		adapters:   make(map[types.MediaType]*Adapter),
		log:        logging.For("ROUTER"),
		activeType: types.MediaNone,
	}
	for _, b := range backends {
		r.adapters[b.Type()] = NewAdapter(b, store, loader, registry, opts)
	}
	return r
}

func (r *Router) Start() {
	r.mu.Lock()
	if r.unsubscribe != nil {
		r.mu.Unlock()
		return
	}
	r.unsubscribe = r.store.Subscribe(func(ev player.Event) {
		if ev.Changes.Has(player.ChangeSong) {
			r.route()
		}
	})
	r.mu.Unlock()

	r.route()
}

// Stop unmounts the active adapter.
func (r *Router) Stop() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	r.mu.Lock()
	prev := r.active
	r.active = nil
	r.activeType = types.MediaNone
	r.mu.Unlock()

	if prev != nil {
		prev.Unmount()
	}
}

// route mounts the adapter for the song that is current when the switch lock
// is taken, so a late event cannot mount a superseded type.
func (r *Router) route() {
	r.switchMu.Lock()
	defer r.switchMu.Unlock()

	st := r.store.Snapshot()
	t := st.CurrentType()

	r.mu.Lock()
	if t == r.activeType {
		r.mu.Unlock()
		return
	}
	prev := r.active
	next := r.adapters[t]
	r.active = next
	r.activeType = t
	r.mu.Unlock()

	if prev != nil {
		prev.Unmount()
	}
	if next == nil {
		if st.CurrentSong != nil {
			r.log.WithFields(logrus.Fields{"song": st.CurrentSong.ID, "type": t}).Debug("No backend for song")
		}
		return
	}
	r.log.WithField("type", t).Debug("Switching backend")
	next.Mount()
}

// Active returns the mounted adapter's type, MediaNone when nothing is mounted.
func (r *Router) Active() types.MediaType {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return types.MediaNone
	}
	return r.activeType
}

// Adapter returns the adapter registered for t.
func (r *Router) Adapter(t types.MediaType) (*Adapter, bool) {
	a, ok := r.adapters[t]
	return a, ok
}

// Unplayable reports whether a song is selected that no mounted backend can
// play. The shell shows the inert "cannot play" state in that case.
func (r *Router) Unplayable() bool {
	st := r.store.Snapshot()
	if st.CurrentSong == nil {
		return false
	}
	if !st.CurrentSong.Playable {
		return true
	}
	_, ok := r.adapters[st.CurrentSong.Type]
	return !ok
}
