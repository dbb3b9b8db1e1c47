package playback

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type slot struct {
	resourceID string
	handle     Handle
	refs       int
}

// Registry holds at most one live handle per media type. Handles are
// shared by resource id and destroyed when the last reference is released
// or a different resource claims the slot.
type Registry struct {
	mu    sync.Mutex
	slots map[types.MediaType]*slot
	log   *logrus.Entry
}

func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[types.MediaType]*slot),
		log:   logging.For("REGISTRY"),
	}
}

// GetOrCreate returns the handle for resourceID, adopting the live one when
// it matches. A handle for another resource is torn down before factory runs.
func (r *Registry) GetOrCreate(t types.MediaType, resourceID string, factory func() (Handle, error)) (Handle, error) {
	r.mu.Lock()
	if s, ok := r.slots[t]; ok {
		if s.resourceID == resourceID {
			s.refs++
			refs := s.refs
			r.mu.Unlock()
			r.log.WithFields(logrus.Fields{"type": t, "resource": resourceID, "refs": refs}).Debug("Adopted handle")
			return s.handle, nil
		}
		delete(r.slots, t)
		r.mu.Unlock()
		r.destroy(t, s)
	} else {
		r.mu.Unlock()
	}

	h, err := factory()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	prev, hadPrev := r.slots[t]
	if hadPrev && prev.resourceID == resourceID {
		// Lost a race with another creator of the same resource.
		prev.refs++
		r.mu.Unlock()
		r.destroy(t, &slot{resourceID: resourceID, handle: h})
		return prev.handle, nil
	}
	r.slots[t] = &slot{resourceID: resourceID, handle: h, refs: 1}
	r.mu.Unlock()

	if hadPrev {
		r.destroy(t, prev)
	}
	r.log.WithFields(logrus.Fields{"type": t, "resource": resourceID}).Debug("Created handle")
	return h, nil
}

// Release drops one reference and destroys the handle when none remain.
func (r *Registry) Release(t types.MediaType, resourceID string) {
	r.mu.Lock()
	s, ok := r.slots[t]
	if !ok || s.resourceID != resourceID {
		r.mu.Unlock()
		return
	}
	s.refs--
	if s.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.slots, t)
	r.mu.Unlock()

	r.destroy(t, s)
}

// Teardown destroys the handle for resourceID regardless of references.
func (r *Registry) Teardown(t types.MediaType, resourceID string) {
	r.mu.Lock()
	s, ok := r.slots[t]
	if !ok || s.resourceID != resourceID {
		r.mu.Unlock()
		return
	}
	delete(r.slots, t)
	r.mu.Unlock()

	r.destroy(t, s)
}

// Current reports the resource held for t.
func (r *Registry) Current(t types.MediaType) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[t]
	if !ok {
		return "", false
	}
	return s.resourceID, true
}

func (r *Registry) destroy(t types.MediaType, s *slot) {
	log := r.log.WithFields(logrus.Fields{"type": t, "resource": s.resourceID})
	guard(log, "pause", s.handle.Pause)
	guard(log, "unbind", func() error {
		s.handle.Unbind()
		return nil
	})
	guard(log, "destroy", s.handle.Destroy)
	log.Debug("Destroyed handle")
}
