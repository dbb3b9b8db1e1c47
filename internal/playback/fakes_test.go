package playback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type fakeHandle struct {
	mu          sync.Mutex
	resourceID  string
	ops         []string
	listener    Listener
	bound       Listener
	readyOnBind bool
	seekGate    chan struct{}
	destroyed   bool
}

func (h *fakeHandle) record(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
}

func (h *fakeHandle) Bind(l Listener) {
	h.mu.Lock()
	h.listener = l
	h.bound = l
	ready := h.readyOnBind
	h.mu.Unlock()

	if ready {
		l.OnReady()
	}
}

func (h *fakeHandle) Unbind() {
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
	h.record("unbind")
}

func (h *fakeHandle) Play() error {
	h.record("play")
	return nil
}

func (h *fakeHandle) Pause() error {
	h.record("pause")
	return nil
}

func (h *fakeHandle) Seek(seconds float64) error {
	h.record(fmt.Sprintf("seek:%g", seconds))
	if h.seekGate != nil {
		<-h.seekGate
	}
	return nil
}

func (h *fakeHandle) SetVolume(volume int) error {
	h.record(fmt.Sprintf("volume:%d", volume))
	return nil
}

func (h *fakeHandle) Destroy() error {
	h.mu.Lock()
	h.destroyed = true
	h.mu.Unlock()
	h.record("destroy")
	return nil
}

func (h *fakeHandle) Ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.ops)
}

func (h *fakeHandle) has(op string) bool {
	return slices.Contains(h.Ops(), op)
}

func (h *fakeHandle) isDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// boundListener returns the last listener bound, even after Unbind, so
// tests can replay late vendor callbacks.
func (h *fakeHandle) boundListener() Listener {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

func (h *fakeHandle) emitReady() {
	if l := h.boundListener(); l != nil {
		l.OnReady()
	}
}

type fakeBackend struct {
	typ         types.MediaType
	readyOnBind bool
	seekGate    chan struct{}
	loadDelay   time.Duration

	mu          sync.Mutex
	loads       int
	loadErrs    int
	creates     int
	failCreates int
	handles     []*fakeHandle
}

func newFakeBackend(t types.MediaType) *fakeBackend {
	return &fakeBackend{typ: t, readyOnBind: true}
}

func (b *fakeBackend) Type() types.MediaType { return b.typ }

func (b *fakeBackend) LoadSDK(ctx context.Context) error {
	if b.loadDelay > 0 {
		time.Sleep(b.loadDelay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	if b.loadErrs > 0 {
		b.loadErrs--
		return errors.New("script failed to load")
	}
	return nil
}

func (b *fakeBackend) ResourceID(song types.Song) (string, error) {
	if song.URL == "" {
		return "", types.ErrNoResource
	}
	return song.URL, nil
}

func (b *fakeBackend) Create(ctx context.Context, resourceID string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.failCreates < 0 || b.creates <= b.failCreates {
		return nil, errors.New("player constructor failed")
	}
	h := &fakeHandle{resourceID: resourceID, readyOnBind: b.readyOnBind, seekGate: b.seekGate}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBackend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

func (b *fakeBackend) Creates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates
}

func (b *fakeBackend) Handles() []*fakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.handles)
}

// recorder is a Listener that keeps everything it hears.
type recorder struct {
	mu        sync.Mutex
	ready     int
	times     []float64
	durations []float64
	ended     int
	errs      []error
}

func (r *recorder) OnReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready++
}

func (r *recorder) OnTime(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, seconds)
}

func (r *recorder) OnDuration(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, seconds)
}

func (r *recorder) OnEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

type heard struct {
	ready     int
	times     []float64
	durations []float64
	ended     int
	errs      []error
}

func (r *recorder) snapshot() heard {
	r.mu.Lock()
	defer r.mu.Unlock()
	return heard{
		ready:     r.ready,
		times:     slices.Clone(r.times),
		durations: slices.Clone(r.durations),
		ended:     r.ended,
		errs:      slices.Clone(r.errs),
	}
}
