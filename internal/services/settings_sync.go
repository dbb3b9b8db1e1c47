package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const saveTimeout = 5 * time.Second

// SettingsSync mirrors the persisted part of the store (subreddits, sort,
// period, volume) to a SettingsStore. Writes happen on a background worker
// and coalesce: a burst of volume changes produces one write of the latest
// values.
type SettingsSync struct {
	store   *player.Store
	storage types.SettingsStore
	log     *logrus.Entry

	// saveMu orders writes so an older snapshot never lands after a newer one.
	saveMu sync.Mutex

	mu          sync.Mutex
	pending     *types.Settings
	version     uint64
	unsubscribe func()
	wake        chan struct{}
	stopCh      chan struct{}
	done        chan struct{}
}

func NewSettingsSync(store *player.Store, storage types.SettingsStore) *SettingsSync {
	return &SettingsSync{
		store:   store,
		storage: storage,
		log:     logging.For("SETTINGS_SYNC"),
		wake:    make(chan struct{}, 1),
	}
}

// Hydrate loads persisted settings into the store. Nothing saved is not an
// error. The hydration event is not written back.
func (p *SettingsSync) Hydrate(ctx context.Context) error {
	settings, found, err := p.storage.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !found {
		p.log.Debug("No saved settings, keeping defaults")
		return nil
	}

	p.store.Hydrate(*settings)
	p.log.WithField("subreddits", settings.SelectedSubreddits).Debug("Settings restored")
	return nil
}

func (p *SettingsSync) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe != nil {
		return
	}

	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	p.unsubscribe = p.store.Subscribe(p.onEvent)

	go p.worker(p.stopCh, p.done)

	p.log.Debug("Settings sync started")
}

// Stop unsubscribes and writes anything still pending before returning.
func (p *SettingsSync) Stop() {
	p.mu.Lock()
	if p.unsubscribe == nil {
		p.mu.Unlock()
		return
	}
	p.unsubscribe()
	p.unsubscribe = nil
	close(p.stopCh)
	done := p.done
	p.mu.Unlock()

	<-done
	p.log.Debug("Settings sync stopped")
}

func (p *SettingsSync) onEvent(ev player.Event) {
	if ev.Changes.Has(player.ChangeHydrated) {
		return
	}
	if !ev.Changes.Has(player.ChangeSettings | player.ChangeVolume) {
		return
	}

	settings := ev.State.Settings()

	p.mu.Lock()
	if ev.State.Version < p.version {
		p.mu.Unlock()
		return
	}
	p.version = ev.State.Version
	p.pending = &settings
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *SettingsSync) worker(stopCh, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-p.wake:
			p.flush()
		case <-stopCh:
			p.flush()
			return
		}
	}
}

// Flush writes pending settings synchronously.
func (p *SettingsSync) Flush() {
	p.flush()
}

func (p *SettingsSync) flush() {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	settings := p.pending
	p.pending = nil
	p.mu.Unlock()

	if settings == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := p.storage.SaveSettings(ctx, *settings); err != nil {
		p.log.WithError(err).Warn("Failed to save settings")
		return
	}

	p.log.WithFields(logrus.Fields{
		"subreddits": settings.SelectedSubreddits,
		"sort":       settings.SortMethod,
		"volume":     lo.FromPtr(settings.Volume),
	}).Debug("Settings saved")
}
