package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// SDKLoader loads each backend's SDK at most once per process. Concurrent
// callers for the same type share one load; a failed load may be retried.
type SDKLoader struct {
	group  singleflight.Group
	mu     sync.Mutex
	loaded map[types.MediaType]bool
	log    *logrus.Entry
}

func NewSDKLoader() *SDKLoader {
	return &SDKLoader{
		loaded: make(map[types.MediaType]bool),
		log:    logging.For("SDK"),
	}
}

func (l *SDKLoader) Loaded(t types.MediaType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[t]
}

func (l *SDKLoader) Load(ctx context.Context, backend Backend) error {
	t := backend.Type()
	if l.Loaded(t) {
		return nil
	}

	ch := l.group.DoChan(string(t), func() (interface{}, error) {
		if l.Loaded(t) {
			return nil, nil
		}
		l.log.WithField("type", t).Debug("Loading SDK")
		if err := guard(l.log, "load sdk", func() error { return backend.LoadSDK(ctx) }); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrSDKUnavailable, t, err)
		}

		l.mu.Lock()
		l.loaded[t] = true
		l.mu.Unlock()
		l.log.WithField("type", t).Info("SDK loaded")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
