package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func TestRegistryAdoptsSameResource(t *testing.T) {
	r := NewRegistry()
	calls := 0
	factory := func() (Handle, error) {
		calls++
		return &fakeHandle{resourceID: "abc"}, nil
	}

	first, err := r.GetOrCreate(types.MediaYouTube, "abc", factory)
	require.NoError(t, err)
	second, err := r.GetOrCreate(types.MediaYouTube, "abc", factory)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)

	r.Release(types.MediaYouTube, "abc")
	assert.False(t, first.(*fakeHandle).isDestroyed())

	r.Release(types.MediaYouTube, "abc")
	assert.True(t, first.(*fakeHandle).isDestroyed())
	assert.Equal(t, []string{"pause", "unbind", "destroy"}, first.(*fakeHandle).Ops())

	_, ok := r.Current(types.MediaYouTube)
	assert.False(t, ok)
}

func TestRegistryTearsDownOtherResourceFirst(t *testing.T) {
	r := NewRegistry()

	old, err := r.GetOrCreate(types.MediaYouTube, "old", func() (Handle, error) {
		return &fakeHandle{resourceID: "old"}, nil
	})
	require.NoError(t, err)

	_, err = r.GetOrCreate(types.MediaYouTube, "new", func() (Handle, error) {
		assert.True(t, old.(*fakeHandle).isDestroyed(), "old handle must be gone before the new one is built")
		return &fakeHandle{resourceID: "new"}, nil
	})
	require.NoError(t, err)

	current, ok := r.Current(types.MediaYouTube)
	require.True(t, ok)
	assert.Equal(t, "new", current)
}

func TestRegistrySlotsArePerType(t *testing.T) {
	r := NewRegistry()

	yt, err := r.GetOrCreate(types.MediaYouTube, "x", func() (Handle, error) { return &fakeHandle{}, nil })
	require.NoError(t, err)
	_, err = r.GetOrCreate(types.MediaSoundCloud, "y", func() (Handle, error) { return &fakeHandle{}, nil })
	require.NoError(t, err)

	assert.False(t, yt.(*fakeHandle).isDestroyed())
}

func TestRegistryFactoryError(t *testing.T) {
	r := NewRegistry()

	_, err := r.GetOrCreate(types.MediaVimeo, "v", func() (Handle, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	_, ok := r.Current(types.MediaVimeo)
	assert.False(t, ok)
}

func TestRegistryTeardownIgnoresRefs(t *testing.T) {
	r := NewRegistry()
	h, _ := r.GetOrCreate(types.MediaMP3, "u", func() (Handle, error) { return &fakeHandle{}, nil })
	r.GetOrCreate(types.MediaMP3, "u", func() (Handle, error) { return &fakeHandle{}, nil })

	r.Teardown(types.MediaMP3, "other")
	assert.False(t, h.(*fakeHandle).isDestroyed())

	r.Teardown(types.MediaMP3, "u")
	assert.True(t, h.(*fakeHandle).isDestroyed())
}

func TestSDKLoaderLoadsOnce(t *testing.T) {
	loader := NewSDKLoader()
	backend := newFakeBackend(types.MediaYouTube)
	backend.loadDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, loader.Load(context.Background(), backend))
		}()
	}
	wg.Wait()

	require.NoError(t, loader.Load(context.Background(), backend))
	assert.Equal(t, 1, backend.Loads())
	assert.True(t, loader.Loaded(types.MediaYouTube))
}

func TestSDKLoaderRetriesAfterFailure(t *testing.T) {
	loader := NewSDKLoader()
	backend := newFakeBackend(types.MediaVimeo)
	backend.loadErrs = 1

	err := loader.Load(context.Background(), backend)
	require.ErrorIs(t, err, types.ErrSDKUnavailable)
	assert.False(t, loader.Loaded(types.MediaVimeo))

	require.NoError(t, loader.Load(context.Background(), backend))
	assert.Equal(t, 2, backend.Loads())
}

func TestGuardRecoversPanics(t *testing.T) {
	err := guard(logging.Discard(), "play", func() error {
		var p YouTubePlayer
		p.PlayVideo()
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "play: panic")

	assert.NoError(t, guard(logging.Discard(), "noop", func() error { return nil }))
}
