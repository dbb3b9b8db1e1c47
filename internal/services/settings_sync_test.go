package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func TestHydrateRestoresSettings(t *testing.T) {
	storage := &fakeSettingsStore{stored: &types.Settings{
		SelectedSubreddits: []string{"Jazz"},
		SortMethod:         types.SortTop,
		TopPeriod:          types.PeriodAll,
		Volume:             lo.ToPtr(40),
	}}
	store := player.NewStore(player.DefaultSettings(nil))
	mirror := NewSettingsSync(store, storage)
	mirror.Start()

	require.NoError(t, mirror.Hydrate(context.Background()))
	mirror.Stop()

	st := store.Snapshot()
	assert.Equal(t, []string{"jazz"}, st.SelectedSubreddits)
	assert.Equal(t, types.SortTop, st.SortMethod)
	assert.Equal(t, types.PeriodAll, st.TopPeriod)
	assert.Equal(t, 40, st.Volume)

	assert.Empty(t, storage.saves())
}

func TestHydrateWithoutSavedSettings(t *testing.T) {
	storage := &fakeSettingsStore{}
	store := player.NewStore(player.DefaultSettings(nil))

	require.NoError(t, NewSettingsSync(store, storage).Hydrate(context.Background()))
	assert.Equal(t, 100, store.Snapshot().Volume)
	assert.Equal(t, 1, storage.loadHits)
}

func TestHydrateError(t *testing.T) {
	storage := &fakeSettingsStore{loadErr: errors.New("disk on fire")}
	store := player.NewStore(player.DefaultSettings(nil))

	err := NewSettingsSync(store, storage).Hydrate(context.Background())
	assert.Error(t, err)
}

func TestSettingsChangesArePersisted(t *testing.T) {
	storage := &fakeSettingsStore{}
	store := player.NewStore(player.DefaultSettings(nil))
	mirror := NewSettingsSync(store, storage)
	mirror.Start()
	defer mirror.Stop()

	store.SetVolume(30)

	require.Eventually(t, func() bool {
		saves := storage.saves()
		return len(saves) > 0 && lo.FromPtr(saves[len(saves)-1].Volume) == 30
	}, time.Second, 5*time.Millisecond)
}

func TestStopFlushesLatestSettings(t *testing.T) {
	storage := &fakeSettingsStore{}
	store := player.NewStore(player.DefaultSettings(nil))
	mirror := NewSettingsSync(store, storage)
	mirror.Start()

	for v := 0; v <= 50; v += 10 {
		store.SetVolume(v)
	}
	store.SetSortMethod(types.SortNew)
	mirror.Stop()

	saves := storage.saves()
	require.NotEmpty(t, saves)
	last := saves[len(saves)-1]
	assert.Equal(t, lo.ToPtr(50), last.Volume)
	assert.Equal(t, types.SortNew, last.SortMethod)
}

func TestTransportChangesAreNotPersisted(t *testing.T) {
	storage := &fakeSettingsStore{}
	store := player.NewStore(player.DefaultSettings(nil))
	mirror := NewSettingsSync(store, storage)
	mirror.Start()

	store.SetLoading(true)
	store.SetSongs([]types.Song{{ID: "a", Type: types.MediaYouTube, Playable: true}})
	store.SetCurrentSong(0)
	store.SeekTo(10)
	store.SetSearchQuery("something")
	mirror.Stop()

	assert.Empty(t, storage.saves())

	mirror.Stop()
}

func TestStaleEventIsNotPersisted(t *testing.T) {
	storage := &fakeSettingsStore{}
	store := player.NewStore(player.DefaultSettings(nil))
	mirror := NewSettingsSync(store, storage)

	mirror.onEvent(player.Event{Changes: player.ChangeVolume, State: player.State{Version: 5, Volume: 10}})
	mirror.onEvent(player.Event{Changes: player.ChangeVolume, State: player.State{Version: 3, Volume: 90}})
	mirror.Flush()

	saves := storage.saves()
	require.Len(t, saves, 1)
	assert.Equal(t, lo.ToPtr(10), saves[0].Volume)
}
