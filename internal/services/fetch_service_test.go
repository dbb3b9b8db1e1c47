package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func newTestService(src *fakeSource) (*FetchService, *player.Store) {
	store := player.NewStore(player.DefaultSettings(nil))
	svc := NewFetchService(nil, src, store)
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc, store
}

func songIDs(songs []types.Song) []string {
	ids := make([]string, 0, len(songs))
	for _, s := range songs {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFetchListingFiltersPage(t *testing.T) {
	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			return pageOf("",
				youtubePost("yt1"),
				types.RawPost{ID: "self1", Domain: "self.listentothis", IsSelf: true, URL: "https://www.reddit.com/r/listentothis/comments/self1"},
				types.RawPost{ID: "img1", Domain: "i.imgur.com", URL: "https://i.imgur.com/cat.jpg"},
			), nil
		},
	}
	svc, store := newTestService(src)

	songs, err := svc.FetchListing(context.Background(), []string{"listentothis"}, types.SortHot, types.PeriodWeek, "")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, types.MediaYouTube, songs[0].Type)

	st := store.Snapshot()
	require.Len(t, st.Songs, 1)
	assert.Equal(t, "yt1", st.Songs[0].ID)
	assert.False(t, st.Loading)
	assert.Nil(t, st.After)

	listings, _ := src.calls()
	require.Len(t, listings, 1)
	assert.Equal(t, []string{"listentothis"}, listings[0].Subreddits)
	assert.Equal(t, types.SortHot, listings[0].Sort)
}

func TestFetchLastIssuedWins(t *testing.T) {
	startedA := make(chan struct{})
	releaseA := make(chan struct{})

	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			if req.Subreddits[0] == "a" {
				close(startedA)
				// Respond late, ignoring cancellation.
				<-releaseA
				return pageOf("cursor-a", youtubePost("a1"), youtubePost("a2")), nil
			}
			return pageOf("cursor-b", youtubePost("b1")), nil
		},
	}
	svc, store := newTestService(src)

	var aSongs []types.Song
	var aErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		aSongs, aErr = svc.FetchListing(context.Background(), []string{"a"}, types.SortHot, types.PeriodWeek, "")
	}()

	<-startedA
	assert.True(t, store.Snapshot().Loading)

	bSongs, err := svc.FetchListing(context.Background(), []string{"b"}, types.SortHot, types.PeriodWeek, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, songIDs(bSongs))

	close(releaseA)
	<-done

	assert.NoError(t, aErr)
	assert.Nil(t, aSongs)

	st := store.Snapshot()
	assert.Equal(t, []string{"b1"}, songIDs(st.Songs))
	require.NotNil(t, st.After)
	assert.Equal(t, "cursor-b", *st.After)
	assert.False(t, st.Loading)
}

func TestFetchCancelsPreviousRequest(t *testing.T) {
	startedA := make(chan struct{})
	cancelledA := make(chan struct{})

	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			if req.Subreddits[0] == "a" {
				close(startedA)
				<-ctx.Done()
				close(cancelledA)
				return nil, ctx.Err()
			}
			return pageOf("", youtubePost("b1")), nil
		},
	}
	svc, store := newTestService(src)

	done := make(chan error, 1)
	go func() {
		songs, err := svc.FetchListing(context.Background(), []string{"a"}, types.SortHot, types.PeriodWeek, "")
		assert.Nil(t, songs)
		done <- err
	}()

	<-startedA
	_, err := svc.FetchListing(context.Background(), []string{"b"}, types.SortHot, types.PeriodWeek, "")
	require.NoError(t, err)

	<-cancelledA
	assert.NoError(t, <-done)
	assert.Equal(t, []string{"b1"}, songIDs(store.Snapshot().Songs))
	assert.False(t, store.Snapshot().Loading)
}

func TestFetchErrorLeavesPlaylist(t *testing.T) {
	boom := errors.New("boom")
	fail := false
	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			if fail {
				return nil, boom
			}
			return pageOf("next", youtubePost("x1")), nil
		},
	}
	svc, store := newTestService(src)

	_, err := svc.FetchListing(context.Background(), []string{"music"}, types.SortHot, types.PeriodWeek, "")
	require.NoError(t, err)

	fail = true
	songs, err := svc.FetchListing(context.Background(), []string{"music"}, types.SortNew, types.PeriodWeek, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, songs)

	st := store.Snapshot()
	assert.Equal(t, []string{"x1"}, songIDs(st.Songs))
	require.NotNil(t, st.After)
	assert.Equal(t, "next", *st.After)
	assert.False(t, st.Loading)
}

func TestFetchWithCursorAppends(t *testing.T) {
	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			if req.After == "" {
				return pageOf("t3_p2", youtubePost("p1")), nil
			}
			return pageOf("", youtubePost("p2")), nil
		},
	}
	svc, store := newTestService(src)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	store.SetCurrentSong(0)

	_, err = svc.LoadMore(ctx)
	require.NoError(t, err)

	st := store.Snapshot()
	assert.Equal(t, []string{"p1", "p2"}, songIDs(st.Songs))
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Nil(t, st.After)

	songs, err := svc.LoadMore(ctx)
	require.NoError(t, err)
	assert.Nil(t, songs)

	listings, _ := src.calls()
	require.Len(t, listings, 2)
	assert.Equal(t, "t3_p2", listings[1].After)
}

func TestCallerCancellationIsSilent(t *testing.T) {
	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc, store := newTestService(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	songs, err := svc.FetchListing(ctx, []string{"music"}, types.SortHot, types.PeriodWeek, "")
	assert.NoError(t, err)
	assert.Nil(t, songs)
	assert.False(t, store.Snapshot().Loading)
}

func TestCancelClearsLoading(t *testing.T) {
	started := make(chan struct{})
	src := &fakeSource{
		listing: func(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	svc, store := newTestService(src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		songs, err := svc.FetchListing(context.Background(), []string{"music"}, types.SortHot, types.PeriodWeek, "")
		assert.NoError(t, err)
		assert.Nil(t, songs)
	}()

	<-started
	svc.Cancel()
	<-done

	assert.False(t, store.Snapshot().Loading)
	svc.Cancel()
}

func TestRefreshUsesQueryThenSubreddits(t *testing.T) {
	src := &fakeSource{}
	svc, store := newTestService(src)
	ctx := context.Background()

	store.SetSelectedSubreddits(nil)
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	store.SetSearchQuery("boards of canada")
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	listings, searches := src.calls()
	require.Len(t, listings, 1)
	assert.Equal(t, []string{DefaultSubreddit}, listings[0].Subreddits)
	require.Len(t, searches, 1)
	assert.Equal(t, "boards of canada", searches[0].Query)
}

func TestSearchClearsSubreddits(t *testing.T) {
	src := &fakeSource{}
	svc, store := newTestService(src)
	ctx := context.Background()

	_, err := svc.Search(ctx, "  ab ")
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
	_, searches := src.calls()
	assert.Empty(t, searches)

	_, err = svc.Search(ctx, " radiohead ")
	require.NoError(t, err)

	st := store.Snapshot()
	assert.Empty(t, st.SelectedSubreddits)
	require.NotNil(t, st.SearchQuery)
	assert.Equal(t, "radiohead", *st.SearchQuery)

	_, err = svc.SelectSubreddits(ctx, []string{"Jazz", "bebop"})
	require.NoError(t, err)

	st = store.Snapshot()
	assert.Nil(t, st.SearchQuery)
	assert.Equal(t, []string{"jazz", "bebop"}, st.SelectedSubreddits)

	listings, _ := src.calls()
	require.Len(t, listings, 1)
	assert.Equal(t, []string{"jazz", "bebop"}, listings[0].Subreddits)
}

func TestChangeSort(t *testing.T) {
	src := &fakeSource{}
	svc, store := newTestService(src)
	ctx := context.Background()

	_, err := svc.ChangeSort(ctx, types.SortTop, types.PeriodYear)
	require.NoError(t, err)
	_, err = svc.ChangeSort(ctx, types.SortNew, types.PeriodDay)
	require.NoError(t, err)

	st := store.Snapshot()
	assert.Equal(t, types.SortNew, st.SortMethod)
	assert.Equal(t, types.PeriodYear, st.TopPeriod)

	listings, _ := src.calls()
	require.Len(t, listings, 2)
	assert.Equal(t, types.SortTop, listings[0].Sort)
	assert.Equal(t, types.PeriodYear, listings[0].Period)
}

func TestParseSubredditPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/r/Music+ListenToThis", []string{"music", "listentothis"}},
		{"r/jazz/", []string{"jazz"}},
		{"/r/a++b?autoplay", []string{"a", "b"}},
		{"dubstep+dubstep", []string{"dubstep"}},
		{" metal ", []string{"metal"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubredditPath(tt.in))
		})
	}

	assert.Empty(t, ParseSubredditPath(""))
	assert.Empty(t, ParseSubredditPath("/r/"))
	assert.Equal(t, "/r/a+b", SubredditPath([]string{"a", "b"}))
	assert.Equal(t, "", SubredditPath(nil))
}
