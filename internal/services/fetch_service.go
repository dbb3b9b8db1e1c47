package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/internal/player"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// DefaultSubreddit is browsed when nothing is selected and no search is active.
const DefaultSubreddit = "listentothis"

// FetchService loads listings and search results into the store. At most one
// request is in flight: starting a fetch cancels the previous one, and a
// superseded request never touches the store.
//
// Store listeners must not call back into FetchService.
type FetchService struct {
	source         types.PostSource
	store          *player.Store
	minQueryLength int
	now            func() time.Time
	log            *logrus.Entry

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewFetchService(cfg *config.Config, source types.PostSource, store *player.Store) *FetchService {
	minQuery := 3
	if cfg != nil && cfg.Search.MinQueryLength > 0 {
		minQuery = cfg.Search.MinQueryLength
	}

	return &FetchService{
		source:         source,
		store:          store,
		minQueryLength: minQuery,
		now:            time.Now,
		log:            logging.For("FETCH"),
	}
}

// FetchListing loads subreddits into the store. With a non-empty after the
// songs are appended, otherwise they replace the playlist. A superseded
// request returns nil, nil.
func (s *FetchService) FetchListing(ctx context.Context, subreddits []string, sort types.SortMethod, period types.TopPeriod, after string) ([]types.Song, error) {
	req := types.ListingRequest{
		Subreddits: subreddits,
		Sort:       sort,
		Period:     period,
		After:      after,
	}

	return s.fetch(ctx, after, func(ctx context.Context) (*types.Page, error) {
		return s.source.Listing(ctx, req)
	})
}

// FetchSearch is FetchListing for a site-wide search.
func (s *FetchService) FetchSearch(ctx context.Context, query string, sort types.SortMethod, period types.TopPeriod, after string) ([]types.Song, error) {
	req := types.SearchRequest{
		Query:  query,
		Sort:   sort,
		Period: period,
		After:  after,
	}

	return s.fetch(ctx, after, func(ctx context.Context) (*types.Page, error) {
		return s.source.Search(ctx, req)
	})
}

func (s *FetchService) fetch(ctx context.Context, after string, do func(context.Context) (*types.Page, error)) ([]types.Song, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.store.SetLoading(true)
	s.mu.Unlock()

	start := time.Now()
	page, err := do(reqCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.log.WithField("took", time.Since(start)).Debug("Dropping superseded fetch")
		return nil, nil
	}
	s.cancel = nil

	if err != nil {
		s.store.SetLoading(false)
		if errors.Is(err, context.Canceled) {
			return nil, nil
		}
		s.log.WithError(err).Debug("Fetch failed")
		return nil, fmt.Errorf("fetch: %w", err)
	}

	batch := media.Paginate(page, s.now())
	if after != "" {
		s.store.AddSongs(batch.Songs)
	} else {
		s.store.SetSongs(batch.Songs)
	}
	s.store.SetAfter(batch.After)
	s.store.SetLoading(false)

	raw := 0
	if page != nil {
		raw = len(page.Items)
	}
	s.log.WithFields(logrus.Fields{
		"raw":      raw,
		"playable": len(batch.Songs),
		"append":   after != "",
		"took":     time.Since(start),
	}).Debug("Fetch applied")

	return batch.Songs, nil
}

// Cancel aborts the in-flight request, if any, and clears the loading flag.
func (s *FetchService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.store.SetLoading(false)
}

// Refresh reloads the first page of whatever the store is browsing: the
// search query if set, else the selected subreddits, else the default.
func (s *FetchService) Refresh(ctx context.Context) ([]types.Song, error) {
	return s.load(ctx, "")
}

// LoadMore appends the next page. It does nothing when there is no cursor.
func (s *FetchService) LoadMore(ctx context.Context) ([]types.Song, error) {
	st := s.store.Snapshot()
	if st.After == nil {
		return nil, nil
	}
	return s.load(ctx, *st.After)
}

func (s *FetchService) load(ctx context.Context, after string) ([]types.Song, error) {
	st := s.store.Snapshot()

	if st.SearchQuery != nil {
		return s.FetchSearch(ctx, *st.SearchQuery, st.SortMethod, st.TopPeriod, after)
	}

	subreddits := st.SelectedSubreddits
	if len(subreddits) == 0 {
		subreddits = []string{DefaultSubreddit}
	}
	return s.FetchListing(ctx, subreddits, st.SortMethod, st.TopPeriod, after)
}

// SelectSubreddits switches to browsing subreddits, dropping any search.
func (s *FetchService) SelectSubreddits(ctx context.Context, subreddits []string) ([]types.Song, error) {
	s.store.SetSearchQuery("")
	s.store.SetSelectedSubreddits(subreddits)
	return s.Refresh(ctx)
}

// Search switches to a site-wide search, dropping the subreddit selection.
// Queries shorter than the configured minimum are rejected.
func (s *FetchService) Search(ctx context.Context, query string) ([]types.Song, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.minQueryLength {
		return nil, fmt.Errorf("%w: need at least %d characters", types.ErrInvalidQuery, s.minQueryLength)
	}

	s.store.SetSelectedSubreddits(nil)
	s.store.SetSearchQuery(query)
	return s.Refresh(ctx)
}

// ChangeSort updates the sort order and reloads. The period is ignored
// unless sort is top.
func (s *FetchService) ChangeSort(ctx context.Context, sort types.SortMethod, period types.TopPeriod) ([]types.Song, error) {
	s.store.SetSortMethod(sort)
	if sort == types.SortTop {
		s.store.SetTopPeriod(period)
	}
	return s.Refresh(ctx)
}

// ParseSubredditPath extracts subreddit names from "/r/a+b" or "a+b". Names
// are lowercased; empty segments are dropped.
func ParseSubredditPath(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "/")
	if rest, ok := strings.CutPrefix(strings.ToLower(path), "r/"); ok {
		path = rest
	}
	if i := strings.IndexAny(path, "/?#"); i >= 0 {
		path = path[:i]
	}

	subs := lo.FilterMap(strings.Split(path, "+"), func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Uniq(subs)
}

// SubredditPath is the inverse of ParseSubredditPath.
func SubredditPath(subreddits []string) string {
	if len(subreddits) == 0 {
		return ""
	}
	return "/r/" + strings.Join(subreddits, "+")
}
