package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_next",
    "children": [
      {"kind": "t3", "data": {
        "id": "abc", "name": "t3_abc", "title": "Artist - Track", "author": "someone",
        "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "domain": "youtube.com",
        "thumbnail": "https://b.thumbs.redditmedia.com/x.jpg",
        "preview": {"images": [{"source": {"url": "https://preview.redd.it/src.jpg?a=1&amp;b=2"},
          "resolutions": [{"url": "https://preview.redd.it/108.jpg"}, {"url": "https://preview.redd.it/216.jpg"}]}]},
        "score": 120, "ups": 125, "downs": 5, "created_utc": 1700000000.0, "num_comments": 14,
        "subreddit": "listentothis", "permalink": "/r/listentothis/comments/abc/",
        "is_self": false, "media": {"type": "youtube.com"}
      }},
      {"kind": "t3", "data": {"id": "self1", "is_self": true, "domain": "self.listentothis", "selftext": "hi"}},
      {"kind": "t1", "data": {"id": "comment"}},
      {"kind": "t3", "data": "garbage"},
      {"kind": "t3", "data": {"id": "partial", "score": "not a number"}}
    ]
  }
}`

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.Retries = 0
	cfg.API.RateLimit.RequestsPerSecond = 1000
	cfg.API.RateLimit.BurstSize = 100
	cfg.API.UserAgent = "test:redditmusic:v1"
	cfg.API.AccessToken = ""
	cfg.API.ClientID = ""
	return cfg
}

func TestListingRequest(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	page, err := c.Listing(context.Background(), types.ListingRequest{
		Subreddits: []string{"listentothis", "jazz"},
		Sort:       types.SortTop,
		Period:     types.PeriodMonth,
		After:      "t3_prev",
	})
	require.NoError(t, err)

	assert.Equal(t, "/r/listentothis+jazz/top.json", gotPath)
	assert.Contains(t, gotQuery, "t=month")
	assert.Contains(t, gotQuery, "after=t3_prev")
	assert.Contains(t, gotQuery, "limit=100")
	assert.Contains(t, gotQuery, "raw_json=1")
	assert.Equal(t, "test:redditmusic:v1", gotUA)

	require.Len(t, page.Items, 3)
	require.NotNil(t, page.After)
	assert.Equal(t, "t3_next", *page.After)

	post := page.Items[0]
	assert.Equal(t, "abc", post.ID)
	assert.Equal(t, "t3_abc", post.Name)
	assert.Equal(t, "youtube.com", post.Domain)
	assert.Equal(t, 120, post.Score)
	assert.Equal(t, 1700000000.0, post.CreatedUTC)
	require.NotNil(t, post.Preview)
	assert.Equal(t, "https://preview.redd.it/src.jpg?a=1&amp;b=2", post.Preview.SourceURL)
	assert.Len(t, post.Preview.ResolutionURLs, 2)
	assert.JSONEq(t, `{"type": "youtube.com"}`, string(post.Media))

	assert.True(t, page.Items[1].IsSelf)
	assert.Equal(t, "partial", page.Items[2].ID)
	assert.Zero(t, page.Items[2].Score)
}

func TestListingOmitsPeriodUnlessTop(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"kind":"Listing","data":{"children":[],"after":null}}`))
	}))
	defer srv.Close()

	page, err := NewClient(testConfig(srv.URL)).Listing(context.Background(), types.ListingRequest{
		Subreddits: []string{"jazz"},
		Sort:       types.SortNew,
		Period:     types.PeriodMonth,
	})
	require.NoError(t, err)

	assert.NotContains(t, gotQuery, "t=")
	assert.NotContains(t, gotQuery, "after=")
	assert.Empty(t, page.Items)
	assert.Nil(t, page.After)
}

func TestSearchRequest(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(listingJSON))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Search(context.Background(), types.SearchRequest{
		Query:  "  boards of canada  ",
		Sort:   types.SortTop,
		Period: types.PeriodAll,
	})
	require.NoError(t, err)

	assert.Equal(t, "/search.json", gotPath)
	assert.Equal(t, []string{"boards of canada"}, gotQuery["q"])
	assert.Equal(t, []string{"top"}, gotQuery["sort"])
	assert.Equal(t, []string{"all"}, gotQuery["t"])
}

func TestValidationHappensBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	c := NewClient(testConfig(srv.URL))
	ctx := context.Background()

	_, err := c.Listing(ctx, types.ListingRequest{Subreddits: []string{"bad name"}})
	assert.ErrorIs(t, err, types.ErrInvalidSubreddit)

	_, err = c.Listing(ctx, types.ListingRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidSubreddit)

	_, err = c.Listing(ctx, types.ListingRequest{Subreddits: []string{strings.Repeat("a", 101)}})
	assert.ErrorIs(t, err, types.ErrInvalidSubreddit)

	_, err = c.Listing(ctx, types.ListingRequest{Subreddits: []string{"jazz"}, After: strings.Repeat("x", 51)})
	assert.ErrorIs(t, err, types.ErrInvalidCursor)

	_, err = c.Search(ctx, types.SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, types.ErrInvalidQuery)

	_, err = c.Search(ctx, types.SearchRequest{Query: strings.Repeat("q", 201)})
	assert.ErrorIs(t, err, types.ErrInvalidQuery)

	assert.Zero(t, hits.Load())
}

func TestValidateSubreddit(t *testing.T) {
	for _, name := range []string{"jazz", "Hip_Hop", "lo-fi", "a+b+c"} {
		assert.NoError(t, ValidateSubreddit(name), name)
	}
	for _, name := range []string{"", "r/jazz", "jazz music", "jazz;drop"} {
		assert.Error(t, ValidateSubreddit(name), name)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "Forbidden", "error": 403, "reason": "private"}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Listing(context.Background(), types.ListingRequest{Subreddits: []string{"secret"}})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "Forbidden", statusErr.Message)
}

func TestStatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL)).Listing(context.Background(), types.ListingRequest{Subreddits: []string{"gone"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Not Found", statusErr.Message)
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"kind":"Listing","data":{"children":[]}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.API.AccessToken = "tok"
	_, err := NewClient(cfg).Listing(context.Background(), types.ListingRequest{Subreddits: []string{"jazz"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)

	cfg = testConfig(srv.URL)
	cfg.API.ClientID = "client"
	_, err = NewClient(cfg).Listing(context.Background(), types.ListingRequest{Subreddits: []string{"jazz"}})
	require.NoError(t, err)
	assert.Equal(t, "Basic Y2xpZW50Og==", gotAuth)
}

func TestTokenSwitchesToOAuthHost(t *testing.T) {
	cfg := testConfig(DefaultBaseURL)
	cfg.API.AccessToken = "tok"
	assert.Equal(t, OAuthBaseURL, NewClient(cfg).baseURL)

	cfg = testConfig("http://localhost:9999/")
	cfg.API.AccessToken = "tok"
	assert.Equal(t, "http://localhost:9999", NewClient(cfg).baseURL)
}

func TestParsePageRejectsGarbage(t *testing.T) {
	_, err := ParsePage([]byte("<html>rate limited</html>"))
	assert.Error(t, err)

	_, err = ParsePage([]byte(`{"foo": 1}`))
	assert.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(testConfig(srv.URL)).Listing(ctx, types.ListingRequest{Subreddits: []string{"jazz"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
