package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const (
	DefaultBaseURL = "https://www.reddit.com"
	OAuthBaseURL   = "https://oauth.reddit.com"

	maxSubredditLen = 100
	maxQueryLen     = 200
	maxAfterLen     = 50
	maxPageLimit    = 100
)

var subredditPattern = regexp.MustCompile(`^[a-zA-Z0-9_+-]+$`)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit api error %d: %s", e.Code, e.Message)
}

// Client reads subreddit listings and search results from Reddit's JSON API.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	token      string
	clientID   string
	userAgent  string
	pageLimit  int
	log        *logrus.Entry

	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewClient(cfg *config.Config) *Client {
	log := logging.For("API")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.API.Retries
	retryClient.HTTPClient.Timeout = time.Duration(cfg.API.Timeout) * time.Second
	retryClient.Logger = logging.Leveled(log)

	limiter := rate.NewLimiter(
		rate.Limit(cfg.API.RateLimit.RequestsPerSecond),
		cfg.API.RateLimit.BurstSize,
	)

	baseURL := strings.TrimRight(cfg.API.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Bearer tokens are only honoured by the oauth host.
	if cfg.API.AccessToken != "" && baseURL == DefaultBaseURL {
		baseURL = OAuthBaseURL
	}

	pageLimit := cfg.API.PageLimit
	if pageLimit <= 0 || pageLimit > maxPageLimit {
		pageLimit = maxPageLimit
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: retryClient,
		limiter:    limiter,
		token:      cfg.API.AccessToken,
		clientID:   cfg.API.ClientID,
		userAgent:  cfg.API.UserAgent,
		pageLimit:  pageLimit,
		log:        log,
	}

	log.WithFields(logrus.Fields{
		"base_url":      baseURL,
		"authenticated": c.token != "",
	}).Debug("API client initialized")

	return c
}

// ValidateSubreddit checks a single name or a "+"-joined multireddit.
func ValidateSubreddit(name string) error {
	if name == "" || len(name) > maxSubredditLen || !subredditPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", types.ErrInvalidSubreddit, name)
	}
	return nil
}

// ValidateQuery trims the query and checks its length.
func ValidateQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty", types.ErrInvalidQuery)
	}
	if len(query) > maxQueryLen {
		return "", fmt.Errorf("%w: longer than %d characters", types.ErrInvalidQuery, maxQueryLen)
	}
	return query, nil
}

func validateAfter(after string) error {
	if len(after) > maxAfterLen {
		return fmt.Errorf("%w: %q", types.ErrInvalidCursor, after)
	}
	return nil
}

// Listing fetches one page of /r/{a+b}/{sort}.json.
func (c *Client) Listing(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
	subreddits := strings.Join(req.Subreddits, "+")
	if err := ValidateSubreddit(subreddits); err != nil {
		return nil, err
	}
	if err := validateAfter(req.After); err != nil {
		return nil, err
	}

	sort := req.Sort
	if !sort.Valid() {
		sort = types.SortHot
	}

	params := c.pageParams(sort, req.Period, req.After)
	body, err := c.makeRequest(ctx, "/r/"+subreddits+"/"+string(sort)+".json", params)
	if err != nil {
		return nil, fmt.Errorf("get listing r/%s: %w", subreddits, err)
	}

	page, err := ParsePage(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing r/%s: %w", subreddits, err)
	}
	return page, nil
}

// Search fetches one page of site-wide search results.
func (c *Client) Search(ctx context.Context, req types.SearchRequest) (*types.Page, error) {
	query, err := ValidateQuery(req.Query)
	if err != nil {
		return nil, err
	}
	if err := validateAfter(req.After); err != nil {
		return nil, err
	}

	sort := req.Sort
	if !sort.Valid() {
		sort = types.SortHot
	}

	params := c.pageParams(sort, req.Period, req.After)
	params.Set("q", query)
	params.Set("sort", string(sort))

	body, err := c.makeRequest(ctx, "/search.json", params)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	page, err := ParsePage(body)
	if err != nil {
		return nil, fmt.Errorf("parse search %q: %w", query, err)
	}
	return page, nil
}

func (c *Client) pageParams(sort types.SortMethod, period types.TopPeriod, after string) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("raw_json", "1")
	if sort == types.SortTop {
		if !period.Valid() {
			period = types.PeriodWeek
		}
		params.Set("t", string(period))
	}
	if after != "" {
		params.Set("after", after)
	}
	return params
}

func (c *Client) makeRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	n := c.requestCount.Add(1)
	log := c.log.WithFields(logrus.Fields{"request": n, "url": fullURL})
	log.Debug("Request")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.clientID != "":
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.clientID+":")))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})
	if resp.StatusCode >= 400 {
		c.errorCount.Add(1)
		err := statusError(resp, body)
		log.WithError(err).Debug("Request failed")
		return nil, err
	}

	log.Debug("Response")
	return body, nil
}

func statusError(resp *http.Response, body []byte) *StatusError {
	msg := ""
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		for _, key := range []string{"message", "reason", "error"} {
			if v := res.Get(key); v.Exists() && v.String() != "" {
				msg = v.String()
				break
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// Stats reports request counters for diagnostics.
func (c *Client) Stats() map[string]interface{} {
	requests := c.requestCount.Load()
	errs := c.errorCount.Load()
	return map[string]interface{}{
		"total_requests": requests,
		"total_errors":   errs,
		"error_rate":     float64(errs) / float64(max(requests, 1)) * 100,
		"base_url":       c.baseURL,
		"authenticated":  c.token != "",
	}
}
