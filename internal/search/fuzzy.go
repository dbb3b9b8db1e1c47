package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type Engine struct {
	catalog    *Catalog
	maxResults int
}

func NewEngine(cfg *config.Config, catalog *Catalog) *Engine {
	maxResults := cfg.Search.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{
		catalog:    catalog,
		maxResults: maxResults,
	}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// FindSubreddits ranks catalog entries against query. An empty query
// returns nothing.
func (e *Engine) FindSubreddits(query string) []types.Subreddit {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var scored []scoredSubreddit
	queryLower := strings.ToLower(query)

	for _, sub := range e.catalog.entries {
		score := textScore(queryLower, sub.Name) + textScore(queryLower, sub.Key)
		if strings.Contains(strings.ToLower(sub.Category), queryLower) {
			score += 3.0
		}
		if strings.Contains(strings.ToLower(sub.Title), queryLower) {
			score += 2.0
		}

		if score > 0 {
			scored = append(scored, scoredSubreddit{Subreddit: sub, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	result := make([]types.Subreddit, 0, min(len(scored), e.maxResults))
	for _, s := range scored {
		if len(result) == e.maxResults {
			break
		}
		result = append(result, s.Subreddit)
	}

	return result
}

// FilterSongs narrows a playlist to songs whose title, author or subreddit
// match query, best match first. An empty query returns songs unchanged.
func FilterSongs(songs []types.Song, query string) []types.Song {
	query = strings.TrimSpace(query)
	if query == "" {
		return songs
	}

	var scored []scoredSong
	queryLower := strings.ToLower(query)

	for _, song := range songs {
		score := textScore(queryLower, song.Title)

		if strings.Contains(strings.ToLower(song.Author), queryLower) {
			score += 7.0
		}
		if strings.Contains(strings.ToLower(song.Subreddit), queryLower) {
			score += 5.0
		}

		if score > 0 {
			scored = append(scored, scoredSong{Song: song, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	result := make([]types.Song, 0, len(scored))
	for _, s := range scored {
		result = append(result, s.Song)
	}

	return result
}

type scoredSubreddit struct {
	Subreddit types.Subreddit
	Score     float64
}

type scoredSong struct {
	Song  types.Song
	Score float64
}

// textScore rewards substring hits, then in-order character matches, then
// small edit distances.
func textScore(queryLower, text string) float64 {
	textLower := strings.ToLower(text)
	score := 0.0

	if strings.Contains(textLower, queryLower) {
		score += 10.0
	} else if fuzzy.Match(queryLower, textLower) {
		score += 3.0
	}

	distance := fuzzy.LevenshteinDistance(queryLower, textLower)
	if distance <= len(queryLower)/2 {
		score += float64(len(queryLower) - distance)
	}

	return score
}
