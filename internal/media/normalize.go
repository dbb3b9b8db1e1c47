package media

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const day = 24 * time.Hour

// agoMagnitudes are the elapsed-time buckets for CreatedAgo. Each entry applies
// while the elapsed time is below D; counts are floor divisions by DivBy.
var agoMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "just now", DivBy: 1},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * day, Format: "1 day %s", DivBy: 1},
	{D: 7 * day, Format: "%d days %s", DivBy: day},
	{D: 14 * day, Format: "1 week %s", DivBy: 1},
	{D: 30 * day, Format: "%d weeks %s", DivBy: 7 * day},
	{D: 60 * day, Format: "1 month %s", DivBy: 1},
	{D: 365 * day, Format: "%d months %s", DivBy: 30 * day},
	{D: 730 * day, Format: "1 year %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d years %s", DivBy: 365 * day},
}

// CreatedAgo renders the age of a post relative to now, e.g. "3 hours ago".
// Timestamps in the future render as "just now".
func CreatedAgo(created, now time.Time) string {
	if created.After(now) {
		return "just now"
	}
	return humanize.CustomRelTime(created, now, "ago", "from now", agoMagnitudes)
}

// Normalize converts a raw post into a Song. now fixes the reference time for
// CreatedAgo so the result is deterministic.
func Normalize(raw types.RawPost, now time.Time) types.Song {
	mediaType := Classify(raw.Domain, raw.URL)

	return types.Song{
		ID:           raw.ID,
		Name:         raw.Name,
		Title:        raw.Title,
		Author:       raw.Author,
		Subreddit:    raw.Subreddit,
		Domain:       raw.Domain,
		URL:          raw.URL,
		Permalink:    raw.Permalink,
		Thumbnail:    normalizeThumbnail(raw.Thumbnail, raw.Preview),
		Score:        raw.Score,
		Ups:          raw.Ups,
		Downs:        raw.Downs,
		NumComments:  raw.NumComments,
		CreatedUTC:   raw.CreatedUTC,
		CreatedAgo:   CreatedAgo(epoch(raw.CreatedUTC), now),
		IsSelf:       raw.IsSelf,
		Selftext:     raw.Selftext,
		SelftextHTML: raw.SelftextHTML,
		Type:         mediaType,
		Playable:     mediaType.Playable(),
		Media:        raw.Media,
	}
}

func normalizeThumbnail(thumbnail string, preview *types.Preview) string {
	if thumbnail == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(thumbnail, "http://"):
		thumbnail = "https://" + strings.TrimPrefix(thumbnail, "http://")
	case strings.HasPrefix(thumbnail, "//"):
		thumbnail = "https:" + thumbnail
	}

	if preview != nil {
		previewURL := preview.SourceURL
		if previewURL == "" && len(preview.ResolutionURLs) > 0 {
			previewURL = preview.ResolutionURLs[len(preview.ResolutionURLs)-1]
		}
		if previewURL != "" {
			thumbnail = strings.ReplaceAll(previewURL, "&amp;", "&")
		}
	}

	return thumbnail
}

func epoch(seconds float64) time.Time {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Unix(0, 0)
	}
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
