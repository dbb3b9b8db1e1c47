package types

import (
	"encoding/json"
)

// MediaType identifies which player backend can play a song.
type MediaType string

const (
	MediaYouTube    MediaType = "youtube"
	MediaSoundCloud MediaType = "soundcloud"
	MediaVimeo      MediaType = "vimeo"
	MediaMP3        MediaType = "mp3"
	MediaNone       MediaType = "none"
)

// Playable reports whether some backend exists for the type.
func (m MediaType) Playable() bool {
	switch m {
	case MediaYouTube, MediaSoundCloud, MediaVimeo, MediaMP3:
		return true
	default:
		return false
	}
}

func (m MediaType) String() string {
	if m == "" {
		return string(MediaNone)
	}
	return string(m)
}

// MediaTypes lists every playable type in classification priority order.
var MediaTypes = []MediaType{MediaYouTube, MediaSoundCloud, MediaVimeo, MediaMP3}

type SortMethod string

const (
	SortHot SortMethod = "hot"
	SortNew SortMethod = "new"
	SortTop SortMethod = "top"
)

func (s SortMethod) Valid() bool {
	switch s {
	case SortHot, SortNew, SortTop:
		return true
	}
	return false
}

type TopPeriod string

const (
	PeriodDay   TopPeriod = "day"
	PeriodWeek  TopPeriod = "week"
	PeriodMonth TopPeriod = "month"
	PeriodYear  TopPeriod = "year"
	PeriodAll   TopPeriod = "all"
)

func (p TopPeriod) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return true
	}
	return false
}

// Song is the normalized form of a Reddit post. Songs are values: they are
// re-derived on every fetch and never mutated after normalization.
type Song struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	Domain    string `json:"domain"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
	Thumbnail string `json:"thumbnail,omitempty"`

	Score       int     `json:"score"`
	Ups         int     `json:"ups"`
	Downs       int     `json:"downs"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedAgo  string  `json:"created_ago"`

	IsSelf       bool   `json:"is_self"`
	Selftext     string `json:"selftext,omitempty"`
	SelftextHTML string `json:"selftext_html,omitempty"`

	Type     MediaType       `json:"type"`
	Playable bool            `json:"playable"`
	Media    json.RawMessage `json:"media,omitempty"`
}

// HasThumbnail is false for Reddit's sentinel thumbnails.
func (s Song) HasThumbnail() bool {
	switch s.Thumbnail {
	case "", "self", "default", "nsfw", "spoiler", "image":
		return false
	}
	return true
}

// RawPost is the subset of a Reddit "t3" listing child the player consumes.
type RawPost struct {
	ID           string
	Name         string
	Title        string
	Author       string
	URL          string
	Domain       string
	Thumbnail    string
	Preview      *Preview
	Score        int
	Ups          int
	Downs        int
	CreatedUTC   float64
	NumComments  int
	Subreddit    string
	Permalink    string
	IsSelf       bool
	Selftext     string
	SelftextHTML string
	Media        json.RawMessage
}

// Preview holds the image URLs Reddit generates for a post.
type Preview struct {
	SourceURL      string
	ResolutionURLs []string
}

// Page is one raw listing page before filtering.
type Page struct {
	Items []RawPost
	After *string
}

// Batch is a filtered, normalized page.
type Batch struct {
	Songs []Song
	After *string
}

// Settings is the part of the player state mirrored to durable storage.
// Volume is nil when no usable value was stored.
type Settings struct {
	SelectedSubreddits []string   `json:"selected_subreddits"`
	SortMethod         SortMethod `json:"sort_method"`
	TopPeriod          TopPeriod  `json:"top_period"`
	Volume             *int       `json:"volume,omitempty"`
}

// Subreddit is one entry of the browse catalog.
type Subreddit struct {
	Name        string `yaml:"name" json:"name"`
	Key         string `yaml:"key" json:"key"`
	Category    string `yaml:"category" json:"category"`
	Created     int64  `yaml:"created" json:"created"`
	Subscribers int    `yaml:"subscribers" json:"subscribers"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}
