package types

import (
	"context"
)

// ListingRequest selects a listing of one or more subreddits.
type ListingRequest struct {
	Subreddits []string
	Sort       SortMethod
	Period     TopPeriod
	After      string
}

// SearchRequest selects a site-wide search.
type SearchRequest struct {
	Query  string
	Sort   SortMethod
	Period TopPeriod
	After  string
}

// PostSource fetches raw Reddit pages.
type PostSource interface {
	Listing(ctx context.Context, req ListingRequest) (*Page, error)
	Search(ctx context.Context, req SearchRequest) (*Page, error)
}

// SettingsStore persists the user's browse preferences and volume.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (*Settings, bool, error)
	SaveSettings(ctx context.Context, settings Settings) error
}

// PlayerControl defines the transport controls exposed to a shell.
type PlayerControl interface {
	Play()
	Pause()
	TogglePlay()
	Next()
	Previous()
	SetVolume(int)
	SeekTo(float64)
}
