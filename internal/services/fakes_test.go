package services

import (
	"context"
	"sync"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type fakeSource struct {
	mu       sync.Mutex
	listings []types.ListingRequest
	searches []types.SearchRequest

	listing func(ctx context.Context, req types.ListingRequest) (*types.Page, error)
	search  func(ctx context.Context, req types.SearchRequest) (*types.Page, error)
}

func (f *fakeSource) Listing(ctx context.Context, req types.ListingRequest) (*types.Page, error) {
	f.mu.Lock()
	f.listings = append(f.listings, req)
	fn := f.listing
	f.mu.Unlock()

	if fn == nil {
		return &types.Page{}, nil
	}
	return fn(ctx, req)
}

func (f *fakeSource) Search(ctx context.Context, req types.SearchRequest) (*types.Page, error) {
	f.mu.Lock()
	f.searches = append(f.searches, req)
	fn := f.search
	f.mu.Unlock()

	if fn == nil {
		return &types.Page{}, nil
	}
	return fn(ctx, req)
}

func (f *fakeSource) calls() ([]types.ListingRequest, []types.SearchRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ListingRequest(nil), f.listings...), append([]types.SearchRequest(nil), f.searches...)
}

func youtubePost(id string) types.RawPost {
	return types.RawPost{
		ID:     id,
		Name:   "t3_" + id,
		Title:  "Artist - Track " + id,
		Domain: "youtube.com",
		URL:    "https://www.youtube.com/watch?v=" + id,
	}
}

func pageOf(after string, posts ...types.RawPost) *types.Page {
	page := &types.Page{Items: posts}
	if after != "" {
		page.After = &after
	}
	return page
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	saved    []types.Settings
	stored   *types.Settings
	loadErr  error
	loadHits int
}

func (f *fakeSettingsStore) LoadSettings(ctx context.Context) (*types.Settings, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadHits++
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	if f.stored == nil {
		return nil, false, nil
	}
	s := *f.stored
	return &s, true, nil
}

func (f *fakeSettingsStore) SaveSettings(ctx context.Context, settings types.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, settings)
	f.stored = &settings
	return nil
}

func (f *fakeSettingsStore) saves() []types.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Settings(nil), f.saved...)
}
