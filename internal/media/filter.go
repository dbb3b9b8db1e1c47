package media

import (
	"time"

	"github.com/samber/lo"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// FilterPlayable keeps the posts some backend can play. Self posts are always
// dropped. Order is preserved and duplicates are not removed.
func FilterPlayable(posts []types.RawPost) []types.RawPost {
	return lo.Filter(posts, func(post types.RawPost, _ int) bool {
		if post.IsSelf {
			return false
		}
		return IsPlayable(post.Domain, post.URL)
	})
}

// Paginate filters and normalizes a raw page and carries its cursor through.
// An empty cursor means there are no more pages.
func Paginate(page *types.Page, now time.Time) types.Batch {
	if page == nil {
		return types.Batch{Songs: []types.Song{}}
	}

	songs := lo.Map(FilterPlayable(page.Items), func(post types.RawPost, _ int) types.Song {
		return Normalize(post, now)
	})

	var after *string
	if page.After != nil && *page.After != "" {
		cursor := *page.After
		after = &cursor
	}

	return types.Batch{Songs: songs, After: after}
}
