package media

import (
	"strings"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// domainTypes maps lowercase post domains onto the backend that embeds them.
var domainTypes = map[string]types.MediaType{
	"youtube.com":        types.MediaYouTube,
	"youtu.be":           types.MediaYouTube,
	"m.youtube.com":      types.MediaYouTube,
	"www.youtube.com":    types.MediaYouTube,
	"soundcloud.com":     types.MediaSoundCloud,
	"www.soundcloud.com": types.MediaSoundCloud,
	"vimeo.com":          types.MediaVimeo,
	"www.vimeo.com":      types.MediaVimeo,
}

// Classify resolves the media type of a post from its domain and URL. It is
// the only place the classification rules live; both the normalizer and the
// playlist filter call it.
func Classify(domain, rawURL string) types.MediaType {
	if t, ok := domainTypes[strings.ToLower(strings.TrimSpace(domain))]; ok {
		return t
	}
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(rawURL)), ".mp3") {
		return types.MediaMP3
	}
	return types.MediaNone
}

// IsPlayable is Classify(domain, url) != none.
func IsPlayable(domain, rawURL string) bool {
	return Classify(domain, rawURL).Playable()
}
