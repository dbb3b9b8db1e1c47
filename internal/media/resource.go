package media

import (
	"fmt"
	"regexp"

	"github.com/kkdai/youtube/v2"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

var vimeoIDPattern = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)

// ResourceID returns the identity of the media a song points at: the video id
// for YouTube and Vimeo, the track URL for SoundCloud and MP3. Two songs with
// the same type and resource id can share a player handle.
func ResourceID(song types.Song) (string, error) {
	switch song.Type {
	case types.MediaYouTube:
		id, err := youtube.ExtractVideoID(song.URL)
		if err != nil {
			return "", fmt.Errorf("extract youtube id from %q: %w", song.URL, err)
		}
		return id, nil
	case types.MediaVimeo:
		m := vimeoIDPattern.FindStringSubmatch(song.URL)
		if m == nil {
			return "", fmt.Errorf("extract vimeo id from %q: %w", song.URL, types.ErrNoResource)
		}
		return m[1], nil
	case types.MediaSoundCloud, types.MediaMP3:
		if song.URL == "" {
			return "", types.ErrNoResource
		}
		return song.URL, nil
	default:
		return "", types.ErrNoResource
	}
}
