package player

import (
	"slices"

	"github.com/samber/lo"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// NoSong is the CurrentIndex value when nothing is selected.
const NoSong = -1

// State is a point-in-time copy of the store. Mutating it has no effect on
// the store.
type State struct {
	Songs        []types.Song
	CurrentIndex int
	CurrentSong  *types.Song

	IsPlaying   bool
	CurrentTime float64
	Duration    float64
	Volume      int

	SelectedSubreddits []string
	SortMethod         types.SortMethod
	TopPeriod          types.TopPeriod
	SearchQuery        *string

	Loading bool
	After   *string

	// SeekSeq increases on every SeekTo so observers can tell an explicit seek
	// from a progress report.
	SeekSeq uint64

	// Version increases with every committed mutation.
	Version uint64
}

// CurrentSongID is the id of the current song or "" when none is selected.
func (s State) CurrentSongID() string {
	if s.CurrentSong == nil {
		return ""
	}
	return s.CurrentSong.ID
}

// CurrentType is the media type of the current song, MediaNone when none.
func (s State) CurrentType() types.MediaType {
	if s.CurrentSong == nil {
		return types.MediaNone
	}
	return s.CurrentSong.Type
}

// Settings extracts the persisted part of the state.
func (s State) Settings() types.Settings {
	return types.Settings{
		SelectedSubreddits: slices.Clone(s.SelectedSubreddits),
		SortMethod:         s.SortMethod,
		TopPeriod:          s.TopPeriod,
		Volume:             lo.ToPtr(s.Volume),
	}
}

func (s State) clone() State {
	c := s
	c.Songs = slices.Clone(s.Songs)
	c.SelectedSubreddits = slices.Clone(s.SelectedSubreddits)
	if s.CurrentSong != nil {
		song := *s.CurrentSong
		c.CurrentSong = &song
	}
	if s.SearchQuery != nil {
		q := *s.SearchQuery
		c.SearchQuery = &q
	}
	if s.After != nil {
		a := *s.After
		c.After = &a
	}
	return c
}

// Change is a bit set describing which parts of the state a mutation touched.
type Change uint32

const (
	ChangePlaylist Change = 1 << iota
	ChangeSong
	ChangePlayState
	ChangeVolume
	ChangeSeek
	ChangeTime
	ChangeDuration
	ChangeSettings
	ChangeQuery
	ChangeLoading
	ChangeCursor
	ChangeHydrated
)

func (c Change) Has(flag Change) bool {
	return c&flag != 0
}

// Event is published after every committed mutation.
type Event struct {
	Changes Change
	State   State
}

// Listener observes store events. Events reach every listener one at a time
// in commit order, after the store lock is released, so listeners may call
// back into the store. A mutation made while another goroutine is delivering
// events is queued and delivered by that goroutine.
type Listener func(Event)
