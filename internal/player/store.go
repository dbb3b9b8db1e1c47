package player

import (
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

type subscription struct {
	id int
	fn Listener
}

// Store is the single source of truth for the playlist and the transport
// state. No method returns an error or panics: invalid input is clamped or
// ignored.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners []subscription
	nextID    int
	log       *logrus.Entry

	queue       []Event
	dispatching bool
}

var _ types.PlayerControl = (*Store)(nil)

// DefaultSettings are the values a fresh session starts from before hydration.
func DefaultSettings(cfg *config.Config) types.Settings {
	settings := types.Settings{
		SelectedSubreddits: []string{"listentothis"},
		SortMethod:         types.SortHot,
		TopPeriod:          types.PeriodWeek,
		Volume:             lo.ToPtr(100),
	}
	if cfg == nil {
		return settings
	}

	if len(cfg.Player.DefaultSubreddits) > 0 {
		settings.SelectedSubreddits = normalizeSubreddits(cfg.Player.DefaultSubreddits)
	}
	if sort := types.SortMethod(cfg.Player.DefaultSort); sort.Valid() {
		settings.SortMethod = sort
	}
	if period := types.TopPeriod(cfg.Player.DefaultTopPeriod); period.Valid() {
		settings.TopPeriod = period
	}
	settings.Volume = lo.ToPtr(clampVolume(cfg.Player.DefaultVolume))
	return settings
}

func NewStore(defaults types.Settings) *Store {
	s := &Store{
		state: State{
			CurrentIndex:       NoSong,
			SelectedSubreddits: normalizeSubreddits(defaults.SelectedSubreddits),
			SortMethod:         types.SortHot,
			TopPeriod:          types.PeriodWeek,
			Volume:             clampVolume(lo.FromPtrOr(defaults.Volume, 100)),
		},
		log: logging.For("STORE"),
	}
	if defaults.SortMethod.Valid() {
		s.state.SortMethod = defaults.SortMethod
	}
	if defaults.TopPeriod.Valid() {
		s.state.TopPeriod = defaults.TopPeriod
	}
	return s
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = lo.Reject(s.listeners, func(sub subscription, _ int) bool {
			return sub.id == id
		})
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// update applies fn under the lock and queues the resulting event.
func (s *Store) update(fn func(st *State) Change) {
	s.mu.Lock()
	changes := fn(&s.state)
	if changes == 0 {
		s.mu.Unlock()
		return
	}
	s.state.Version++
	s.queue = append(s.queue, Event{Changes: changes, State: s.state.clone()})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.mu.Unlock()

	s.dispatch()
}

// dispatch drains the event queue. Only one goroutine dispatches at a time,
// which keeps delivery in commit order.
func (s *Store) dispatch() {
	drained := false
	defer func() {
		if !drained {
			s.mu.Lock()
			s.dispatching = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			drained = true
			return
		}
		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		listeners := slices.Clone(s.listeners)
		s.mu.Unlock()

		for _, sub := range listeners {
			sub.fn(ev)
		}
	}
}

// === Playlist ===

// SetSongs replaces the playlist and clears the selection.
func (s *Store) SetSongs(songs []types.Song) {
	s.update(func(st *State) Change {
		changes := ChangePlaylist
		if st.CurrentSong != nil {
			changes |= ChangeSong
		}
		st.Songs = append([]types.Song(nil), songs...)
		st.CurrentIndex = NoSong
		st.CurrentSong = nil
		st.CurrentTime = 0
		st.Duration = 0
		return changes | ChangeTime | ChangeDuration
	})
}

// AddSongs appends to the playlist without touching the selection.
func (s *Store) AddSongs(songs []types.Song) {
	if len(songs) == 0 {
		return
	}
	s.update(func(st *State) Change {
		merged := make([]types.Song, 0, len(st.Songs)+len(songs))
		merged = append(merged, st.Songs...)
		st.Songs = append(merged, songs...)
		return ChangePlaylist
	})
}

// SetCurrentSong selects songs[index], resets the clock and starts playback
// when the song is playable. Out of range indices are ignored.
func (s *Store) SetCurrentSong(index int) {
	s.update(func(st *State) Change {
		return selectSong(st, index)
	})
}

func selectSong(st *State, index int) Change {
	if index < 0 || index >= len(st.Songs) {
		return 0
	}
	song := st.Songs[index]
	st.CurrentIndex = index
	st.CurrentSong = &song
	st.CurrentTime = 0
	st.Duration = 0
	st.IsPlaying = song.Playable
	return ChangeSong | ChangePlayState | ChangeTime | ChangeDuration
}

// Next selects the next playable song, wrapping to the start of the playlist
// when none is left ahead.
func (s *Store) Next() {
	s.update(func(st *State) Change {
		for i := st.CurrentIndex + 1; i < len(st.Songs); i++ {
			if st.Songs[i].Playable {
				return selectSong(st, i)
			}
		}
		for i := 0; i < len(st.Songs); i++ {
			if st.Songs[i].Playable {
				return selectSong(st, i)
			}
		}
		return 0
	})
}

// Previous selects the closest playable song before the current one. It
// does not wrap.
func (s *Store) Previous() {
	s.update(func(st *State) Change {
		for i := st.CurrentIndex - 1; i >= 0; i-- {
			if st.Songs[i].Playable {
				return selectSong(st, i)
			}
		}
		return 0
	})
}

// ShufflePlaylist reorders the playlist in place. The current song keeps its
// selection at its new position.
func (s *Store) ShufflePlaylist() {
	s.update(func(st *State) Change {
		if len(st.Songs) < 2 {
			return 0
		}

		order := lo.Shuffle(lo.Range(len(st.Songs)))
		shuffled := make([]types.Song, len(order))
		newIndex := NoSong
		for pos, from := range order {
			shuffled[pos] = st.Songs[from]
			if from == st.CurrentIndex {
				newIndex = pos
			}
		}

		st.Songs = shuffled
		if st.CurrentSong != nil {
			st.CurrentIndex = newIndex
		}
		return ChangePlaylist
	})
}

// === Transport ===

func (s *Store) Play() {
	s.setPlaying(func(bool) bool { return true })
}

func (s *Store) Pause() {
	s.setPlaying(func(bool) bool { return false })
}

func (s *Store) TogglePlay() {
	s.setPlaying(func(playing bool) bool { return !playing })
}

func (s *Store) setPlaying(next func(bool) bool) {
	s.update(func(st *State) Change {
		playing := next(st.IsPlaying)
		if playing == st.IsPlaying {
			return 0
		}
		st.IsPlaying = playing
		return ChangePlayState
	})
}

// SeekTo records a seek request. The active adapter performs the actual
// backend seek when it observes ChangeSeek.
func (s *Store) SeekTo(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	s.update(func(st *State) Change {
		if seconds < 0 {
			seconds = 0
		}
		if st.Duration > 0 && seconds > st.Duration {
			seconds = st.Duration
		}
		st.CurrentTime = seconds
		st.SeekSeq++
		return ChangeSeek | ChangeTime
	})
}

// SetVolume clamps to [0, 100].
func (s *Store) SetVolume(volume int) {
	s.update(func(st *State) Change {
		volume = clampVolume(volume)
		if volume == st.Volume {
			return 0
		}
		st.Volume = volume
		return ChangeVolume
	})
}

// SetCurrentTime records playback progress reported by a backend. Reports
// for a song other than the current one are dropped.
func (s *Store) SetCurrentTime(songID string, seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return
	}
	s.update(func(st *State) Change {
		if st.CurrentSong == nil || st.CurrentSong.ID != songID {
			s.log.WithField("song", songID).Debug("Dropping stale time update")
			return 0
		}
		if st.CurrentTime == seconds {
			return 0
		}
		st.CurrentTime = seconds
		return ChangeTime
	})
}

// SetDuration records the media length. Non-finite and non-positive values
// are ignored so the last known duration survives buffering.
func (s *Store) SetDuration(songID string, seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return
	}
	s.update(func(st *State) Change {
		if st.CurrentSong == nil || st.CurrentSong.ID != songID {
			s.log.WithField("song", songID).Debug("Dropping stale duration update")
			return 0
		}
		if st.Duration == seconds {
			return 0
		}
		st.Duration = seconds
		return ChangeDuration
	})
}

// === Browse criteria ===

func (s *Store) SetSortMethod(method types.SortMethod) {
	if !method.Valid() {
		return
	}
	s.update(func(st *State) Change {
		if st.SortMethod == method {
			return 0
		}
		st.SortMethod = method
		return ChangeSettings
	})
}

func (s *Store) SetTopPeriod(period types.TopPeriod) {
	if !period.Valid() {
		return
	}
	s.update(func(st *State) Change {
		if st.TopPeriod == period {
			return 0
		}
		st.TopPeriod = period
		return ChangeSettings
	})
}

// SetSelectedSubreddits stores the names lowercased, in the given order.
func (s *Store) SetSelectedSubreddits(subreddits []string) {
	normalized := normalizeSubreddits(subreddits)
	s.update(func(st *State) Change {
		st.SelectedSubreddits = normalized
		return ChangeSettings
	})
}

// ToggleSubreddit adds the subreddit to the selection or removes it.
func (s *Store) ToggleSubreddit(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	s.update(func(st *State) Change {
		if lo.Contains(st.SelectedSubreddits, name) {
			st.SelectedSubreddits = lo.Without(st.SelectedSubreddits, name)
		} else {
			st.SelectedSubreddits = append(append([]string(nil), st.SelectedSubreddits...), name)
		}
		return ChangeSettings
	})
}

// SetSearchQuery sets the search query; a blank query clears it.
func (s *Store) SetSearchQuery(query string) {
	query = strings.TrimSpace(query)
	s.update(func(st *State) Change {
		if query == "" {
			if st.SearchQuery == nil {
				return 0
			}
			st.SearchQuery = nil
			return ChangeQuery
		}
		st.SearchQuery = &query
		return ChangeQuery
	})
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) Change {
		if st.Loading == loading {
			return 0
		}
		st.Loading = loading
		return ChangeLoading
	})
}

func (s *Store) SetAfter(after *string) {
	s.update(func(st *State) Change {
		if after == nil || *after == "" {
			st.After = nil
		} else {
			cursor := *after
			st.After = &cursor
		}
		return ChangeCursor
	})
}

// Hydrate applies persisted settings in a single event flagged
// ChangeHydrated. Invalid or missing fields keep their current value.
func (s *Store) Hydrate(settings types.Settings) {
	s.update(func(st *State) Change {
		if settings.SelectedSubreddits != nil {
			st.SelectedSubreddits = normalizeSubreddits(settings.SelectedSubreddits)
		}
		if settings.SortMethod.Valid() {
			st.SortMethod = settings.SortMethod
		}
		if settings.TopPeriod.Valid() {
			st.TopPeriod = settings.TopPeriod
		}
		if settings.Volume != nil {
			st.Volume = clampVolume(*settings.Volume)
		}
		return ChangeHydrated | ChangeSettings | ChangeVolume
	})
}

func clampVolume(volume int) int {
	return max(0, min(100, volume))
}

func normalizeSubreddits(subreddits []string) []string {
	out := make([]string, 0, len(subreddits))
	for _, name := range subreddits {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
