package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Alexander-D-Karpov/redditmusic/internal/audio"
	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/internal/playback"
	"github.com/Alexander-D-Karpov/redditmusic/internal/services"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const statusInterval = 500 * time.Millisecond

var errNothingPlayable = errors.New("nothing here can be played in the terminal")

func init() {
	addListingFlags(playCmd)
	playCmd.Flags().IntP("index", "i", -1, "Start at this playlist index")
	playCmd.Flags().Bool("shuffle", false, "Shuffle the playlist before playing")
	playCmd.Flags().IntP("volume", "V", -1, "Set the volume (0-100)")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [/r/sub1+sub2]",
	Short: "Play songs from subreddits on the local audio device",
	Long: "Play songs from subreddits on the local audio device. Only direct audio links " +
		"can be played without a browser; other songs are skipped.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := applySort(cmd, s); err != nil {
			return err
		}
		if cmd.Flags().Changed("volume") {
			volume, _ := cmd.Flags().GetInt("volume")
			s.store.SetVolume(volume)
		}

		_, err = loadPages(cmd, s, func(ctx context.Context) ([]types.Song, error) {
			if len(args) == 1 {
				return s.fetch.SelectSubreddits(ctx, services.ParseSubredditPath(args[0]))
			}
			return s.fetch.Refresh(ctx)
		})
		if err != nil {
			return err
		}

		router := playback.NewRouter(
			s.store,
			playback.NewSDKLoader(),
			playback.NewRegistry(),
			playback.OptionsFromConfig(cfg),
			playback.NewNativeBackend(cfg, audio.NewLoader(cfg)),
		)
		router.Start()
		defer router.Stop()

		if shuffle, _ := cmd.Flags().GetBool("shuffle"); shuffle {
			s.store.ShufflePlaylist()
		}

		index, _ := cmd.Flags().GetInt("index")
		if index < 0 {
			index = firstSupported(s.store.Snapshot().Songs, router)
			if index < 0 {
				return errNothingPlayable
			}
		}
		s.store.SetCurrentSong(index)

		return watch(ctx, cmd.OutOrStdout(), s, router)
	},
}

func firstSupported(songs []types.Song, router *playback.Router) int {
	_, index, ok := lo.FindIndexOf(songs, func(song types.Song) bool {
		_, supported := router.Adapter(song.Type)
		return song.Playable && supported
	})
	if !ok {
		return -1
	}
	return index
}

// watch prints a status line until ctx is done, skipping songs the terminal
// cannot play.
func watch(ctx context.Context, w io.Writer, s *session, router *playback.Router) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	lastID := ""
	skipped := 0

	for {
		st := s.store.Snapshot()
		if st.CurrentSong == nil {
			fmt.Fprintln(w)
			return nil
		}
		song := *st.CurrentSong

		if song.ID != lastID {
			if lastID != "" {
				fmt.Fprintln(w)
			}
			lastID = song.ID
			fmt.Fprintf(w, "%s %s %s\n", headerStyle.Render("▶"), song.Title, faintStyle.Render("r/"+song.Subreddit))
		}

		adapter, _ := router.Adapter(song.Type)
		if router.Unplayable() || (adapter != nil && adapter.Failed()) {
			skipped++
			if skipped > len(st.Songs) {
				fmt.Fprintln(w)
				return errNothingPlayable
			}
			fmt.Fprintf(w, "  %s\n", faintStyle.Render("cannot play "+media.PlatformName(song.Domain)+" here, skipping"))
			s.store.Next()
			continue
		}
		skipped = 0

		status := "loading"
		if adapter != nil && adapter.State() == playback.StateReady {
			status = "paused"
			if st.IsPlaying {
				status = "playing"
			}
		}
		fmt.Fprintf(w, "\r  %s / %s  vol %d%%  %-8s",
			media.FormatTime(st.CurrentTime), media.FormatDuration(st.Duration), st.Volume, status)

		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case <-ticker.C:
		}
	}
}
