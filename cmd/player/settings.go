package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Alexander-D-Karpov/redditmusic/internal/services"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func init() {
	settingsCmd.Flags().Int("volume", -1, "Set the volume (0-100)")
	settingsCmd.Flags().String("subreddits", "", "Set the selected subreddits, e.g. /r/jazz+bebop")
	settingsCmd.Flags().StringP("sort", "s", "", "Set the sort order")
	settingsCmd.Flags().StringP("period", "p", "", "Set the period for top")
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the saved browse settings and volume",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
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
		if cmd.Flags().Changed("subreddits") {
			path, _ := cmd.Flags().GetString("subreddits")
			s.store.SetSelectedSubreddits(services.ParseSubredditPath(path))
		}
		s.settings.Flush()

		st := s.store.Snapshot()
		out := cmd.OutOrStdout()

		subreddits := services.SubredditPath(st.SelectedSubreddits)
		if subreddits == "" {
			subreddits = faintStyle.Render("(none, browsing /r/" + services.DefaultSubreddit + ")")
		}
		fmt.Fprintf(out, "%-12s %s\n", "subreddits", subreddits)
		sort := string(st.SortMethod)
		if st.SortMethod == types.SortTop {
			sort += " (" + string(st.TopPeriod) + ")"
		}
		fmt.Fprintf(out, "%-12s %s\n", "sort", sort)
		fmt.Fprintf(out, "%-12s %d%%\n", "volume", st.Volume)

		updated, err := s.db.UpdatedAt(cmd.Context())
		switch {
		case err != nil:
			printError(cmd.ErrOrStderr(), err)
		case updated.IsZero():
			fmt.Fprintf(out, "%-12s %s\n", "saved", faintStyle.Render("never"))
		default:
			fmt.Fprintf(out, "%-12s %s\n", "saved", strings.TrimSpace(humanize.Time(updated)))
		}
		return nil
	},
}
