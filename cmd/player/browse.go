package main

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/Alexander-D-Karpov/redditmusic/internal/search"
	"github.com/Alexander-D-Karpov/redditmusic/internal/services"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func init() {
	addListingFlags(browseCmd)
	rootCmd.AddCommand(browseCmd)
}

func addListingFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("sort", "s", "", "Sort order: hot, new or top")
	cmd.Flags().StringP("period", "p", "", "Period for top: day, week, month, year or all")
	cmd.Flags().IntP("pages", "n", 1, "Number of pages to load")
	cmd.Flags().StringP("filter", "f", "", "Only show songs matching this text")

	lo.Must0(cmd.RegisterFlagCompletionFunc("sort", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.SortHot), string(types.SortNew), string(types.SortTop)}, cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(cmd.RegisterFlagCompletionFunc("period", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(types.PeriodDay), string(types.PeriodWeek), string(types.PeriodMonth), string(types.PeriodYear), string(types.PeriodAll)}, cobra.ShellCompDirectiveNoFileComp
	}))
}

var browseCmd = &cobra.Command{
	Use:     "browse [/r/sub1+sub2]",
	Aliases: []string{"b", "ls"},
	Short:   "List playable songs from subreddits",
	Long:    "List playable songs from subreddits. Without an argument the saved selection is used.",
	Example: "  redditmusic browse /r/listentothis+jazz --sort top --period month",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := applySort(cmd, s); err != nil {
			return err
		}

		var subreddits []string
		if len(args) == 1 {
			subreddits = services.ParseSubredditPath(args[0])
			if len(subreddits) == 0 {
				return fmt.Errorf("%w: %q", types.ErrInvalidSubreddit, args[0])
			}
		}

		songs, err := loadPages(cmd, s, func(ctx context.Context) ([]types.Song, error) {
			if subreddits != nil {
				return s.fetch.SelectSubreddits(ctx, subreddits)
			}
			return s.fetch.Refresh(ctx)
		})
		if err != nil {
			return err
		}

		printSongs(cmd.OutOrStdout(), songs, -1)
		return nil
	},
}

// applySort copies --sort and --period into the store. Invalid values are
// rejected here rather than silently ignored by the store.
func applySort(cmd *cobra.Command, s *session) error {
	if sort, _ := cmd.Flags().GetString("sort"); sort != "" {
		method := types.SortMethod(sort)
		if !method.Valid() {
			return fmt.Errorf("unknown sort %q", sort)
		}
		s.store.SetSortMethod(method)
	}
	if period, _ := cmd.Flags().GetString("period"); period != "" {
		p := types.TopPeriod(period)
		if !p.Valid() {
			return fmt.Errorf("unknown period %q", period)
		}
		s.store.SetTopPeriod(p)
	}
	return nil
}

// loadPages runs first, then follows the cursor for --pages, and returns the
// store's playlist narrowed by --filter.
func loadPages(cmd *cobra.Command, s *session, first func(context.Context) ([]types.Song, error)) ([]types.Song, error) {
	ctx := cmd.Context()

	if _, err := first(ctx); err != nil {
		return nil, err
	}

	pages, _ := cmd.Flags().GetInt("pages")
	for i := 1; i < pages; i++ {
		if s.store.Snapshot().After == nil {
			break
		}
		if _, err := s.fetch.LoadMore(ctx); err != nil {
			return nil, err
		}
	}

	songs := s.store.Snapshot().Songs
	if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
		songs = search.FilterSongs(songs, filter)
	}
	return songs, nil
}
