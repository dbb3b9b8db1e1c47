package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

func init() {
	addListingFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Aliases: []string{"s"},
	Short:   "Search all of Reddit for playable songs",
	Example: "  redditmusic search boards of canada --sort top --period all",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := applySort(cmd, s); err != nil {
			return err
		}

		query := strings.Join(args, " ")
		songs, err := loadPages(cmd, s, func(ctx context.Context) ([]types.Song, error) {
			return s.fetch.Search(ctx, query)
		})
		if err != nil {
			return err
		}

		printSongs(cmd.OutOrStdout(), songs, -1)
		return nil
	},
}
