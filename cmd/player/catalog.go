package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Alexander-D-Karpov/redditmusic/internal/search"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:     "catalog [query]",
	Aliases: []string{"subs"},
	Short:   "Show the subreddit catalog, or find subreddits in it",
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := search.LoadCatalog(cfg.Search.CatalogPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			engine := search.NewEngine(cfg, catalog)
			found := engine.FindSubreddits(strings.Join(args, " "))
			if len(found) == 0 {
				fmt.Fprintln(out, faintStyle.Render("No matching subreddits."))
				return nil
			}
			for _, sub := range found {
				fmt.Fprintf(out, "%s %s\n", headerStyle.Render("/r/"+sub.Key), faintStyle.Render(sub.Category))
			}
			return nil
		}

		for _, group := range catalog.Groups() {
			fmt.Fprintln(out, headerStyle.Render(group.Category))
			for _, sub := range group.Subreddits {
				line := "  /r/" + sub.Key
				if sub.Subscribers > 0 {
					line += faintStyle.Render(fmt.Sprintf("  %s subscribers", humanize.Comma(int64(sub.Subscribers))))
				}
				fmt.Fprintln(out, line)
			}
		}
		return nil
	},
}
