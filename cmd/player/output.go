package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/Alexander-D-Karpov/redditmusic/internal/media"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

const titleWidth = 60

var (
	accentColor = lipgloss.Color("#FDC00F")
	faintColor  = lipgloss.Color("8")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	currentStyle = cellStyle.Foreground(accentColor).Bold(true)
	faintStyle   = lipgloss.NewStyle().Foreground(faintColor)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// printSongs renders songs as a table. current marks the row of the playing
// song, -1 for none.
func printSongs(w io.Writer, songs []types.Song, current int) {
	if len(songs) == 0 {
		fmt.Fprintln(w, faintStyle.Render("No playable songs found."))
		return
	}

	rows := make([][]string, 0, len(songs))
	for i, song := range songs {
		rows = append(rows, []string{
			strconv.Itoa(i),
			media.PlatformName(song.Domain),
			truncate.StringWithTail(song.Title, titleWidth, "…"),
			"r/" + song.Subreddit,
			humanize.Comma(int64(song.Score)),
			song.CreatedAgo,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(faintStyle).
		Headers("#", "SOURCE", "TITLE", "SUBREDDIT", "SCORE", "POSTED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == current:
				return currentStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(w, t)
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("error: ")+err.Error())
}
