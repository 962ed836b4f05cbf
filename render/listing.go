// Package render draws navigation snapshots and preview plans on a
// terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/fioncat/vbrowse/breadcrumb"
	"github.com/fioncat/vbrowse/browser"
	"github.com/fioncat/vbrowse/classify"
	"github.com/fioncat/vbrowse/osutils"
	"github.com/fioncat/vbrowse/types"
	"github.com/mattn/go-runewidth"
)

const (
	DefaultWidth = 80

	EmptyIndicator = "(empty folder)"

	gridGap = 2
)

// Listing writes the breadcrumb, the entries of snap in its view mode and
// a stats footer. Loading and errored snapshots show a status line instead
// of entries.
func Listing(w io.Writer, snap browser.Snapshot, width int) {
	fmt.Fprintln(w, Breadcrumb(snap.Breadcrumb))

	switch snap.State {
	case browser.StateIdle:
		fmt.Fprintln(w, color.New(color.Faint).Sprint("Nothing loaded yet"))
		return

	case browser.StateLoading:
		fmt.Fprintf(w, "Loading %s ...\n", snap.Path)
		return

	case browser.StateErrored:
		fmt.Fprintf(w, "%s: %s\n", color.RedString("Error"), snap.Err)
		fmt.Fprintf(w, "Use %s to try again\n", color.CyanString("retry"))
		return
	}

	if len(snap.Entries) == 0 {
		fmt.Fprintln(w, color.New(color.Faint).Sprint(EmptyIndicator))
	} else if snap.View == browser.ViewList {
		listView(w, snap.Entries)
	} else {
		gridView(w, snap.Entries, width)
	}

	fmt.Fprintln(w, Stats(snap.Stats))
}

// Breadcrumb joins the trail labels, folders after the root are shown in
// blue.
func Breadcrumb(trail []breadcrumb.Item) string {
	labels := make([]string, len(trail))
	for i, item := range trail {
		if i == 0 {
			labels[i] = color.New(color.Bold).Sprint(item.Label)
			continue
		}
		labels[i] = color.BlueString(item.Label)
	}
	return strings.Join(labels, " / ")
}

func Stats(stats browser.Stats) string {
	return fmt.Sprintf("%d folders, %d files, %s",
		stats.Folders, stats.Files, humanize.IBytes(uint64(stats.Bytes)))
}

func entryLabel(ent *types.Entry) string {
	return classify.Glyph(classify.ClassifyEntry(ent)) + " " + ent.Name
}

func colorLabel(ent *types.Entry, label string) string {
	if ent.IsFolder() {
		return color.BlueString(label)
	}
	return label
}

func gridView(w io.Writer, ents []*types.Entry, width int) {
	if width <= 0 {
		width = DefaultWidth
	}

	labels := make([]string, len(ents))
	cellWidth := 0
	for i, ent := range ents {
		labels[i] = entryLabel(ent)
		if lw := runewidth.StringWidth(labels[i]); lw > cellWidth {
			cellWidth = lw
		}
	}
	cellWidth += gridGap

	columns := width / cellWidth
	if columns < 1 {
		columns = 1
	}

	for start := 0; start < len(ents); start += columns {
		end := start + columns
		if end > len(ents) {
			end = len(ents)
		}

		var line strings.Builder
		for i := start; i < end; i++ {
			cell := labels[i]
			if i < end-1 {
				cell = runewidth.FillRight(cell, cellWidth)
			}
			// Padding is computed before coloring, escape codes have no width
			line.WriteString(strings.Replace(cell, labels[i], colorLabel(ents[i], labels[i]), 1))
		}
		fmt.Fprintln(w, line.String())
	}
}

func listView(w io.Writer, ents []*types.Entry) {
	rows := make([][]string, len(ents))
	for i, ent := range ents {
		modified := ent.ModifiedAt
		if modified == "" {
			modified = "-"
		}
		rows[i] = []string{entryLabel(ent), ent.DisplaySize(), modified}
	}
	osutils.WriteTable(w, []string{"Name", "Size", "Modified"}, rows)
}

// Notifications writes pending messages, oldest first.
func Notifications(w io.Writer, items []browser.Notification) {
	for _, item := range items {
		var level string
		switch item.Level {
		case browser.LevelError:
			level = color.RedString("Error")
		case browser.LevelWarn:
			level = color.YellowString("Warn")
		default:
			level = color.GreenString("Info")
		}
		fmt.Fprintf(w, "%s: %s\n", level, item.Message)
	}
}
