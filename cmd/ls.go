package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/fioncat/vbrowse/browser"
	"github.com/fioncat/vbrowse/render"
	"github.com/spf13/cobra"
)

func Ls() *cobra.Command {
	var flags browserFlags
	var filter string

	cmd := &cobra.Command{
		Use:   "ls [PATH] [--view grid|list] [--filter GLOB]",
		Short: "List a folder of the source",

		Args: cobra.MaximumNArgs(1),
	}
	buildBrowserCommand(cmd, &flags, func(opts *BrowserOptions, args []string) error {
		path := "/"
		if len(args) > 0 {
			path = args[0]
		}

		opts.Session.Navigate(context.Background(), path)
		snap := opts.Session.Snapshot()
		if snap.State == browser.StateErrored {
			return errors.New(snap.Err)
		}

		if filter != "" {
			ents, err := browser.FilterEntries(snap.Entries, filter)
			if err != nil {
				return err
			}
			snap.Entries = ents
			snap.Stats = browser.ComputeStats(ents)
		}

		render.Listing(os.Stdout, snap, opts.Width)
		return nil
	})

	cmd.Flags().StringVarP(&flags.view, "view", "v", "", "The view mode, grid or list")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show entries whose name matches the glob")

	return cmd
}
