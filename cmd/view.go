package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/fioncat/vbrowse/browser"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/render"
	"github.com/fioncat/vbrowse/types"
	"github.com/spf13/cobra"
)

func View() *cobra.Command {
	var flags browserFlags

	cmd := &cobra.Command{
		Use:   "view PATH",
		Short: "Preview a file, folders are listed",

		Args: cobra.ExactArgs(1),
	}
	buildBrowserCommand(cmd, &flags, func(opts *BrowserOptions, args []string) error {
		ctx := context.Background()
		target := pathcodec.Normalize(args[0])

		var ent *types.Entry
		if target == "/" {
			ent = &types.Entry{Name: "/", Kind: types.KindFolder, Path: "/"}
		} else {
			var err error
			ent, err = lookupEntry(ctx, opts.Session, target)
			if err != nil {
				return err
			}
		}

		plan, err := opts.Resolver.Open(ctx, ent)
		if err != nil {
			return err
		}
		if plan.Navigated {
			snap := opts.Session.Snapshot()
			if snap.State == browser.StateErrored {
				return errors.New(snap.Err)
			}
			render.Listing(os.Stdout, snap, opts.Width)
			return nil
		}

		render.Preview(os.Stdout, plan)
		return nil
	})

	cmd.Flags().StringVarP(&flags.view, "view", "v", "", "The view mode used when PATH is a folder")

	return cmd
}

// lookupEntry finds the entry of target by listing its parent folder.
func lookupEntry(ctx context.Context, session *browser.Session, target string) (*types.Entry, error) {
	session.Navigate(ctx, path.Dir(target))
	snap := session.Snapshot()
	if snap.State == browser.StateErrored {
		return nil, errors.New(snap.Err)
	}

	ent, ok := session.Entry(target)
	if !ok {
		return nil, fmt.Errorf("could not find %q: %w", target, types.ErrNotFound)
	}
	return ent, nil
}
