package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fioncat/vbrowse/browser"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/preview"
	"github.com/fioncat/vbrowse/provider"
	"github.com/fioncat/vbrowse/render"
	"github.com/fioncat/vbrowse/storage"
	"github.com/fioncat/vbrowse/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type browserFlags struct {
	source string
	view   string
	debug  bool
}

type BrowserOptions struct {
	Config *types.Config

	Source *types.Source

	// Backend is the source backend, Provider is what the session lists
	// from; they differ when the listing cache is enabled.
	Backend  types.Backend
	Provider types.Backend

	Codec *pathcodec.Codec

	Session  *browser.Session
	Resolver *preview.Resolver

	Width int
}

func addBrowserFlags(cmd *cobra.Command, flags *browserFlags) {
	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&flags.source, "source", "s", "", "The source to browse, default is the config source")
	pflags.BoolVarP(&flags.debug, "debug", "", false, "Set log level to debug")
}

func buildBrowserCommand(cmd *cobra.Command, flags *browserFlags, action func(opts *BrowserOptions, args []string) error) {
	addBrowserFlags(cmd, flags)
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		if flags.debug {
			logrus.SetLevel(logrus.DebugLevel)
		}

		cfg, err := types.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logrus.Debugf("The config value is: %+v", cfg)

		rawSource := flags.source
		if rawSource == "" {
			rawSource = cfg.Source
		}
		src, err := types.ParseSource(rawSource)
		if err != nil {
			return fmt.Errorf("parse source: %w", err)
		}

		backend, err := provider.Load(src, cfg)
		if err != nil {
			return fmt.Errorf("load provider: %w", err)
		}

		listProvider := backend
		if cfg.Cache.Enable {
			cache, err := storage.OpenBolt(cfg)
			if err != nil {
				return fmt.Errorf("open listing cache: %w", err)
			}
			defer cache.Close()
			listProvider = provider.NewCached(backend, cache, src.String(), cfg.Cache.TTL)
		}
		err = checkSource(context.Background(), listProvider)
		if err != nil {
			return fmt.Errorf("check source: %w", err)
		}

		viewName := flags.view
		if viewName == "" {
			viewName = cfg.DefaultView
		}
		view, err := browser.ParseView(viewName)
		if err != nil {
			return err
		}

		codec := pathcodec.New(cfg.AccessRoot)
		session := browser.New(listProvider, browser.WithView(view))
		content := provider.LoadContent(src, backend, cfg)
		resolver := preview.NewResolver(session, content, codec,
			preview.WithCandidateTimeout(cfg.CandidateTimeout),
			preview.WithMaxTextBytes(cfg.Preview.MaxTextBytes),
			preview.WithMarkdown(*cfg.Preview.RenderMarkdown),
		)
		logrus.Debugf("Browse source %s", src)

		opts := &BrowserOptions{
			Config:   cfg,
			Source:   src,
			Backend:  backend,
			Provider: listProvider,
			Codec:    codec,
			Session:  session,
			Resolver: resolver,
			Width:    terminalWidth(),
		}
		return action(opts, args)
	}
}

// checkSource runs the source check through the provider the session lists
// from. Wrappers such as the listing cache pass it on to their backend.
func checkSource(ctx context.Context, prov types.Backend) error {
	checker, ok := prov.(provider.Checker)
	if !ok {
		return nil
	}
	return checker.Check(ctx)
}

func terminalWidth() int {
	return resolveWidth(func() (int, error) {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		return width, err
	}, os.Getenv("COLUMNS"))
}

// resolveWidth prefers the width reported by the terminal. COLUMNS is only
// consulted when stdout is not a terminal, such as in a pipe.
func resolveWidth(getSize func() (int, error), columns string) int {
	width, err := getSize()
	if err == nil && width > 0 {
		return width
	}
	width, err = strconv.Atoi(columns)
	if err == nil && width > 0 {
		return width
	}
	return render.DefaultWidth
}
