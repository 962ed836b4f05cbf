package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/fioncat/vbrowse/browser"
	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/provider"
	"github.com/fioncat/vbrowse/render"
	"github.com/fioncat/vbrowse/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  cd PATH          Enter a folder, relative to the current one
  ls [GLOB]        Show the current folder, optionally filtered
  open NAME        Preview a file or enter a folder
  view grid|list   Switch the view mode
  refresh          Reload the current folder
  retry            Reload after a failed load
  back             Go to the parent folder
  close            Dismiss the current preview
  help             Show this message
  quit             Exit the shell`

func Shell() *cobra.Command {
	var flags browserFlags
	var watch bool

	cmd := &cobra.Command{
		Use:   "shell [PATH] [--watch]",
		Short: "Browse the source interactively",

		Args: cobra.MaximumNArgs(1),
	}
	buildBrowserCommand(cmd, &flags, func(opts *BrowserOptions, args []string) error {
		start := "/"
		if len(args) > 0 {
			start = args[0]
		}

		sh := &shell{
			opts: opts,
			out:  os.Stdout,
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if watch {
			local, ok := opts.Backend.(*provider.Local)
			if !ok {
				return fmt.Errorf("watch is only supported for local sources, current is %s", opts.Source.Kind)
			}
			sh.watcher = &folderWatcher{root: local.Root(), session: opts.Session}
			defer sh.watcher.stop()
		}

		opts.Session.OnRender(sh.onRender)
		opts.Session.Navigate(ctx, start)

		return sh.run(ctx, os.Stdin)
	})

	cmd.Flags().StringVarP(&flags.view, "view", "v", "", "The initial view mode, grid or list")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Refresh automatically when a local folder changes")

	return cmd
}

type shell struct {
	opts *BrowserOptions

	mu  sync.Mutex
	out io.Writer

	watcher *folderWatcher
}

func (sh *shell) onRender(ev browser.Event, snap browser.Snapshot) {
	if ev == browser.EventLoading {
		return
	}
	if ev == browser.EventLoaded && sh.watcher != nil {
		sh.watcher.retarget(snap.Path)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	render.Listing(sh.out, snap, sh.opts.Width)
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		sh.printf("%s> ", color.CyanString(sh.opts.Session.CurrentPath()))
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		name, arg := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		if name == "quit" || name == "exit" {
			return nil
		}
		err := sh.exec(ctx, name, arg)
		if err != nil {
			sh.printf("%s: %v\n", color.RedString("Error"), err)
		}

		sh.mu.Lock()
		render.Notifications(sh.out, sh.opts.Session.Notifications().Drain())
		sh.mu.Unlock()
	}
	return scanner.Err()
}

func (sh *shell) exec(ctx context.Context, name, arg string) error {
	session := sh.opts.Session
	switch name {
	case "cd":
		if arg == "" {
			arg = "/"
		}
		if !session.Navigate(ctx, sh.resolve(arg)) {
			return errors.New("another folder is still loading")
		}

	case "ls":
		snap := session.Snapshot()
		if arg != "" {
			ents, err := browser.FilterEntries(snap.Entries, arg)
			if err != nil {
				return err
			}
			snap.Entries = ents
			snap.Stats = browser.ComputeStats(ents)
		}
		sh.mu.Lock()
		render.Listing(sh.out, snap, sh.opts.Width)
		sh.mu.Unlock()

	case "open":
		if arg == "" {
			return errors.New("usage: open NAME")
		}
		target := sh.resolve(arg)
		ent, ok := session.Entry(target)
		if !ok {
			return fmt.Errorf("no entry %q in the current folder: %w", target, types.ErrNotFound)
		}
		plan, err := sh.opts.Resolver.Open(ctx, ent)
		if err != nil {
			return err
		}
		sh.mu.Lock()
		render.Preview(sh.out, plan)
		sh.mu.Unlock()

	case "view":
		view, err := browser.ParseView(arg)
		if err != nil {
			return err
		}
		return session.SwitchView(view)

	case "refresh":
		session.Refresh(ctx)

	case "retry":
		return session.Retry(ctx)

	case "back":
		session.Back(ctx)

	case "close":
		sh.opts.Resolver.Close()

	case "help":
		sh.printf("%s\n", shellHelp)

	default:
		return fmt.Errorf("unknown command %q, use help to show commands", name)
	}
	return nil
}

// resolve turns a shell argument into a logical path. Absolute paths are
// taken as is, others are relative to the current folder.
func (sh *shell) resolve(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return pathcodec.Normalize(arg)
	}
	return pathcodec.Normalize(path.Join(sh.opts.Session.CurrentPath(), arg))
}

// folderWatcher keeps one fsnotify watch on the folder currently shown and
// refreshes the session when it changes.
type folderWatcher struct {
	root    string
	session *browser.Session

	mu     sync.Mutex
	dir    string
	cancel context.CancelFunc
}

func (w *folderWatcher) retarget(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir == dir && w.cancel != nil {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.dir, w.cancel = dir, cancel
	go func() {
		err := provider.Watch(ctx, w.root, dir, func(changed string) {
			if changed != w.session.CurrentPath() {
				return
			}
			w.session.Notifications().Push(browser.LevelInfo, fmt.Sprintf("%s changed, refreshed", changed))
			w.session.Refresh(ctx)
		})
		if err != nil {
			logrus.Warnf("Watch %q error: %v", dir, err)
		}
	}()
}

func (w *folderWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
