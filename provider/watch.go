package provider

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch reports changes of the local folder dir, given as a logical path
// below root, by calling fn with the logical path of the changed folder.
// It blocks until ctx is done.
func Watch(ctx context.Context, root, dir string, fn func(dir string)) error {
	dir = pathcodec.Normalize(dir)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	osDir := filepath.Join(root, filepath.FromSlash(dir))
	err = watcher.Add(osDir)
	if err != nil {
		return fmt.Errorf("watch %q: %w", osDir, convertOSError(err))
	}

	logger := logrus.WithFields(logrus.Fields{
		"Component": "watch",
		"Path":      dir,
	})
	logger.Debug("Begin to watch local folder")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			changed := logicalDir(root, event.Name)
			logger.Debugf("Folder changed: %s", event)
			fn(changed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Watch error: %v", err)
		}
	}
}

// logicalDir maps the os path of a changed file to the logical path of its
// folder.
func logicalDir(root, name string) string {
	rel, err := filepath.Rel(root, filepath.Dir(name))
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/"
	}
	return pathcodec.Normalize(path.Clean(filepath.ToSlash(rel)))
}
