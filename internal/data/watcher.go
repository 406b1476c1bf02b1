package data

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher triggers a refresh when a local playlist source file changes.
type Watcher struct {
	paths    []string
	refresh  func(context.Context) error
	debounce time.Duration
	logger   *logrus.Logger
}

// NewWatcher creates a watcher for the local file entries among sources.
// URL sources are ignored.
func NewWatcher(sources []string, refresh func(context.Context) error, logger *logrus.Logger) *Watcher {
	var paths []string
	for _, src := range sources {
		if !strings.Contains(src, "://") {
			paths = append(paths, src)
		}
	}
	return &Watcher{
		paths:    paths,
		refresh:  refresh,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}
}

// HasTargets reports whether any source is a local file worth watching.
func (w *Watcher) HasTargets() bool {
	return len(w.paths) > 0
}

// Start watches the parent directories of the file sources and blocks until
// the context is cancelled. Editors often replace files instead of writing
// in place, so events are debounced before the refresh fires.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.paths) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	targets := make(map[string]bool, len(w.paths))
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	// Watch the parent directory so replace-style saves are still seen.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.logger.WithField("files", len(targets)).Info("Watching playlist files for changes")

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("File watcher shutting down")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.WithField("file", event.Name).Debug("Playlist file changed")
			debounce = time.After(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("File watcher error")
		case <-debounce:
			debounce = nil
			w.logger.Info("Playlist file changed, refreshing lineup")
			if err := w.refresh(ctx); err != nil {
				w.logger.WithError(err).Error("Refresh after file change failed")
			}
		}
	}
}
