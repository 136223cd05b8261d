package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the corpus when local export files change, so a running
// service picks up a refreshed export without a restart. Reloads are
// debounced because exporters write files in several chunks.
type Watcher struct {
	loader   *FileLoader
	store    *Store
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher that republishes snapshots into store when
// files matching the loader's glob change.
func NewWatcher(loader *FileLoader, store *Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		loader:   loader,
		store:    store,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
}

// Run watches until ctx is cancelled. The watch is on the glob's base
// directory; events are filtered against the glob itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	dir := baseDir(w.loader.Glob)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching corpus directory", "dir", dir, "glob", w.loader.Glob)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			match, err := matchGlob(w.loader.Glob, event.Name)
			if err != nil || !match {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			snap, err := w.loader.Load()
			if err != nil {
				w.logger.Warn("corpus reload failed, keeping current snapshot", "error", err)
				continue
			}
			w.store.Swap(snap)
		}
	}
}

// baseDir returns the fixed directory prefix of a glob pattern.
func baseDir(pattern string) string {
	base, _ := doublestarSplit(pattern)
	if base == "" {
		return "."
	}
	return base
}

// doublestarSplit splits a pattern at its first meta character.
func doublestarSplit(pattern string) (string, string) {
	i := 0
	for ; i < len(pattern); i++ {
		if c := pattern[i]; c == '*' || c == '?' || c == '[' || c == '{' {
			break
		}
	}
	if i == len(pattern) {
		// No meta characters: pattern is a literal path.
		return filepath.Dir(pattern), filepath.Base(pattern)
	}
	base := filepath.Dir(pattern[:i])
	return base, pattern[len(base):]
}

func matchGlob(pattern, path string) (bool, error) {
	if pattern == path {
		return true, nil
	}
	return doublestar.Match(filepath.Base(pattern), filepath.Base(path))
}
