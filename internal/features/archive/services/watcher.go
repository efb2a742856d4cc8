package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"chatarchive/internal/core"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 2 * time.Second

// BuildFunc runs one build
type BuildFunc func(ctx context.Context) (*BuildResult, error)

// Watcher rebuilds the site whenever the archive database changes. Builds
// run one at a time on the watcher goroutine.
type Watcher struct {
	path     string
	build    BuildFunc
	debounce time.Duration
	logger   *core.Logger

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	// OnBuild is called after every build attempt, if set
	OnBuild func(*BuildResult, error)
}

// NewWatcher creates a watcher for the database file at path
func NewWatcher(path string, build BuildFunc, debounce time.Duration, logger *core.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		build:    build,
		debounce: debounce,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start builds once and then watches the database directory
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.watcher = fw

	w.logger.Info("Watching archive for changes", "path", w.path, "debounce", w.debounce)

	w.wg.Add(1)
	go w.loop(ctx)

	return nil
}

// Stop stops watching and waits for a running build to finish
func (w *Watcher) Stop() {
	w.logger.Info("Stopping watcher")
	close(w.stopChan)
	w.wg.Wait()
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// Wait blocks until the watch loop exits
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// relevant reports whether a change to name can alter the archive. SQLite
// commits land in the -wal or -journal side file first.
func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(w.path)
	switch filepath.Base(name) {
	case base, base + "-wal", base + "-journal":
		return true
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	w.runBuild(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("Watcher stop signal received")
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("Archive changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)
		case <-timer.C:
			w.runBuild(ctx)
		}
	}
}

func (w *Watcher) runBuild(ctx context.Context) {
	result, err := w.build(ctx)
	switch {
	case errors.Is(err, ErrNoData):
		w.logger.Info("No data to publish yet")
	case err != nil:
		w.logger.Error("Build failed", "error", err)
	default:
		w.logger.Info("Rebuilt site", "build_id", result.ID, "pages", result.Pages, "skipped", result.Skipped)
	}
	if w.OnBuild != nil {
		w.OnBuild(result, err)
	}
}
