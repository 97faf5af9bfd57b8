// Package watch keeps the catalog in sync with the source folder by
// turning filesystem events into forced refreshes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
)

// DefaultDebounce coalesces bursts of events (a download writing in
// chunks, a batch copy) into one refresh.
const DefaultDebounce = 500 * time.Millisecond

// DefaultRetry paces the attempts to install a watch on a folder that
// does not exist yet.
const DefaultRetry = 2 * time.Second

// Watcher observes one folder and calls onChange after activity settles.
type Watcher struct {
	folder   string
	debounce time.Duration
	retry    time.Duration
	onChange func(ctx context.Context)
	logger   *slog.Logger
}

func New(folder string, debounce time.Duration, onChange func(ctx context.Context), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		folder:   folder,
		debounce: debounce,
		retry:    DefaultRetry,
		onChange: onChange,
		logger:   logging.Default(logger).With("component", "watch"),
	}
}

// Run watches until ctx is canceled. A folder that is missing at start
// is waited for, not fatal: once it appears, onChange fires so the
// catalog gets built from it.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.folder); err != nil {
		w.logger.Warn("folder not watchable yet, waiting for it", "folder", w.folder, "error", err)
		if ok := w.waitForFolder(ctx, fw); !ok {
			return nil
		}
		w.onChange(ctx)
	}
	w.logger.Info("watching source folder", "folder", w.folder)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("folder changed", "event", ev.Op.String(), "name", ev.Name)
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			pending = false
			w.onChange(ctx)
		}
	}
}

// waitForFolder retries the watch until it installs or ctx is canceled;
// ok is false on cancellation.
func (w *Watcher) waitForFolder(ctx context.Context, fw *fsnotify.Watcher) bool {
	ticker := time.NewTicker(w.retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if err := fw.Add(w.folder); err == nil {
				return true
			}
		}
	}
}
