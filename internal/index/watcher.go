package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events on
// the registry file to settle before reloading.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is called once the watched file has settled after a change.
type ReloadFunc func() error

// Watch starts an fsnotify watcher on the directory holding file and calls
// reload after each settled change to it, until ctx is cancelled.
//
// The directory rather than the file is watched because atomic writes
// replace the file by rename, which would orphan a watch on the old inode.
// Events for other files in the directory are ignored.
func Watch(ctx context.Context, file string, debounce time.Duration, logger *slog.Logger, reload ReloadFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	dir, name := filepath.Dir(abs), filepath.Base(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("file", abs))

	// reloadTimer debounces bursts of write events.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			if err := reload(); err != nil {
				logger.Warn("watcher: reload failed", slog.String("file", abs), slog.String("error", err.Error()))
			} else {
				logger.Debug("watcher: reloaded", slog.String("file", abs))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				scheduleReload()

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The file is usually recreated right away by an atomic
				// writer; its Create event schedules the reload.
				logger.Debug("watcher: file moved away", slog.String("file", abs), slog.String("op", ev.Op.String()))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
