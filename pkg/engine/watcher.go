package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/log"
)

// DriftWatcher watches the env file for writes the engine did not make.
// External modification between engine writes is a drift hazard: the next
// backup would snapshot state nobody validated. Detected drift is logged,
// not reverted.
type DriftWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  zerolog.Logger

	mu            sync.Mutex
	suppressUntil time.Time
}

// NewDriftWatcher watches the env file at path. The parent directory is
// watched rather than the file itself so that editors replacing the file
// by rename are still observed.
func NewDriftWatcher(path string) (*DriftWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &DriftWatcher{
		watcher: fw,
		path:    filepath.Clean(path),
		logger:  log.WithComponent("drift-watcher"),
	}, nil
}

// Suppress tells the watcher to ignore events for the next window. The
// engine calls this before its own writes.
func (w *DriftWatcher) Suppress(window time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suppressUntil = time.Now().Add(window)
}

func (w *DriftWatcher) suppressed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Now().Before(w.suppressUntil)
}

// Run consumes events until ctx is cancelled or the watcher is closed.
func (w *DriftWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.suppressed() {
				continue
			}
			w.logger.Warn().
				Str("file", w.path).
				Str("op", event.Op.String()).
				Msg("env file modified outside the engine")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("drift watcher error")
		}
	}
}

// Close stops the watcher.
func (w *DriftWatcher) Close() error {
	return w.watcher.Close()
}
