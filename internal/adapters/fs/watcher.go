package fs

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mbtools/modpoll/internal/ports"
)

// debounceDelay coalesces the burst of events an editor or atomic rename
// produces into one reload.
const debounceDelay = 100 * time.Millisecond

// Watcher monitors one file for external edits via fsnotify and invokes the
// callback after changes settle.
type Watcher struct {
	path     string
	onChange func()
	logger   ports.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for path. onChange runs on the watcher
// goroutine after each settled change.
func NewWatcher(path string, onChange func(), logger ports.Logger) *Watcher {
	return &Watcher{path: path, onChange: onChange, logger: logger}
}

// Run watches the file's directory until ctx is canceled. Watching the
// directory instead of the file keeps the watch alive across atomic
// rename-style saves.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(w.path)

	w.logger.Debug("watching for edits", ports.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			w.stopDebounce()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", ports.Err(err))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.onChange)
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
