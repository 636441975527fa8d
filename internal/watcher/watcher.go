// Package watcher reloads the snapshot file when it changes on disk.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last write before reloading
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func(ctx context.Context)
	debounce time.Duration
	log      *zap.Logger
	ready    chan struct{}
}

// New creates a new file watcher
func New(path string, onChange func(ctx context.Context), log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      log,
		ready:    make(chan struct{}),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Ready is closed once the watch is registered
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Watch starts watching the file for changes. onChange runs on the calling
// goroutine once writes have been quiet for the debounce period. It blocks
// until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file
	// This handles cases where the file is replaced (e.g., by editors)
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}
	close(w.ready)

	w.log.Info("watching snapshot file", zap.String("path", w.path))

	// Stop and Reset never leave a stale value in C since Go 1.23.
	debounce := time.NewTimer(w.debounce)
	debounce.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				debounce.Reset(w.debounce)
			}

		case <-debounce.C:
			w.log.Info("snapshot file changed", zap.String("path", w.path))
			w.onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			debounce.Stop()
			return ctx.Err()
		}
	}
}
