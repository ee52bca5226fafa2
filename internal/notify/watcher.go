// Package notify lets other processes react to snapshot changes written
// by the MCP server, using filesystem notifications on the store file.
package notify

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of filesystem events a single
// atomic save produces (temp file create, writes, rename).
const defaultDebounce = 200 * time.Millisecond

// StoreWatcher watches the snapshot file and invokes a callback once per
// settled change.
type StoreWatcher struct {
	path     string
	dir      string
	callback func()
	debounce time.Duration
	logger   *log.Logger
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// WatcherOption configures a StoreWatcher.
type WatcherOption func(*StoreWatcher)

// WithDebounce overrides the settle window for change bursts.
func WithDebounce(d time.Duration) WatcherOption {
	return func(sw *StoreWatcher) {
		sw.debounce = d
	}
}

// WithWatcherLogger overrides the default stderr logger.
func WithWatcherLogger(logger *log.Logger) WatcherOption {
	return func(sw *StoreWatcher) {
		sw.logger = logger
	}
}

// NewStoreWatcher creates a watcher for the snapshot file at storePath.
// The callback runs on the watcher goroutine after each settled change.
func NewStoreWatcher(storePath string, callback func(), opts ...WatcherOption) *StoreWatcher {
	sw := &StoreWatcher{
		path:     filepath.Clean(storePath),
		dir:      filepath.Dir(storePath),
		callback: callback,
		debounce: defaultDebounce,
		logger:   log.New(os.Stderr, "notify: ", log.LstdFlags),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Start begins watching. The store is replaced by rename on every save,
// so the watch is registered on the parent directory rather than the
// file itself. Call Stop() to clean up.
func (sw *StoreWatcher) Start() error {
	if err := os.MkdirAll(sw.dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(sw.dir); err != nil {
		_ = w.Close()
		return err
	}
	sw.watcher = w

	go sw.loop()
	sw.logger.Printf("watching %s for snapshot changes", sw.path)
	return nil
}

// Stop shuts down the watcher. A pending callback may still fire while
// Stop is in flight; none fire after it returns.
func (sw *StoreWatcher) Stop() {
	if sw.watcher != nil {
		_ = sw.watcher.Close()
	}
	<-sw.done
}

func (sw *StoreWatcher) loop() {
	defer close(sw.done)

	var timer *time.Timer
	var settled <-chan time.Time
	for {
		select {
		case evt, ok := <-sw.watcher.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if !sw.matches(evt) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
				settled = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-settled:
					default:
					}
				}
				timer.Reset(sw.debounce)
			}

		case <-settled:
			timer = nil
			settled = nil
			if sw.callback != nil {
				sw.callback()
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			sw.logger.Printf("watcher error: %v", err)
		}
	}
}

// matches reports whether the event touches the store file. The rename
// that completes a save arrives as a Create for the destination path.
func (sw *StoreWatcher) matches(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != sw.path {
		return false
	}
	return evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
