package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/otero-labs/contentcache/internal/cachelog"
)

// Watcher hot-reloads a configuration file and notifies registered
// callbacks when the parsed configuration actually changes, debouncing
// rapid successive writes from editors/deploy tooling.
type Watcher struct {
	path      string
	mu        sync.RWMutex
	current   Config
	callbacks []func(Config)
	log       *cachelog.Logger
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a Watcher seeded with initial, and starts watching
// path for changes. If the underlying file watcher cannot be created, the
// returned Watcher simply never reloads — configuration hot-reload is a
// convenience, not a requirement for correct operation.
func NewWatcher(path string, initial Config) *Watcher {
	w := &Watcher{
		path:    path,
		current: initial,
		log:     cachelog.New("config"),
		stopCh:  make(chan struct{}),
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("config hot-reload disabled: failed to create file watcher", cachelog.Fields{"error": err.Error()})
		return w
	}
	if err := fsW.Add(path); err != nil {
		w.log.Warn("config hot-reload disabled: failed to watch config file", cachelog.Fields{"path": path, "error": err.Error()})
		fsW.Close()
		return w
	}
	w.fsWatcher = fsW

	go w.watchLoop()
	return w
}

func (w *Watcher) watchLoop() {
	defer w.fsWatcher.Close()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, w.reload)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config file watcher error", cachelog.Fields{"error": err.Error()})

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload skipped: invalid configuration", cachelog.Fields{"error": err.Error()})
		return
	}

	w.mu.Lock()
	if next == w.current {
		w.mu.Unlock()
		return
	}
	w.current = next
	w.mu.Unlock()

	w.log.Emit("", cachelog.Fields{"message": "configuration reloaded"})

	w.mu.RLock()
	callbacks := make([]func(Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()
	for _, cb := range callbacks {
		cb(next)
	}
}

// OnChange registers a callback invoked with the new configuration after a
// successful reload.
func (w *Watcher) OnChange(cb func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop stops the underlying file watcher goroutine.
func (w *Watcher) Stop() {
	close(w.stopCh)
}
