// Package config handles configuration parsing and playlist hot reloading.
package config

import (
	"time"

	"github.com/fsnotify/fsnotify"

	"streamgate/internal/logger"
)

// PlaylistWatcher watches the playlist file for changes and notifies a
// callback, debounced, so a reload happens once per editor save or atomic
// replace rather than once per write syscall.
type PlaylistWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	stopCh   chan struct{}
}

// NewPlaylistWatcher creates a PlaylistWatcher for the given playlist path.
// onChange runs on the watcher goroutine after each debounced change.
func NewPlaylistWatcher(path string, onChange func()) (*PlaylistWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PlaylistWatcher{
		path:     path,
		watcher:  watcher,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the playlist file for changes.
func (w *PlaylistWatcher) Start() error {
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}

	go w.watchLoop()
	logger.Info("playlist_watcher_started", "path", w.path)
	return nil
}

// Stop stops the playlist watcher.
func (w *PlaylistWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	logger.Info("playlist_watcher_stopped")
}

// watchLoop watches for file changes with debouncing.
func (w *PlaylistWatcher) watchLoop() {
	var debounceTimer *time.Timer
	debounceDuration := 250 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only react to write and create events. Create covers tools
			// that replace the playlist atomically via rename.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					logger.Info("playlist_changed", "path", w.path)
					w.onChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("playlist_watcher_error", "error", err)

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
