package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlaylistWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "channels.m3u")
	if err := os.WriteFile(path, []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewPlaylistWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("starting watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("#EXTM3U\n#EXTINF:-1,A\nhttp://x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification within debounce window")
	}
}

func TestPlaylistWatcher_StartMissingFile(t *testing.T) {
	w, err := NewPlaylistWatcher("/nonexistent/playlist.m3u", func() {})
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	defer w.watcher.Close()

	if err := w.Start(); err == nil {
		t.Error("expected error watching a missing file")
	}
}
