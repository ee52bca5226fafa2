package notify

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage/jsonl"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

var quiet = log.New(io.Discard, "", 0)

func saveSnapshot(t *testing.T, path string) {
	t.Helper()
	if err := jsonl.New(path).Save(context.Background(), types.NewKnowledgeGraph()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
}

func TestStoreWatcherFiresOnSave(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "memory.jsonl")

	changed := make(chan struct{}, 1)
	watcher := NewStoreWatcher(storePath, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithDebounce(50*time.Millisecond), WithWatcherLogger(quiet))

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// Give fsnotify a moment to register
	time.Sleep(50 * time.Millisecond)

	saveSnapshot(t, storePath)

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}
}

func TestStoreWatcherCoalescesBursts(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "memory.jsonl")

	changed := make(chan struct{}, 16)
	watcher := NewStoreWatcher(storePath, func() {
		changed <- struct{}{}
	}, WithDebounce(200*time.Millisecond), WithWatcherLogger(quiet))

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(50 * time.Millisecond)

	// Three rapid saves must settle into a single notification
	for i := 0; i < 3; i++ {
		saveSnapshot(t, storePath)
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(700 * time.Millisecond)
	if got := len(changed); got != 1 {
		t.Errorf("expected 1 coalesced notification, got %d", got)
	}

	// A later save fires again
	saveSnapshot(t, storePath)
	time.Sleep(700 * time.Millisecond)
	if got := len(changed); got != 2 {
		t.Errorf("expected a second notification, got %d total", got)
	}
}

func TestStoreWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "memory.jsonl")

	changed := make(chan struct{}, 16)
	watcher := NewStoreWatcher(storePath, func() {
		changed <- struct{}{}
	}, WithDebounce(50*time.Millisecond), WithWatcherLogger(quiet))

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := len(changed); got != 0 {
		t.Errorf("expected no notifications for sibling files, got %d", got)
	}
}

func TestStoreWatcherStopBeforeAnyEvent(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "memory.jsonl")

	watcher := NewStoreWatcher(storePath, func() {}, WithWatcherLogger(quiet))
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	watcher.Stop()
}
