//go:build !darwin

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

func TestWatcherEmitsCreatedForRootChild(t *testing.T) {
	dir := t.TempDir()

	w, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := w.WatchFolder(dir, domain.FolderID("folder-1")); err != nil {
		t.Fatalf("WatchFolder failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(testFile, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Kind != Created {
			t.Errorf("expected Created, got %v", ev.Kind)
		}
		if ev.FolderID != domain.FolderID("folder-1") {
			t.Errorf("expected folder-1, got %v", ev.FolderID)
		}
		if ev.Path != testFile {
			t.Errorf("expected path %s, got %s", testFile, ev.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestWatcherIgnoresSubdirectoryEvents(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "sub")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	w, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := w.WatchFolder(dir, domain.FolderID("folder-1")); err != nil {
		t.Fatalf("WatchFolder failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// A file created inside a subdirectory of the watched root must not
	// be emitted: the scoping rule only covers direct children (§4.1).
	nested := filepath.Join(subDir, "nested.txt")
	if err := os.WriteFile(nested, []byte("nested"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event for nested file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
		// expected: no event
	}
}

func TestWatcherAppliesIgnorePatterns(t *testing.T) {
	dir := t.TempDir()

	w, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := w.SetIgnorePatterns([]string{filepath.Join(dir, "*.tmp")}); err != nil {
		t.Fatalf("SetIgnorePatterns failed: %v", err)
	}
	if err := w.WatchFolder(dir, domain.FolderID("folder-1")); err != nil {
		t.Fatalf("WatchFolder failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	ignored := filepath.Join(dir, "ignored.tmp")
	if err := os.WriteFile(ignored, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		t.Errorf("unexpected event for ignored file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
		// expected: no event
	}
}

func TestWatcherUnwatchIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	w, err := New(nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Close()

	if err := w.WatchFolder(dir, domain.FolderID("folder-1")); err != nil {
		t.Fatalf("WatchFolder failed: %v", err)
	}
	if err := w.UnwatchFolder(dir); err != nil {
		t.Fatalf("first UnwatchFolder failed: %v", err)
	}
	if err := w.UnwatchFolder(dir); err != nil {
		t.Fatalf("second UnwatchFolder should also succeed, got: %v", err)
	}
}
