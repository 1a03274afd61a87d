//go:build !darwin

// Grounded on internal/trigger/filesystem.go: a single fsnotify.Watcher
// shared across watch roots, a per-path debounce timer map, and ignore
// patterns matched against the event's basename/path.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/fsnotify/fsnotify"
)

// fsnotifyWatcher is the Linux/Windows/BSD Watcher backend.
type fsnotifyWatcher struct {
	watcher *fsnotify.Watcher
	ignore  *ignoreSet
	events  chan FileEvent
	logger  *slog.Logger

	mu      sync.Mutex
	roots   map[string]domain.FolderID // cleaned path -> folder id
	pollers map[string]*poller         // polling fallback, keyed by root
	done    chan struct{}
}

// New creates the platform Watcher backend, grounded on the teacher's
// fsnotify-based filesystem trigger.
func New(logger *slog.Logger) (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	fw := &fsnotifyWatcher{
		watcher: w,
		ignore:  newIgnoreSet(),
		events:  make(chan FileEvent, 256),
		logger:  logger,
		roots:   map[string]domain.FolderID{},
		pollers: map[string]*poller{},
		done:    make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

func (w *fsnotifyWatcher) Events() <-chan FileEvent {
	return w.events
}

func (w *fsnotifyWatcher) WatchFolder(path string, folderID domain.FolderID) error {
	clean := filepath.Clean(path)

	w.mu.Lock()
	if _, ok := w.roots[clean]; ok {
		w.mu.Unlock()
		return nil // idempotent
	}
	w.roots[clean] = folderID
	w.mu.Unlock()

	if err := w.watcher.Add(clean); err != nil {
		// §4.1: fall back to polling when native change-notification is
		// unavailable (permission-denied mounts, network filesystems).
		w.logger.Warn("native watch failed, falling back to polling",
			"path", clean, "error", err)
		p := newPoller(clean, folderID, w.ignore, w.events)
		w.mu.Lock()
		w.pollers[clean] = p
		w.mu.Unlock()
		go p.run()
		return nil
	}
	return nil
}

func (w *fsnotifyWatcher) UnwatchFolder(path string) error {
	clean := filepath.Clean(path)

	w.mu.Lock()
	delete(w.roots, clean)
	p, polled := w.pollers[clean]
	delete(w.pollers, clean)
	w.mu.Unlock()

	if polled {
		p.Stop()
		return nil
	}
	// Idempotent: removing a path fsnotify never watched is not an error.
	_ = w.watcher.Remove(clean)
	return nil
}

func (w *fsnotifyWatcher) SetIgnorePatterns(patterns []string) error {
	w.ignore.replace(patterns)
	return nil
}

func (w *fsnotifyWatcher) Close() error {
	close(w.done)
	w.mu.Lock()
	for _, p := range w.pollers {
		p.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *fsnotifyWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *fsnotifyWatcher) handle(ev fsnotify.Event) {
	var kind EventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = Created
	case ev.Op&fsnotify.Write != 0:
		kind = Modified
	case ev.Op&fsnotify.Rename != 0:
		kind = Renamed
	case ev.Op&fsnotify.Remove != 0:
		kind = Deleted
	default:
		return
	}

	// Directories never produce file events; the scoping rule (§4.1) only
	// concerns files whose immediate parent is a watched root, and a
	// watched root is never its own parent.
	if kind != Deleted && kind != Renamed {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			return
		}
	}

	// Scoping rule: only events whose immediate parent directory equals a
	// watched root are emitted.
	parent := filepath.Clean(filepath.Dir(ev.Name))
	w.mu.Lock()
	folderID, ok := w.roots[parent]
	w.mu.Unlock()
	if !ok {
		return
	}

	if w.ignore.matches(ev.Name) {
		return
	}

	select {
	case w.events <- FileEvent{Path: ev.Name, FolderID: folderID, Kind: kind, Timestamp: time.Now()}:
	default:
		w.logger.Warn("event channel full, dropping event", "path", ev.Name)
	}
}
