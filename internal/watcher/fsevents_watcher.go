//go:build darwin

// Grounded on internal/trigger/filesystem_darwin.go: FSEvents watches path
// strings rather than file descriptors (so it survives volume unmount and
// non-existent paths), and is recursive by construction — the scoping
// rule is therefore enforced in isWatchedPath rather than at Add time.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/fsnotify/fsevents"
)

type fsEventsWatcher struct {
	ignore *ignoreSet
	events chan FileEvent
	logger *slog.Logger

	mu      sync.Mutex
	roots   map[string]domain.FolderID // cleaned path -> folder id
	streams map[string]*fsevents.EventStream
	done    chan struct{}
}

// New creates the macOS Watcher backend, grounded on the teacher's
// FSEvents-based filesystem trigger.
func New(logger *slog.Logger) (Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &fsEventsWatcher{
		ignore:  newIgnoreSet(),
		events:  make(chan FileEvent, 256),
		logger:  logger,
		roots:   map[string]domain.FolderID{},
		streams: map[string]*fsevents.EventStream{},
		done:    make(chan struct{}),
	}, nil
}

func (w *fsEventsWatcher) Events() <-chan FileEvent {
	return w.events
}

func (w *fsEventsWatcher) WatchFolder(path string, folderID domain.FolderID) error {
	clean := filepath.Clean(path)

	w.mu.Lock()
	if _, ok := w.roots[clean]; ok {
		w.mu.Unlock()
		return nil // idempotent
	}
	w.roots[clean] = folderID
	w.mu.Unlock()

	stream := &fsevents.EventStream{
		Paths:   []string{clean},
		Latency: 0,
		Flags:   fsevents.FileEvents | fsevents.WatchRoot | fsevents.NoDefer,
	}

	w.mu.Lock()
	w.streams[clean] = stream
	w.mu.Unlock()

	stream.Start()
	go w.consume(clean, folderID, stream)
	return nil
}

func (w *fsEventsWatcher) consume(root string, folderID domain.FolderID, stream *fsevents.EventStream) {
	for {
		select {
		case <-w.done:
			return
		case batch, ok := <-stream.Events:
			if !ok {
				return
			}
			for _, ev := range batch {
				w.handle(root, folderID, ev)
			}
		}
	}
}

func (w *fsEventsWatcher) handle(root string, folderID domain.FolderID, ev fsevents.Event) {
	if ev.Flags&fsevents.MustScanSubDirs != 0 ||
		ev.Flags&fsevents.KernelDropped != 0 ||
		ev.Flags&fsevents.UserDropped != 0 {
		w.logger.Warn("fsevents queue overflow, events may have been lost",
			"path", ev.Path, "flags", ev.Flags)
		return
	}
	if ev.Flags&fsevents.Mount != 0 || ev.Flags&fsevents.Unmount != 0 ||
		ev.Flags&fsevents.RootChanged != 0 || ev.Flags&fsevents.ItemIsDir != 0 {
		return
	}

	var kind EventKind
	switch {
	case ev.Flags&fsevents.ItemRemoved != 0:
		kind = Deleted
	case ev.Flags&fsevents.ItemRenamed != 0:
		kind = Renamed
	case ev.Flags&fsevents.ItemCreated != 0:
		kind = Created
	case ev.Flags&fsevents.ItemModified != 0:
		kind = Modified
	default:
		return
	}

	// Scoping rule (§4.1): only events whose immediate parent directory
	// equals the watched root are emitted, even though FSEvents itself
	// watches recursively.
	if filepath.Clean(filepath.Dir(ev.Path)) != root {
		return
	}

	if w.ignore.matches(ev.Path) {
		return
	}

	select {
	case w.events <- FileEvent{Path: ev.Path, FolderID: folderID, Kind: kind, Timestamp: time.Now()}:
	default:
		w.logger.Warn("event channel full, dropping event", "path", ev.Path)
	}
}

func (w *fsEventsWatcher) UnwatchFolder(path string) error {
	clean := filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.roots, clean)
	if stream, ok := w.streams[clean]; ok {
		stream.Stop()
		delete(w.streams, clean)
	}
	return nil
}

func (w *fsEventsWatcher) SetIgnorePatterns(patterns []string) error {
	w.ignore.replace(patterns)
	return nil
}

func (w *fsEventsWatcher) Close() error {
	close(w.done)
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, stream := range w.streams {
		stream.Stop()
		delete(w.streams, path)
	}
	return nil
}
