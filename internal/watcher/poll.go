package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// pollInterval is the fallback granularity (§4.1: "fall back to polling at
// 2-second granularity" when native change-notification is unavailable,
// e.g. on network filesystems that don't deliver inotify/FSEvents).
const pollInterval = 2 * time.Second

// poller scans one folder root on a fixed interval and diffs directory
// entries against its last snapshot, emitting Created/Modified/Deleted
// FileEvents for direct children only — mirroring the native backends'
// immediate-parent scoping rule.
type poller struct {
	root     string
	folderID domain.FolderID
	ignore   *ignoreSet
	out      chan<- FileEvent

	mu       sync.Mutex
	snapshot map[string]time.Time
	stop     chan struct{}
}

func newPoller(root string, folderID domain.FolderID, ignore *ignoreSet, out chan<- FileEvent) *poller {
	return &poller{
		root:     root,
		folderID: folderID,
		ignore:   ignore,
		out:      out,
		snapshot: map[string]time.Time{},
		stop:     make(chan struct{}),
	}
}

func (p *poller) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	p.scan() // seed the snapshot without emitting spurious "created" events for pre-existing files
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.scanAndEmit()
		}
	}
}

func (p *poller) scan() {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		p.snapshot[e.Name()] = info.ModTime()
	}
}

func (p *poller) scanAndEmit() {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return
	}

	current := map[string]time.Time{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		current[e.Name()] = info.ModTime()
	}

	p.mu.Lock()
	prev := p.snapshot
	p.snapshot = current
	p.mu.Unlock()

	now := time.Now()
	for name, mtime := range current {
		full := filepath.Join(p.root, name)
		if p.ignore.matches(full) {
			continue
		}
		prevMtime, existed := prev[name]
		switch {
		case !existed:
			p.emit(full, Created, now)
		case !mtime.Equal(prevMtime):
			p.emit(full, Modified, now)
		}
	}
	for name := range prev {
		if _, stillExists := current[name]; !stillExists {
			full := filepath.Join(p.root, name)
			if p.ignore.matches(full) {
				continue
			}
			p.emit(full, Deleted, now)
		}
	}
}

func (p *poller) emit(path string, kind EventKind, ts time.Time) {
	select {
	case p.out <- FileEvent{Path: path, FolderID: p.folderID, Kind: kind, Timestamp: ts}:
	default:
	}
}

func (p *poller) Stop() {
	close(p.stop)
}
