package daemon

import (
	"log/slog"
	"os"

	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/housekeeping"
	"github.com/filedispatch/agent/internal/security"
	"github.com/filedispatch/agent/internal/store"
	"github.com/filedispatch/agent/internal/watcher"
)

// dedupWatcher decorates a Watcher, running the Duplicate Detector (§4.7)
// against every Created event for a folder with RemoveDuplicates set
// before forwarding it onward; a trashed duplicate never reaches the rule
// engine. This is this repository's own wiring, not a pack pattern, but
// applies the same "read, decide, maybe drop" shape engine.go's debounce
// gate already uses against the raw event stream.
type dedupWatcher struct {
	watcher.Watcher
	detector *housekeeping.DuplicateDetector
	folders  *store.FolderRepo
	out      chan watcher.FileEvent
	logger   *slog.Logger
}

func newDedupWatcher(w watcher.Watcher, detector *housekeeping.DuplicateDetector, folders *store.FolderRepo, logger *slog.Logger) *dedupWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &dedupWatcher{
		Watcher:  w,
		detector: detector,
		folders:  folders,
		out:      make(chan watcher.FileEvent, 100),
		logger:   logger,
	}
	go d.pump()
	return d
}

func (d *dedupWatcher) Events() <-chan watcher.FileEvent { return d.out }

func (d *dedupWatcher) pump() {
	defer close(d.out)
	for event := range d.Watcher.Events() {
		if event.Kind == watcher.Created && d.isDuplicateCandidate(event) {
			continue
		}
		d.out <- event
	}
}

// isDuplicateCandidate runs the Duplicate Detector for event and reports
// whether it trashed the file. Check itself has no success return value —
// a trashed duplicate is detected here by the file's disappearance, since
// that is the detector's only externally visible side effect.
func (d *dedupWatcher) isDuplicateCandidate(event watcher.FileEvent) bool {
	folder, err := d.folders.Get(event.FolderID)
	if err != nil || !folder.RemoveDuplicates {
		return false
	}
	info, err := fileinfo.FromPath(event.Path)
	if err != nil || info.IsDir {
		return false
	}
	d.detector.Check(folder, info)
	_, statErr := os.Stat(event.Path)
	return os.IsNotExist(statErr)
}

// watchEnabledFolders starts observation of every enabled, non-group
// folder and applies the current ignore pattern set. A folder with unsafe
// permissions (world-writable, or group/other bits above 0050, e.g.
// 0755 or 0770) is still
// watched — files won't stop moving just because the folder is
// misconfigured — but is logged so the operator can tighten it.
func watchEnabledFolders(w watcher.Watcher, folders *store.FolderRepo, ignorePatterns []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := w.SetIgnorePatterns(ignorePatterns); err != nil {
		return err
	}
	list, err := folders.List()
	if err != nil {
		return err
	}
	for _, f := range list {
		if !f.Enabled || f.IsGroup {
			continue
		}
		if err := security.ValidateDirectoryPermissions(f.Path); err != nil {
			logger.Warn("watched folder has unsafe permissions", "folder", f.Path, "error", err)
		}
		if err := w.WatchFolder(f.Path, f.ID); err != nil {
			return err
		}
	}
	return nil
}
