package housekeeping

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/executor"
	"github.com/filedispatch/agent/internal/store"
)

var incompleteSuffixes = []string{".part", ".crdownload", ".download"}

// IncompleteCleaner implements §4.8 for folders with
// TrashIncompleteDownloads set. Sweep is invoked on a cron cadence by
// Scheduler; it is stateless between calls beyond what is
// persisted in IncompleteRepo.
type IncompleteCleaner struct {
	incomplete *store.IncompleteRepo
	logger     *slog.Logger
}

func NewIncompleteCleaner(incomplete *store.IncompleteRepo, logger *slog.Logger) *IncompleteCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncompleteCleaner{incomplete: incomplete, logger: logger}
}

// Sweep scans folder for partial-download candidates, ages them against
// their IncompleteFile record, trashes anything that has sat unchanged
// for timeout_minutes, and garbage-collects records for paths no longer
// observed.
func (c *IncompleteCleaner) Sweep(folder domain.Folder) {
	if !folder.TrashIncompleteDownloads {
		return
	}

	depth, unlimited := folder.MaxDepth()
	now := time.Now().UTC()
	seen := map[string]bool{}

	err := filepath.WalkDir(folder.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != folder.Path && !unlimited {
				depthHere := strings.Count(filepath.Clean(path), string(filepath.Separator)) -
					strings.Count(filepath.Clean(folder.Path), string(filepath.Separator))
				if depthHere > depth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !isIncompleteName(d.Name()) {
			return nil
		}
		seen[path] = true
		c.observe(folder, path, now)
		return nil
	})
	if err != nil {
		c.logger.Error("scanning for incomplete downloads", "folder", folder.Path, "error", err)
	}

	c.gc(folder, seen)
}

func isIncompleteName(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range incompleteSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (c *IncompleteCleaner) observe(folder domain.Folder, path string, now time.Time) {
	stat, err := os.Stat(path)
	if err != nil {
		return
	}
	currentSize := stat.Size()

	record, found, err := c.incomplete.Get(folder.ID, path)
	if err != nil {
		c.logger.Error("reading incomplete record", "path", path, "error", err)
		return
	}

	if !found {
		c.upsert(folder.ID, path, now, currentSize)
		return
	}
	if record.SizeBytes != currentSize {
		c.upsert(folder.ID, path, now, currentSize)
		return
	}

	timeout := time.Duration(folder.IncompleteTimeoutMinutes) * time.Minute
	if now.Sub(record.FirstSeen) < timeout {
		return
	}

	if err := executor.TrashPath(path); err != nil {
		c.logger.Error("trashing stale incomplete download", "path", path, "error", err)
		return
	}
	if err := c.incomplete.Delete(folder.ID, path); err != nil {
		c.logger.Error("deleting incomplete record", "path", path, "error", err)
	}
}

func (c *IncompleteCleaner) upsert(folderID domain.FolderID, path string, firstSeen time.Time, size int64) {
	if err := c.incomplete.Upsert(domain.IncompleteFile{
		FolderID:  folderID,
		FilePath:  path,
		FirstSeen: firstSeen,
		SizeBytes: size,
	}); err != nil {
		c.logger.Error("recording incomplete download observation", "path", path, "error", err)
	}
}

// gc removes IncompleteFile records whose path was not observed in this
// sweep — the file finished downloading, was removed, or was renamed.
func (c *IncompleteCleaner) gc(folder domain.Folder, seen map[string]bool) {
	records, err := c.incomplete.ListByFolder(folder.ID)
	if err != nil {
		c.logger.Error("listing incomplete records for gc", "folder", folder.Path, "error", err)
		return
	}
	for _, r := range records {
		if seen[r.FilePath] {
			continue
		}
		if err := c.incomplete.Delete(folder.ID, r.FilePath); err != nil {
			c.logger.Error("gc-ing incomplete record", "path", r.FilePath, "error", err)
		}
	}
}
