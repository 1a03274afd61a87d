// Package housekeeping implements the Duplicate Detector (§4.7) and the
// Incomplete-Download Cleaner (§4.8). The detector runs per created file;
// the cleaner is swept on a cron cadence by Scheduler, grounded on the
// teacher's internal/trigger/scheduled.go.
package housekeeping

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/executor"
	"github.com/filedispatch/agent/internal/store"
)

// DuplicateDetector implements §4.7 for folders with RemoveDuplicates set.
// One instance is shared across all folders; it keeps its own per-folder
// hash->path cache so repeated hits on the same content never re-hash.
type DuplicateDetector struct {
	duplicates *store.DuplicateRepo
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[domain.FolderID]map[string]string // hash -> path
}

func NewDuplicateDetector(duplicates *store.DuplicateRepo, logger *slog.Logger) *DuplicateDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateDetector{
		duplicates: duplicates,
		logger:     logger,
		cache:      map[domain.FolderID]map[string]string{},
	}
}

// Check runs §4.7 against one newly observed file, trashing it if it is a
// content-identical duplicate of an earlier, still-present file in the
// same folder. Hash/trash failures are logged and treated as "not a
// duplicate" rather than propagated, per spec.
func (d *DuplicateDetector) Check(folder domain.Folder, info domain.FileInfo) {
	if !folder.RemoveDuplicates || info.IsDir {
		return
	}

	d.mu.Lock()
	folderCache, ok := d.cache[folder.ID]
	if !ok {
		folderCache = map[string]string{}
		d.cache[folder.ID] = folderCache
	}
	d.mu.Unlock()

	hash, err := hashFile(info.Path)
	if err != nil {
		d.logger.Error("hashing candidate for duplicate check", "path", info.Path, "error", err)
		return
	}

	d.mu.Lock()
	cachedPath, cacheHit := folderCache[hash]
	d.mu.Unlock()

	if cacheHit && cachedPath != info.Path {
		if original, ok := stillPresentMatch(cachedPath, info); ok {
			d.resolve(folder, info.Path, hash, original)
			return
		}
	}

	depth, unlimited := folder.MaxDepth()
	original, err := findEarlierMatch(folder.Path, info, depth, unlimited, hash)
	if err != nil {
		d.logger.Error("scanning for duplicate original", "path", info.Path, "error", err)
		return
	}
	if original == "" {
		d.mu.Lock()
		folderCache[hash] = info.Path
		d.mu.Unlock()
		return
	}

	d.resolve(folder, info.Path, hash, original)
}

func (d *DuplicateDetector) resolve(folder domain.Folder, duplicatePath, hash, originalPath string) {
	if err := executor.TrashPath(duplicatePath); err != nil {
		d.logger.Error("trashing duplicate", "path", duplicatePath, "error", err)
		return
	}

	d.mu.Lock()
	d.cache[folder.ID][hash] = originalPath
	d.mu.Unlock()

	if _, err := d.duplicates.Append(domain.DuplicateRemoval{
		FolderID:     folder.ID,
		RemovedPath:  duplicatePath,
		ContentHash:  hash,
		OriginalPath: originalPath,
	}); err != nil {
		d.logger.Error("recording duplicate removal", "path", duplicatePath, "error", err)
	}
}

// stillPresentMatch re-validates a cached hash hit: the cached path must
// still exist and match the incoming file's size before it counts as the
// canonical original.
func stillPresentMatch(cachedPath string, info domain.FileInfo) (string, bool) {
	stat, err := os.Stat(cachedPath)
	if err != nil || stat.IsDir() || stat.Size() != info.Size {
		return "", false
	}
	return cachedPath, true
}

// findEarlierMatch walks the folder up to depth levels (unlimited if
// unlimited is true) looking for a same-size file whose SHA-256 matches
// hash and which is not info.Path itself. The first such match, in walk
// order, is the canonical original.
func findEarlierMatch(root string, info domain.FileInfo, maxDepth int, unlimited bool, hash string) (string, error) {
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
	var found string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep scanning
		}
		if found != "" {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if !unlimited {
				depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
				if depth > maxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if path == info.Path {
			return nil
		}
		stat, statErr := d.Info()
		if statErr != nil || stat.Size() != info.Size {
			return nil
		}
		candidateHash, hashErr := hashFile(path)
		if hashErr != nil {
			return nil
		}
		if candidateHash == hash {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, err
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
