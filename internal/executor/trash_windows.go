//go:build windows

package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// trashPath moves path into a process-managed recycle folder under the
// user's local app data directory.
//
// The real Windows shell trash (IFileOperation / SHFileOperation) needs
// COM, and no pack repo or named ecosystem library wraps it — see
// DESIGN.md. This is a documented, inspectable fallback rather than a
// silent permanent delete: files land in a fixed folder a user or admin
// can still recover from, instead of disappearing.
func trashPath(path string) error {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		base = home
	}
	trashDir := filepath.Join(base, "filedispatch", "trash")
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return fmt.Errorf("creating trash directory: %w", err)
	}

	dest := filepath.Join(trashDir, filepath.Base(path))
	if _, err := os.Lstat(dest); err == nil {
		ext := filepath.Ext(path)
		name := filepath.Base(path)
		stem := name[:len(name)-len(ext)]
		dest = filepath.Join(trashDir, fmt.Sprintf("%s %d%s", stem, time.Now().UnixNano(), ext))
	}
	return renameOrCopyDelete(path, dest)
}
