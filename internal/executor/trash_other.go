//go:build !darwin && !linux && !windows

package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// trashPath is the fallback for BSDs and any other platform without a
// standardized trash convention in this codebase's supported set: a
// fixed holding folder under the user's home directory, with a
// nanosecond timestamp appended to the stem on a name collision.
func trashPath(path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	trashDir := filepath.Join(home, ".filedispatch-trash")
	if err := os.MkdirAll(trashDir, 0o700); err != nil {
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
