//go:build darwin

package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// trashPath moves path into ~/.Trash, the macOS Finder trash convention,
// disambiguating a name collision by appending a nanosecond timestamp to
// the file's stem.
func trashPath(path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	trashDir := filepath.Join(home, ".Trash")
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return fmt.Errorf("creating trash directory: %w", err)
	}

	dest := filepath.Join(trashDir, filepath.Base(path))
	if _, err := os.Lstat(dest); err == nil {
		dest = filepath.Join(trashDir, fmt.Sprintf("%s %d%s",
			trimExt(filepath.Base(path)), time.Now().UnixNano(), filepath.Ext(path)))
	}
	return renameOrCopyDelete(path, dest)
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
