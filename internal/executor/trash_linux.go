//go:build linux

package executor

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// trashPath implements a minimal subset of the freedesktop.org trash spec:
// move the file into $XDG_DATA_HOME/Trash/files and write a matching
// .trashinfo record into Trash/info, so a standards-compliant file
// manager can still show and restore it.
func trashPath(path string) error {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	trashDir := filepath.Join(dataHome, "Trash")
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	if err := os.MkdirAll(filesDir, 0o700); err != nil {
		return fmt.Errorf("creating trash files directory: %w", err)
	}
	if err := os.MkdirAll(infoDir, 0o700); err != nil {
		return fmt.Errorf("creating trash info directory: %w", err)
	}

	name := filepath.Base(path)
	dest := filepath.Join(filesDir, name)
	infoPath := filepath.Join(infoDir, name+".trashinfo")
	if _, err := os.Lstat(dest); err == nil {
		name = fmt.Sprintf("%s.%d", name, time.Now().UnixNano())
		dest = filepath.Join(filesDir, name)
		infoPath = filepath.Join(infoDir, name+".trashinfo")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(abs), time.Now().Format("2006-01-02T15:04:05"))
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return fmt.Errorf("writing trashinfo: %w", err)
	}

	return renameOrCopyDelete(path, dest)
}
