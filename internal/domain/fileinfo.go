package domain

import (
	"fmt"
	"time"
)

// FileInfo is derived from a filesystem path; it is never persisted.
type FileInfo struct {
	Path       string
	Stem       string
	Ext        string // lowercase, without the leading dot
	FullName   string
	Size       int64
	Created    time.Time
	Modified   time.Time
	Added      time.Time
	Kind       FileKind
	ParentDir  string
	IsDir      bool
}

// Fingerprint is the cheap version identity used by the match registry:
// "{mtime_unix}:{size}".
func (fi FileInfo) Fingerprint() string {
	return fmt.Sprintf("%d:%d", fi.Modified.Unix(), fi.Size)
}
