// Package domain holds the core data model shared by the store, engine,
// executor, and housekeeping packages: folders, rules, conditions, actions,
// and the system-authored audit records derived from running them.
package domain

import "time"

// FolderID identifies a watched folder.
type FolderID string

// Folder is a user-configured directory the watcher observes.
type Folder struct {
	ID                         FolderID
	Path                       string
	Name                       string
	Enabled                    bool
	ScanDepth                  int // -1 = unbounded
	RemoveDuplicates           bool
	TrashIncompleteDownloads   bool
	IncompleteTimeoutMinutes   int
	ParentID                   *FolderID
	IsGroup                    bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// MaxDepth converts ScanDepth into a walk depth limit. -1 means unlimited.
// Mirrors the original implementation's walkdir convention: depth counts
// from the root, so a scan_depth of 0 (current folder only) allows one
// level of descent.
func (f Folder) MaxDepth() (depth int, unlimited bool) {
	if f.ScanDepth < 0 {
		return 0, true
	}
	return f.ScanDepth + 1, false
}
