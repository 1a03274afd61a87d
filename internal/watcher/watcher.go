// Package watcher implements the Watcher (§4.1): it emits FileEvents for
// files whose immediate parent directory is a watched folder root,
// filtered by a process-wide ignore glob set. Grounded on the teacher's
// internal/trigger/filesystem.go and filesystem_darwin.go, generalized
// from single-rule trigger configs to a shared multi-folder watch set.
package watcher

import (
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// EventKind discriminates the kind of filesystem change observed.
type EventKind string

const (
	Created  EventKind = "created"
	Modified EventKind = "modified"
	Renamed  EventKind = "renamed"
	Deleted  EventKind = "deleted"
)

// FileEvent is one filesystem change scoped to a watched folder root.
type FileEvent struct {
	Path      string
	FolderID  domain.FolderID
	Kind      EventKind
	Timestamp time.Time
}

// Watcher observes a set of folder roots and emits scoped FileEvents.
type Watcher interface {
	// WatchFolder starts recursive observation of path under folderID.
	// Idempotent: watching an already-watched path is a no-op.
	WatchFolder(path string, folderID domain.FolderID) error

	// UnwatchFolder stops observation of path. Idempotent.
	UnwatchFolder(path string) error

	// SetIgnorePatterns atomically replaces the compiled glob set. Patterns
	// are matched against the event's full path (§4.1).
	SetIgnorePatterns(patterns []string) error

	// Events returns the channel FileEvents are published on.
	Events() <-chan FileEvent

	// Close stops all observation and releases underlying resources.
	Close() error
}
