package domain

import "time"

// LogStatus is the outcome status of a single executed action.
type LogStatus string

const (
	StatusSuccess LogStatus = "success"
	StatusError   LogStatus = "error"
	StatusSkipped LogStatus = "skipped"
)

// ActionDetails is the structured payload attached to a LogEntry.
type ActionDetails struct {
	SourcePath      string
	DestinationPath string
	Metadata        map[string]string
}

// LogEntry is an append-only audit record for one executed action.
type LogEntry struct {
	ID         int64
	RuleID     *RuleID
	RuleName   string
	FilePath   string
	ActionType string
	Details    *ActionDetails
	Status     LogStatus
	Error      string
	CreatedAt  time.Time
}

// UndoActionType enumerates the action types the audit writer records as
// reversible.
type UndoActionType string

const (
	UndoMove   UndoActionType = "move"
	UndoRename UndoActionType = "rename"
	UndoCopy   UndoActionType = "copy"
)

// UndoEntry records how to reverse one successful Move/Rename/Copy.
type UndoEntry struct {
	ID           int64
	LogID        int64
	ActionType   UndoActionType
	OriginalPath string
	CurrentPath  string
	CreatedAt    time.Time
}

// MatchRecord is the idempotence key for (rule, path).
type MatchRecord struct {
	RuleID      RuleID
	FilePath    string
	Fingerprint string
	MatchedAt   time.Time
}

// DuplicateRemoval records a housekeeping duplicate trashed in favor of an
// earlier, content-identical file.
type DuplicateRemoval struct {
	ID            int64
	FolderID      FolderID
	RemovedPath   string
	ContentHash   string
	OriginalPath  string
	RemovedAt     time.Time
}

// IncompleteFile tracks a partial-download candidate's last observed size.
type IncompleteFile struct {
	FolderID  FolderID
	FilePath  string
	FirstSeen time.Time
	SizeBytes int64
}
