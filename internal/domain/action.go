package domain

// ActionKind discriminates the tagged Action variant.
type ActionKind string

const (
	ActionMove              ActionKind = "move"
	ActionCopy              ActionKind = "copy"
	ActionRename            ActionKind = "rename"
	ActionSortIntoSubfolder ActionKind = "sort_into_subfolder"
	ActionArchive           ActionKind = "archive"
	ActionUnarchive         ActionKind = "unarchive"
	ActionDelete            ActionKind = "delete"
	ActionDeletePermanently ActionKind = "delete_permanently"
	ActionRunScript         ActionKind = "run_script"
	ActionNotify            ActionKind = "notify"
	ActionOpen              ActionKind = "open"
	ActionShowInFileManager ActionKind = "show_in_file_manager"
	ActionOpenWith          ActionKind = "open_with"
	ActionMakePdfSearchable ActionKind = "make_pdf_searchable"
	ActionPause             ActionKind = "pause"
	ActionContinue          ActionKind = "continue"
	ActionIgnore            ActionKind = "ignore"
)

// ConflictPolicy governs what happens when a Move/Copy/Rename destination
// already exists.
type ConflictPolicy string

const (
	ConflictSkip    ConflictPolicy = "skip"
	ConflictReplace ConflictPolicy = "replace"
	ConflictRename  ConflictPolicy = "rename"
)

// Action is one step of a rule's action list.
type Action struct {
	Kind ActionKind

	// Move / Copy / SortIntoSubfolder
	Destination    string // pattern template
	OnConflict     ConflictPolicy
	SkipDuplicates bool

	// Rename
	Pattern string // pattern template, resolved against the file's directory

	// Archive / Unarchive
	DeleteAfter bool

	// RunScript
	Command string

	// Notify
	Message string

	// OpenWith
	Application string

	// MakePdfSearchable
	Overwrite  bool
	OutputPath string
	SkipIfText bool

	// Pause
	Seconds float64
}
