package domain

// OCRModelSource selects where OCR model files are resolved from.
type OCRModelSource string

const (
	OCRModelBundled OCRModelSource = "bundled"
	OCRModelCustom  OCRModelSource = "custom"
)

// Settings is the process-wide configuration snapshot, externally stored
// and read by every consumer as an immutable value.
type Settings struct {
	DebounceMS              int64
	MaxConcurrentRules      int
	ShowNotifications       bool
	MinimizeToTray          bool
	IgnorePatterns          []string
	LogRetentionDays        int
	DryRun                  bool

	OCREnabled          bool
	OCRImageTimeoutMS   int64
	OCRPDFTimeoutMS     int64
	OCRMaxBytes         int64
	OCRMaxPages         int
	OCRModelSource      OCRModelSource
	OCRModelDetPath     string
	OCRModelRecPath     string
	OCRModelDictPath    string

	ContentMaxBytes int64
}

// DefaultSettings mirrors the original implementation's Default impl,
// including its default ignore pattern set.
func DefaultSettings() Settings {
	return Settings{
		DebounceMS:         500,
		MaxConcurrentRules: 4,
		ShowNotifications:  true,
		MinimizeToTray:     true,
		IgnorePatterns: []string{
			".DS_Store",
			"Thumbs.db",
			".git",
			"node_modules",
			"*.tmp",
			"*.part",
		},
		LogRetentionDays:  30,
		OCREnabled:        false,
		OCRImageTimeoutMS: 10_000,
		OCRPDFTimeoutMS:   60_000,
		OCRMaxBytes:       50 * 1024 * 1024,
		OCRMaxPages:       50,
		OCRModelSource:    OCRModelBundled,
		ContentMaxBytes:   20 * 1024 * 1024,
	}
}
