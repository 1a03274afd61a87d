// Package executor implements the Action Executor (§4.4): applying a
// rule's action list in order to a per-file mutable "current path",
// stopping the remaining actions in the rule on the first Error outcome.
// Grounded on the teacher's executor.go (Claude subprocess runner) for its
// overall "run a list of steps, collect outcomes, stop on first failure"
// shape, generalized to the seventeen file-organization action types.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
	"github.com/filedispatch/agent/internal/pattern"
)

// PDFSearchabler is the subset of internal/content's API the executor
// needs for MakePdfSearchable (§4.10). Defined here, implemented there —
// the same consumer-defined-interface shape internal/engine uses for its
// ActionExecutor dependency.
type PDFSearchabler interface {
	MakeSearchable(ctx context.Context, sourcePath, outputPath string, overwrite, skipIfText bool) (skipped bool, err error)
}

// Notifier posts a desktop notification. Implemented per-platform.
type Notifier interface {
	Notify(title, message string) error
}

// Executor applies rule actions in order, threading the "current path"
// through Move/Rename so later actions in the same rule see the file's
// new location.
type Executor struct {
	pattern      *pattern.Engine
	settings     func() domain.Settings
	pdf          PDFSearchabler
	notifier     Notifier
	logger       *slog.Logger
}

// New builds an Executor. settings is called fresh on every action so
// Notify reflects the latest ShowNotifications toggle.
func New(patternEngine *pattern.Engine, settings func() domain.Settings, pdf PDFSearchabler, notifier Notifier, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{pattern: patternEngine, settings: settings, pdf: pdf, notifier: notifier, logger: logger}
}

var _ engine.ActionExecutor = (*Executor)(nil)

// Execute runs actions in declared order against info, returning one
// outcome per action. On the first Error outcome, remaining actions are
// skipped with status Skipped.
func (x *Executor) Execute(ctx context.Context, actions []domain.Action, info domain.FileInfo, captures map[string]string) []engine.ActionOutcome {
	outcomes := make([]engine.ActionOutcome, 0, len(actions))
	currentPath := info.Path
	stopped := false

	for _, action := range actions {
		if stopped {
			outcomes = append(outcomes, engine.ActionOutcome{
				Action: action,
				Status: domain.StatusSkipped,
				Details: &domain.ActionDetails{
					SourcePath: currentPath,
					Metadata:   map[string]string{"reason": "earlier action in this rule failed"},
				},
			})
			continue
		}

		outcome, newPath := x.runOne(ctx, action, currentPath, info, captures)
		if newPath != "" {
			currentPath = newPath
		}
		outcomes = append(outcomes, outcome)
		if outcome.Status == domain.StatusError {
			stopped = true
		}
	}

	return outcomes
}

func (x *Executor) runOne(ctx context.Context, action domain.Action, currentPath string, info domain.FileInfo, captures map[string]string) (engine.ActionOutcome, string) {
	switch action.Kind {
	case domain.ActionMove:
		return x.runMoveLike(action, currentPath, info, captures, false)
	case domain.ActionSortIntoSubfolder:
		return x.runMoveLike(action, currentPath, info, captures, true)
	case domain.ActionCopy:
		return x.runCopy(action, currentPath, info, captures)
	case domain.ActionRename:
		return x.runRename(action, currentPath, info, captures)
	case domain.ActionArchive:
		return x.runArchive(action, currentPath, info, captures)
	case domain.ActionUnarchive:
		return x.runUnarchive(action, currentPath, captures)
	case domain.ActionDelete:
		return x.runTrash(currentPath), ""
	case domain.ActionDeletePermanently:
		return x.runDeletePermanently(currentPath), ""
	case domain.ActionRunScript:
		return x.runScript(ctx, action, currentPath), ""
	case domain.ActionNotify:
		return x.runNotify(action, info, captures), ""
	case domain.ActionOpen:
		return x.runOpen(currentPath), ""
	case domain.ActionShowInFileManager:
		return x.runShowInFileManager(currentPath), ""
	case domain.ActionOpenWith:
		return x.runOpenWith(action, currentPath), ""
	case domain.ActionMakePdfSearchable:
		return x.runMakePdfSearchable(ctx, action, currentPath), ""
	case domain.ActionPause:
		time.Sleep(time.Duration(action.Seconds * float64(time.Second)))
		return engine.ActionOutcome{Action: action, Status: domain.StatusSuccess}, ""
	case domain.ActionContinue:
		return engine.ActionOutcome{Action: action, Status: domain.StatusSuccess}, ""
	case domain.ActionIgnore:
		return engine.ActionOutcome{
			Action: action, Status: domain.StatusSkipped,
			Details: &domain.ActionDetails{SourcePath: currentPath, Metadata: map[string]string{"reason": "Ignored by rule"}},
		}, ""
	default:
		return errOutcome(action, currentPath, fmt.Errorf("unknown action kind %q", action.Kind)), ""
	}
}

func errOutcome(action domain.Action, sourcePath string, err error) engine.ActionOutcome {
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusError,
		Details: &domain.ActionDetails{SourcePath: sourcePath},
		Error:   err,
	}
}

func skipOutcome(action domain.Action, sourcePath, reason string) engine.ActionOutcome {
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSkipped,
		Details: &domain.ActionDetails{SourcePath: sourcePath, Metadata: map[string]string{"reason": reason}},
	}
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
