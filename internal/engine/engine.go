// Package engine implements the Debouncer + Rule Engine (§4.2): a single
// serialized consumer of the watcher's event stream, driving condition
// evaluation and action execution one rule at a time in position order.
// Grounded on the teacher's daemon.go consumer-loop shape, generalized
// from one trigger-to-one-agent dispatch into the ordered rule pipeline
// the spec requires.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filedispatch/agent/internal/condition"
	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/logging"
	"github.com/filedispatch/agent/internal/security"
	"github.com/filedispatch/agent/internal/store"
	"github.com/filedispatch/agent/internal/watcher"
)

// ActionOutcome is one action's result, returned by an ActionExecutor.
type ActionOutcome struct {
	Action  domain.Action
	Status  domain.LogStatus
	Details *domain.ActionDetails
	Error   error
}

// ActionExecutor runs a rule's action list against one matched file. The
// engine only depends on this interface — internal/executor provides the
// concrete implementation (§4.4).
type ActionExecutor interface {
	Execute(ctx context.Context, actions []domain.Action, info domain.FileInfo, captures map[string]string) []ActionOutcome
}

// Engine is the single consumer of a Watcher's event stream.
type Engine struct {
	watcher  watcher.Watcher
	rules    *store.RuleRepo
	matches  *store.MatchRepo
	logs     *store.LogRepo
	undo     *store.UndoRepo
	executor ActionExecutor
	logger   *slog.Logger

	debounce time.Duration
	paused   atomic.Bool

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New builds an Engine. debounce is read from Settings.DebounceMS by the
// caller (daemon wiring).
func New(w watcher.Watcher, rules *store.RuleRepo, matches *store.MatchRepo, logs *store.LogRepo, undo *store.UndoRepo, executor ActionExecutor, debounce time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		watcher:  w,
		rules:    rules,
		matches:  matches,
		logs:     logs,
		undo:     undo,
		executor: executor,
		logger:   logger,
		debounce: debounce,
		lastSeen: map[string]time.Time{},
	}
}

// Pause sets the global paused flag (§4.2 step 1): events are dropped
// entirely, without updating last_seen, while paused.
func (e *Engine) Pause() { e.paused.Store(true) }

// Resume clears the global paused flag.
func (e *Engine) Resume() { e.paused.Store(false) }

// Paused reports the current pause state.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Run consumes events until ctx is cancelled or the watcher's event
// channel closes.
func (e *Engine) Run(ctx context.Context) error {
	pruneInterval := e.debounce * 10
	if pruneInterval <= 0 {
		pruneInterval = time.Second
	}
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pruneTicker.C:
			e.pruneLastSeen()
		case ev, ok := <-e.watcher.Events():
			if !ok {
				return nil
			}
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev watcher.FileEvent) {
	// Step 1: global pause.
	if e.paused.Load() {
		return
	}

	// Step 2: per-path debounce.
	if !e.shouldProcess(ev.Path, ev.Timestamp) {
		return
	}

	// Step 3: derive FileInfo; drop on failure (file gone, permission).
	info, err := fileinfo.FromPath(ev.Path)
	if err != nil {
		e.logger.Debug("dropping event, could not extract file info", "path", ev.Path, "error", err)
		return
	}

	// Step 4: rules for the event's folder, in position order.
	rules, err := e.rules.ListByFolder(ev.FolderID, true)
	if err != nil {
		e.logger.Error("listing rules for folder", "folder_id", ev.FolderID, "error", err)
		return
	}

	for _, rule := range rules {
		if e.runRule(ctx, rule, info) {
			break // stop_processing
		}
	}
}

// runRule evaluates and, on match, executes one rule. It returns true if
// the per-file loop should stop (rule.StopProcessing and the rule matched).
func (e *Engine) runRule(ctx context.Context, rule domain.Rule, info domain.FileInfo) bool {
	ruleLogger := logging.WithRule(e.logger, rule.Name)
	fingerprint := info.Fingerprint()

	has, err := e.matches.HasMatch(rule.ID, info.Path, fingerprint)
	if err != nil {
		ruleLogger.Error("checking match registry", "rule_id", rule.ID, "path", info.Path, "error", err)
	} else if has {
		return false
	}

	result, err := condition.Evaluate(rule, info)
	if err != nil {
		e.appendErrorLog(ruleLogger, rule, info, err)
		return false
	}
	if !result.Matched {
		return false
	}

	outcomes := e.executor.Execute(ctx, rule.Actions, info, result.Captures)
	e.writeOutcomes(ruleLogger, rule, info, outcomes)

	if err := e.matches.Upsert(domain.MatchRecord{
		RuleID:      rule.ID,
		FilePath:    info.Path,
		Fingerprint: fingerprint,
		MatchedAt:   time.Now().UTC(),
	}); err != nil {
		ruleLogger.Error("writing match record", "rule_id", rule.ID, "path", info.Path, "error", err)
	}

	return rule.StopProcessing
}

func (e *Engine) writeOutcomes(ruleLogger *slog.Logger, rule domain.Rule, info domain.FileInfo, outcomes []ActionOutcome) {
	ruleID := rule.ID
	for _, o := range outcomes {
		errStr := ""
		if o.Error != nil {
			errStr = security.ScrubOutput(o.Error.Error())
		}
		logID, err := e.logs.Append(domain.LogEntry{
			RuleID:     &ruleID,
			RuleName:   rule.Name,
			FilePath:   info.Path,
			ActionType: string(o.Action.Kind),
			Details:    o.Details,
			Status:     o.Status,
			Error:      errStr,
		})
		if err != nil {
			ruleLogger.Error("writing log entry", "rule_id", rule.ID, "error", err)
			continue
		}
		e.maybeRecordUndo(ruleLogger, o, logID)
	}
}

func (e *Engine) maybeRecordUndo(ruleLogger *slog.Logger, o ActionOutcome, logID int64) {
	if o.Status != domain.StatusSuccess || o.Details == nil {
		return
	}

	var undoType domain.UndoActionType
	switch o.Action.Kind {
	case domain.ActionMove:
		undoType = domain.UndoMove
	case domain.ActionRename:
		undoType = domain.UndoRename
	case domain.ActionCopy:
		undoType = domain.UndoCopy
	default:
		return
	}

	if _, err := e.undo.Append(domain.UndoEntry{
		LogID:        logID,
		ActionType:   undoType,
		OriginalPath: o.Details.SourcePath,
		CurrentPath:  o.Details.DestinationPath,
	}); err != nil {
		ruleLogger.Error("recording undo entry", "log_id", logID, "error", err)
	}
}

func (e *Engine) appendErrorLog(ruleLogger *slog.Logger, rule domain.Rule, info domain.FileInfo, evalErr error) {
	ruleID := rule.ID
	_, err := e.logs.Append(domain.LogEntry{
		RuleID:     &ruleID,
		RuleName:   rule.Name,
		FilePath:   info.Path,
		ActionType: "evaluate",
		Status:     domain.StatusError,
		Error:      security.ScrubOutput(fmt.Sprintf("condition evaluation failed: %v", evalErr)),
	})
	if err != nil {
		ruleLogger.Error("writing evaluator error log", "rule_id", rule.ID, "error", err)
	}
}

func (e *Engine) shouldProcess(path string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, seen := e.lastSeen[path]
	if seen && now.Sub(last) < e.debounce {
		return false
	}
	e.lastSeen[path] = now
	return true
}

// pruneLastSeen drops entries older than 10x the debounce window (§4.2:
// "implementations should prune entries older than 10x debounce").
func (e *Engine) pruneLastSeen() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-10 * e.debounce)
	for path, last := range e.lastSeen {
		if last.Before(cutoff) {
			delete(e.lastSeen, path)
		}
	}
}
