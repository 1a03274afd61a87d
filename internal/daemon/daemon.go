// Package daemon wires the Persistent Store, Watcher, Debouncer/Rule
// Engine, Action Executor, housekeeping loops, and control surface into
// one running process. Grounded on the teacher's daemon.go Run(ctx)
// lifecycle shape (load state, start background loops, block on the
// event/context select, drain in-flight work on shutdown), adapted from
// one-trigger-to-one-agent dispatch into this domain's
// watcher→engine→executor pipeline.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/content"
	"github.com/filedispatch/agent/internal/control"
	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
	"github.com/filedispatch/agent/internal/executor"
	"github.com/filedispatch/agent/internal/housekeeping"
	"github.com/filedispatch/agent/internal/pattern"
	"github.com/filedispatch/agent/internal/store"
	"github.com/filedispatch/agent/internal/watcher"
)

// Config is the set of knobs needed to assemble a Daemon. Values not
// covered by Settings (which lives in the database and is user-editable
// at runtime) live here because they gate process startup itself.
type Config struct {
	DBPath           string
	ControlAddr      string // e.g. "127.0.0.1:7777"
	HousekeepingCron string // seconds-field cron, e.g. "0 */5 * * * *"
	OCRManager       *content.OCRManager // nil disables OCR regardless of settings

	// DebounceMS is the fallback debounce, in milliseconds, applied only
	// when loading Settings fails. A database with no Settings row yet
	// yields the default Settings, whose DebounceMS is used instead.
	DebounceMS int
}

// lazyRecognizer adapts an OCRManager into a content.Recognizer, resolving
// (and, on first use or model-config change, building) the concrete
// engine on every call rather than once at startup — so toggling OCR
// settings at runtime takes effect without a restart.
type lazyRecognizer struct {
	manager  *content.OCRManager
	settings func() domain.Settings
}

func (l lazyRecognizer) resolve() (content.Recognizer, error) {
	return l.manager.Ensure(l.settings())
}

func (l lazyRecognizer) RecognizeImage(ctx context.Context, imagePath string, timeout time.Duration) (string, error) {
	r, err := l.resolve()
	if err != nil {
		return "", err
	}
	return r.RecognizeImage(ctx, imagePath, timeout)
}

func (l lazyRecognizer) RecognizePDFPage(ctx context.Context, pdfPath string, pageIndex, targetWidth int, timeout time.Duration) (string, error) {
	r, err := l.resolve()
	if err != nil {
		return "", err
	}
	return r.RecognizePDFPage(ctx, pdfPath, pageIndex, targetWidth, timeout)
}

// Daemon owns every long-lived component and their wiring.
type Daemon struct {
	cfg    Config
	logger *slog.Logger

	db       *store.DB
	folders  *store.FolderRepo
	rules    *store.RuleRepo
	matches  *store.MatchRepo
	logs     *store.LogRepo
	undo     *store.UndoRepo
	settings *store.SettingsRepo

	rawWatcher watcher.Watcher
	watcher    watcher.Watcher
	engine     *engine.Engine
	executor   *executor.Executor
	duplicates *housekeeping.DuplicateDetector
	scheduler  *housekeeping.Scheduler
	control    *control.Server

	startTime time.Time
}

// New opens the database and assembles every component; it does not start
// any background loop — call Run for that.
func New(cfg Config, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	folders := store.NewFolderRepo(db)
	rules := store.NewRuleRepo(db)
	matches := store.NewMatchRepo(db)
	logs := store.NewLogRepo(db)
	undo := store.NewUndoRepo(db)
	settingsRepo := store.NewSettingsRepo(db)
	duplicateRepo := store.NewDuplicateRepo(db)
	incompleteRepo := store.NewIncompleteRepo(db)

	rawWatcher, err := watcher.New(logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting watcher: %w", err)
	}

	currentSettings := func() domain.Settings {
		s, err := settingsRepo.Load()
		if err != nil {
			logger.Warn("loading settings, using defaults", "error", err)
			s = domain.DefaultSettings()
			if cfg.DebounceMS > 0 {
				s.DebounceMS = cfg.DebounceMS
			}
		}
		return s
	}

	var recognizer content.Recognizer
	if cfg.OCRManager != nil {
		recognizer = lazyRecognizer{manager: cfg.OCRManager, settings: currentSettings}
	}
	contentResolver := content.NewResolver(currentSettings, recognizer)
	searchabler := content.NewSearchabler(currentSettings, recognizer)

	exec := executor.New(pattern.New(), currentSettings, searchabler, executor.NewOSNotifier(), logger)

	duplicateDetector := housekeeping.NewDuplicateDetector(duplicateRepo, logger)
	dedup := newDedupWatcher(rawWatcher, duplicateDetector, folders, logger)

	settingsSnapshot := currentSettings()
	eng := engine.New(dedup, rules, matches, logs, undo, exec, time.Duration(settingsSnapshot.DebounceMS)*time.Millisecond, logger)

	incompleteCleaner := housekeeping.NewIncompleteCleaner(incompleteRepo, logger)
	scheduler := housekeeping.NewScheduler(incompleteCleaner, folders.List, logger)

	controlServer := control.New(cfg.ControlAddr, folders, rules, logs, undo, settingsRepo, logger).
		WithMatches(matches).
		WithContent(contentResolver)

	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		folders:    folders,
		rules:      rules,
		matches:    matches,
		logs:       logs,
		undo:       undo,
		settings:   settingsRepo,
		rawWatcher: rawWatcher,
		watcher:    dedup,
		engine:     eng,
		executor:   exec,
		duplicates: duplicateDetector,
		scheduler:  scheduler,
		control:    controlServer,
	}, nil
}

// Run starts every background loop and blocks until ctx is cancelled,
// then drains in-flight work before returning.
func (d *Daemon) Run(ctx context.Context) error {
	d.startTime = time.Now()

	settings, err := d.settings.Load()
	if err != nil {
		d.logger.Warn("loading initial settings, using defaults", "error", err)
		settings = domain.DefaultSettings()
	}
	if err := watchEnabledFolders(d.rawWatcher, d.folders, settings.IgnorePatterns, d.logger); err != nil {
		return fmt.Errorf("watching configured folders: %w", err)
	}

	cronExpr := d.cfg.HousekeepingCron
	if cronExpr == "" {
		cronExpr = "0 */5 * * * *"
	}
	if err := d.scheduler.Start(cronExpr); err != nil {
		return fmt.Errorf("starting housekeeping scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.engine.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("rule engine: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := d.control.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("control server: %w", err)
		}
	}()

	d.logger.Info("daemon started", "db", d.cfg.DBPath, "control_addr", d.cfg.ControlAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		d.logger.Error("component failed, shutting down", "error", err)
	}
	cancel()

	d.scheduler.Stop()
	wg.Wait()
	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	if err := d.rawWatcher.Close(); err != nil {
		d.logger.Warn("closing watcher", "error", err)
	}
	return d.db.Close()
}
