package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/store"
	"github.com/filedispatch/agent/internal/watcher"
)

// fakeWatcher lets tests push FileEvents directly without touching a real
// filesystem watch backend.
type fakeWatcher struct {
	events chan watcher.FileEvent
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan watcher.FileEvent, 16)}
}

func (f *fakeWatcher) WatchFolder(string, domain.FolderID) error    { return nil }
func (f *fakeWatcher) UnwatchFolder(string) error                   { return nil }
func (f *fakeWatcher) SetIgnorePatterns([]string) error             { return nil }
func (f *fakeWatcher) Events() <-chan watcher.FileEvent             { return f.events }
func (f *fakeWatcher) Close() error                                 { close(f.events); return nil }

// fakeExecutor records every Execute call and returns a canned outcome.
type fakeExecutor struct {
	calls int
}

func (e *fakeExecutor) Execute(ctx context.Context, actions []domain.Action, info domain.FileInfo, captures map[string]string) []ActionOutcome {
	e.calls++
	out := make([]ActionOutcome, 0, len(actions))
	for _, a := range actions {
		out = append(out, ActionOutcome{
			Action: a,
			Status: domain.StatusSuccess,
			Details: &domain.ActionDetails{
				SourcePath:      info.Path,
				DestinationPath: info.Path,
			},
		})
	}
	return out
}

func setupStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEngineMatchesAndExecutesRule(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(testFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	rules := store.NewRuleRepo(db)
	matches := store.NewMatchRepo(db)
	logs := store.NewLogRepo(db)
	undo := store.NewUndoRepo(db)

	folderID := domain.FolderID("folder-1")
	rule, err := rules.Create(domain.Rule{
		FolderID: folderID,
		Name:     "pdf rule",
		Enabled:  true,
		Conditions: domain.ConditionGroup{
			Type: domain.MatchAll,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "pdf"},
			},
		},
		Actions: []domain.Action{{Kind: domain.ActionMove, Destination: "/tmp/dest"}},
	})
	if err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	fw := newFakeWatcher()
	fe := &fakeExecutor{}
	e := New(fw, rules, matches, logs, undo, fe, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	fw.events <- watcher.FileEvent{Path: testFile, FolderID: folderID, Kind: watcher.Created, Timestamp: time.Now()}

	deadline := time.After(2 * time.Second)
	for {
		if fe.calls > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for executor to run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	has, err := matches.HasMatch(rule.ID, testFile, "")
	if err != nil {
		t.Fatalf("HasMatch failed: %v", err)
	}
	if !has {
		t.Error("expected match record to be written after rule execution")
	}

	entries, err := logs.List("", "", 0)
	if err != nil {
		t.Fatalf("List logs failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
}

func TestEngineSkipsAlreadyMatchedFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	rules := store.NewRuleRepo(db)
	matches := store.NewMatchRepo(db)
	logs := store.NewLogRepo(db)
	undo := store.NewUndoRepo(db)

	folderID := domain.FolderID("folder-1")
	rule, err := rules.Create(domain.Rule{
		FolderID:   folderID,
		Name:       "catch all",
		Enabled:    true,
		Conditions: domain.ConditionGroup{Type: domain.MatchAll},
		Actions:    []domain.Action{{Kind: domain.ActionMove, Destination: "/tmp/dest"}},
	})
	if err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	fi, err := os.Stat(testFile)
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := domain.FileInfo{Modified: fi.ModTime(), Size: fi.Size()}.Fingerprint()
	if err := matches.Upsert(domain.MatchRecord{RuleID: rule.ID, FilePath: testFile, Fingerprint: fingerprint}); err != nil {
		t.Fatalf("seeding match record: %v", err)
	}

	fw := newFakeWatcher()
	fe := &fakeExecutor{}
	e := New(fw, rules, matches, logs, undo, fe, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	fw.events <- watcher.FileEvent{Path: testFile, FolderID: folderID, Kind: watcher.Modified, Timestamp: time.Now()}

	time.Sleep(300 * time.Millisecond)
	if fe.calls != 0 {
		t.Errorf("expected executor not to run for an already-matched fingerprint, got %d calls", fe.calls)
	}
}

func TestEnginePauseDropsEvents(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	rules := store.NewRuleRepo(db)
	matches := store.NewMatchRepo(db)
	logs := store.NewLogRepo(db)
	undo := store.NewUndoRepo(db)

	folderID := domain.FolderID("folder-1")
	if _, err := rules.Create(domain.Rule{
		FolderID:   folderID,
		Name:       "catch all",
		Enabled:    true,
		Conditions: domain.ConditionGroup{Type: domain.MatchAll},
		Actions:    []domain.Action{{Kind: domain.ActionMove, Destination: "/tmp/dest"}},
	}); err != nil {
		t.Fatalf("creating rule: %v", err)
	}

	fw := newFakeWatcher()
	fe := &fakeExecutor{}
	e := New(fw, rules, matches, logs, undo, fe, 0, nil)
	e.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	fw.events <- watcher.FileEvent{Path: testFile, FolderID: folderID, Kind: watcher.Created, Timestamp: time.Now()}

	time.Sleep(300 * time.Millisecond)
	if fe.calls != 0 {
		t.Errorf("expected no execution while paused, got %d calls", fe.calls)
	}
}
