package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/pattern"
)

type stubPDF struct{}

func (stubPDF) MakeSearchable(ctx context.Context, sourcePath, outputPath string, overwrite, skipIfText bool) (bool, error) {
	return false, nil
}

type recordingNotifier struct {
	title, message string
}

func (n *recordingNotifier) Notify(title, message string) error {
	n.title, n.message = title, message
	return nil
}

func newTestExecutor(settings domain.Settings, notifier Notifier) *Executor {
	return New(pattern.New(), func() domain.Settings { return settings }, stubPDF{}, notifier, nil)
}

func TestExecutorMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "moved", "a.txt")
	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionMove, Destination: filepath.Join(dir, "moved")},
	}, info, nil)

	if len(outcomes) != 1 || outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected successful move, got %+v", outcomes)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("expected file at %s: %v", dest, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected source removed, stat err=%v", err)
	}
}

func TestExecutorMoveConflictRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	destDir := filepath.Join(dir, "dest")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(destDir, "a.txt"), []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionMove, Destination: destDir, OnConflict: domain.ConflictRename},
	}, info, nil)

	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %+v", outcomes[0])
	}
	renamed := filepath.Join(destDir, "a (1).txt")
	if _, err := os.Stat(renamed); err != nil {
		t.Errorf("expected renamed file at %s: %v", renamed, err)
	}
}

func TestExecutorMoveConflictSkip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	destDir := filepath.Join(dir, "dest")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(destDir, "a.txt"), []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionMove, Destination: destDir, OnConflict: domain.ConflictSkip},
	}, info, nil)

	if outcomes[0].Status != domain.StatusSkipped {
		t.Fatalf("expected skipped, got %+v", outcomes[0])
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("expected source to remain after skip: %v", err)
	}
}

func TestExecutorStopsAfterError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionUnarchive, Destination: filepath.Join(dir, "out")}, // not an archive -> Error
		{Kind: domain.ActionContinue},
	}, info, nil)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != domain.StatusError {
		t.Errorf("expected first outcome to be Error, got %v", outcomes[0].Status)
	}
	if outcomes[1].Status != domain.StatusSkipped {
		t.Errorf("expected second outcome to be Skipped after earlier error, got %v", outcomes[1].Status)
	}
}

func TestExecutorRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionRename, Pattern: "renamed.txt"},
	}, info, nil)

	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %+v", outcomes[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "renamed.txt")); err != nil {
		t.Errorf("expected renamed file: %v", err)
	}
}

func TestExecutorArchiveAndUnarchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	archiveDest := filepath.Join(dir, "archive.zip")
	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionArchive, Destination: archiveDest},
	}, info, nil)
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected archive success, got %+v", outcomes[0])
	}
	if _, err := os.Stat(archiveDest); err != nil {
		t.Fatalf("expected archive file: %v", err)
	}

	archiveInfo, err := fileinfo.FromPath(archiveDest)
	if err != nil {
		t.Fatal(err)
	}
	extractDir := filepath.Join(dir, "extracted")
	outcomes = x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionUnarchive, Destination: extractDir},
	}, archiveInfo, nil)
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected unarchive success, got %+v", outcomes[0])
	}
	if _, err := os.Stat(filepath.Join(extractDir, "a.txt")); err != nil {
		t.Errorf("expected extracted file: %v", err)
	}
}

func TestExecutorNotifyRespectsSettings(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	settings := domain.DefaultSettings()
	settings.ShowNotifications = false
	notifier := &recordingNotifier{}
	x := newTestExecutor(settings, notifier)

	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionNotify, Message: "hello {name}"},
	}, info, nil)
	if outcomes[0].Status != domain.StatusSkipped {
		t.Fatalf("expected skipped notify, got %+v", outcomes[0])
	}
	if notifier.message != "" {
		t.Errorf("expected notifier not to be called, got message %q", notifier.message)
	}
}

func TestExecutorDeletePermanently(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(src, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(src)
	if err != nil {
		t.Fatal(err)
	}

	x := newTestExecutor(domain.DefaultSettings(), &recordingNotifier{})
	outcomes := x.Execute(context.Background(), []domain.Action{
		{Kind: domain.ActionDeletePermanently},
	}, info, nil)
	if outcomes[0].Status != domain.StatusSuccess {
		t.Fatalf("expected success, got %+v", outcomes[0])
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err=%v", err)
	}
}
