package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestDaemonRunWatchesFoldersAndExecutesRule(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "daemon.db")
	watchDir := t.TempDir()
	destDir := t.TempDir()

	d, err := New(Config{DBPath: dbPath, ControlAddr: freePort(t)}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	folder, err := d.folders.Create(domain.Folder{
		Path:    watchDir,
		Name:    "inbox",
		Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.rules.Create(domain.Rule{
		FolderID:       folder.ID,
		Name:           "Move PDFs",
		Enabled:        true,
		StopProcessing: true,
		Conditions: domain.ConditionGroup{
			Type: domain.MatchAll,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionExtension, StringOperator: domain.OpIs, StringValue: "pdf"},
			},
		},
		Actions: []domain.Action{{Kind: domain.ActionMove, Destination: destDir}},
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Give the watcher a moment to start observing before writing.
	time.Sleep(200 * time.Millisecond)

	srcFile := filepath.Join(watchDir, "invoice.pdf")
	if err := os.WriteFile(srcFile, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(destDir, "invoice.pdf")); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down in time")
	}

	if _, err := os.Stat(filepath.Join(destDir, "invoice.pdf")); err != nil {
		t.Fatalf("expected moved file in destination, stat failed: %v", err)
	}
}
