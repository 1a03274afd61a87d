package housekeeping

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/store"
)

func TestIncompleteCleanerTracksThenTrashesAfterTimeout(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "movie.mkv.part")
	if err := os.WriteFile(partial, []byte("chunk"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	repo := store.NewIncompleteRepo(db)
	cleaner := NewIncompleteCleaner(repo, nil)
	folder := domain.Folder{ID: "f1", Path: dir, ScanDepth: 0, TrashIncompleteDownloads: true, IncompleteTimeoutMinutes: 10}

	// First sweep: no record yet, so it's tracked but not trashed.
	cleaner.Sweep(folder)
	if _, err := os.Stat(partial); err != nil {
		t.Fatalf("expected file to remain after first observation: %v", err)
	}
	record, found, err := repo.Get(folder.ID, partial)
	if err != nil || !found {
		t.Fatalf("expected record after first sweep, found=%v err=%v", found, err)
	}

	// Back-date first_seen past the timeout and sweep again: size is
	// unchanged, so this run should trash it.
	record.FirstSeen = time.Now().UTC().Add(-20 * time.Minute)
	if err := repo.Upsert(record); err != nil {
		t.Fatal(err)
	}
	cleaner.Sweep(folder)

	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Errorf("expected stale partial file trashed, stat err=%v", err)
	}
	if _, found, _ := repo.Get(folder.ID, partial); found {
		t.Error("expected record deleted after trashing")
	}
}

func TestIncompleteCleanerResetsOnSizeChange(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "file.crdownload")
	if err := os.WriteFile(partial, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	repo := store.NewIncompleteRepo(db)
	cleaner := NewIncompleteCleaner(repo, nil)
	folder := domain.Folder{ID: "f1", Path: dir, ScanDepth: 0, TrashIncompleteDownloads: true, IncompleteTimeoutMinutes: 10}

	cleaner.Sweep(folder)
	record, _, _ := repo.Get(folder.ID, partial)
	record.FirstSeen = time.Now().UTC().Add(-20 * time.Minute)
	if err := repo.Upsert(record); err != nil {
		t.Fatal(err)
	}

	// Grow the file before the next sweep: still downloading, so the
	// record's first_seen should reset instead of trashing.
	if err := os.WriteFile(partial, []byte("a longer chunk now"), 0644); err != nil {
		t.Fatal(err)
	}
	cleaner.Sweep(folder)

	if _, err := os.Stat(partial); err != nil {
		t.Fatalf("expected growing file to remain: %v", err)
	}
	updated, found, err := repo.Get(folder.ID, partial)
	if err != nil || !found {
		t.Fatalf("expected record to remain, found=%v err=%v", found, err)
	}
	if time.Since(updated.FirstSeen) > time.Minute {
		t.Errorf("expected first_seen reset to now, got %v", updated.FirstSeen)
	}
}

func TestIncompleteCleanerGCsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "gone.part")
	if err := os.WriteFile(partial, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	repo := store.NewIncompleteRepo(db)
	cleaner := NewIncompleteCleaner(repo, nil)
	folder := domain.Folder{ID: "f1", Path: dir, ScanDepth: 0, TrashIncompleteDownloads: true, IncompleteTimeoutMinutes: 10}

	cleaner.Sweep(folder)
	if _, found, _ := repo.Get(folder.ID, partial); !found {
		t.Fatal("expected record after first sweep")
	}

	if err := os.Remove(partial); err != nil {
		t.Fatal(err)
	}
	cleaner.Sweep(folder)

	if _, found, _ := repo.Get(folder.ID, partial); found {
		t.Error("expected record garbage-collected once the file disappeared")
	}
}
