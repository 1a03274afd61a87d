package housekeeping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/store"
)

func setupStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDuplicateDetectorTrashesContentMatch(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "original.txt")
	dup := filepath.Join(dir, "copy.txt")
	if err := os.WriteFile(original, []byte("same content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dup, []byte("same content"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	repo := store.NewDuplicateRepo(db)
	detector := NewDuplicateDetector(repo, nil)

	folder := domain.Folder{ID: "f1", Path: dir, RemoveDuplicates: true, ScanDepth: 0}
	info, err := fileinfo.FromPath(dup)
	if err != nil {
		t.Fatal(err)
	}

	detector.Check(folder, info)

	if _, err := os.Stat(dup); !os.IsNotExist(err) {
		t.Errorf("expected duplicate trashed, stat err=%v", err)
	}
	if _, err := os.Stat(original); err != nil {
		t.Errorf("expected original to remain: %v", err)
	}

	removals, err := repo.ListByFolder(folder.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(removals) != 1 || removals[0].OriginalPath != original {
		t.Fatalf("expected one removal referencing %s, got %+v", original, removals)
	}
}

func TestDuplicateDetectorIgnoresDistinctContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	detector := NewDuplicateDetector(store.NewDuplicateRepo(db), nil)
	folder := domain.Folder{ID: "f1", Path: dir, RemoveDuplicates: true, ScanDepth: 0}

	info, err := fileinfo.FromPath(b)
	if err != nil {
		t.Fatal(err)
	}
	detector.Check(folder, info)

	if _, err := os.Stat(b); err != nil {
		t.Errorf("expected distinct file to remain: %v", err)
	}
}

func TestDuplicateDetectorNoopWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("same"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same"), 0644); err != nil {
		t.Fatal(err)
	}

	db := setupStore(t)
	detector := NewDuplicateDetector(store.NewDuplicateRepo(db), nil)
	folder := domain.Folder{ID: "f1", Path: dir, RemoveDuplicates: false, ScanDepth: 0}

	info, err := fileinfo.FromPath(b)
	if err != nil {
		t.Fatal(err)
	}
	detector.Check(folder, info)

	if _, err := os.Stat(b); err != nil {
		t.Errorf("expected file to remain when RemoveDuplicates is false: %v", err)
	}
}
