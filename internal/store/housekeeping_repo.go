package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// DuplicateRepo is the append-only CRUD surface over duplicate_removals.
type DuplicateRepo struct {
	db *DB
}

func NewDuplicateRepo(db *DB) *DuplicateRepo { return &DuplicateRepo{db: db} }

// Append records a duplicate removal (§4.7).
func (r *DuplicateRepo) Append(d domain.DuplicateRemoval) (int64, error) {
	res, err := r.db.Conn().Exec(`
		INSERT INTO duplicate_removals (folder_id, removed_path, content_hash, original_path, removed_at)
		VALUES (?, ?, ?, ?, ?)`,
		d.FolderID, d.RemovedPath, d.ContentHash, d.OriginalPath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("recording duplicate removal: %w", err)
	}
	return res.LastInsertId()
}

// ListByFolder returns duplicate removals for a folder, newest first.
func (r *DuplicateRepo) ListByFolder(folderID domain.FolderID) ([]domain.DuplicateRemoval, error) {
	rows, err := r.db.Conn().Query(`
		SELECT id, folder_id, removed_path, content_hash, original_path, removed_at
		FROM duplicate_removals WHERE folder_id=? ORDER BY removed_at DESC`, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing duplicate removals: %w", err)
	}
	defer rows.Close()

	var out []domain.DuplicateRemoval
	for rows.Next() {
		var d domain.DuplicateRemoval
		var removedAt string
		if err := rows.Scan(&d.ID, &d.FolderID, &d.RemovedPath, &d.ContentHash, &d.OriginalPath, &removedAt); err != nil {
			return nil, fmt.Errorf("scanning duplicate removal: %w", err)
		}
		d.RemovedAt, _ = time.Parse(time.RFC3339, removedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// IncompleteRepo is the CRUD surface over incomplete_files (§4.8).
type IncompleteRepo struct {
	db *DB
}

func NewIncompleteRepo(db *DB) *IncompleteRepo { return &IncompleteRepo{db: db} }

// Get returns the observation record for (folderID, filePath), if any.
func (r *IncompleteRepo) Get(folderID domain.FolderID, filePath string) (domain.IncompleteFile, bool, error) {
	row := r.db.Conn().QueryRow(`
		SELECT folder_id, file_path, first_seen, size_bytes FROM incomplete_files
		WHERE folder_id=? AND file_path=?`, folderID, filePath)
	var f domain.IncompleteFile
	var firstSeen string
	err := row.Scan(&f.FolderID, &f.FilePath, &firstSeen, &f.SizeBytes)
	if err == sql.ErrNoRows {
		return domain.IncompleteFile{}, false, nil
	}
	if err != nil {
		return domain.IncompleteFile{}, false, fmt.Errorf("getting incomplete record: %w", err)
	}
	f.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	return f, true, nil
}

// Upsert inserts or replaces the observation record for a path.
func (r *IncompleteRepo) Upsert(f domain.IncompleteFile) error {
	_, err := r.db.Conn().Exec(`
		INSERT INTO incomplete_files (folder_id, file_path, first_seen, size_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (folder_id, file_path) DO UPDATE SET first_seen=excluded.first_seen, size_bytes=excluded.size_bytes`,
		f.FolderID, f.FilePath, f.FirstSeen.UTC().Format(time.RFC3339), f.SizeBytes)
	if err != nil {
		return fmt.Errorf("upserting incomplete record: %w", err)
	}
	return nil
}

// Delete removes the observation record for a path.
func (r *IncompleteRepo) Delete(folderID domain.FolderID, filePath string) error {
	_, err := r.db.Conn().Exec(`DELETE FROM incomplete_files WHERE folder_id=? AND file_path=?`, folderID, filePath)
	if err != nil {
		return fmt.Errorf("deleting incomplete record: %w", err)
	}
	return nil
}

// ListByFolder returns every tracked path for a folder, for GC of paths no
// longer present on disk (§4.8 "delete records whose path was not seen").
func (r *IncompleteRepo) ListByFolder(folderID domain.FolderID) ([]domain.IncompleteFile, error) {
	rows, err := r.db.Conn().Query(`
		SELECT folder_id, file_path, first_seen, size_bytes FROM incomplete_files WHERE folder_id=?`, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing incomplete records: %w", err)
	}
	defer rows.Close()

	var out []domain.IncompleteFile
	for rows.Next() {
		var f domain.IncompleteFile
		var firstSeen string
		if err := rows.Scan(&f.FolderID, &f.FilePath, &firstSeen, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning incomplete record: %w", err)
		}
		f.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		out = append(out, f)
	}
	return out, rows.Err()
}
