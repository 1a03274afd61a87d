package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/google/uuid"
)

// FolderRepo is the CRUD surface over the folders table.
type FolderRepo struct {
	db *DB
}

func NewFolderRepo(db *DB) *FolderRepo { return &FolderRepo{db: db} }

func scanFolder(row interface {
	Scan(dest ...any) error
}) (domain.Folder, error) {
	var f domain.Folder
	var parentID sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&f.ID, &f.Path, &f.Name, &f.Enabled, &f.ScanDepth,
		&f.RemoveDuplicates, &f.TrashIncompleteDownloads, &f.IncompleteTimeoutMinutes,
		&parentID, &f.IsGroup, &createdAt, &updatedAt)
	if err != nil {
		return domain.Folder{}, err
	}
	if parentID.Valid {
		pid := domain.FolderID(parentID.String)
		f.ParentID = &pid
	}
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	f.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return f, nil
}

const folderColumns = `id, path, name, enabled, scan_depth, remove_duplicates, trash_incomplete_downloads, incomplete_timeout_minutes, parent_id, is_group, created_at, updated_at`

// Create inserts a new folder, assigning it a fresh id if empty.
func (r *FolderRepo) Create(f domain.Folder) (domain.Folder, error) {
	if f.ID == "" {
		f.ID = domain.FolderID(uuid.NewString())
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	var parentID any
	if f.ParentID != nil {
		parentID = string(*f.ParentID)
	}

	_, err := r.db.Conn().Exec(`
		INSERT INTO folders (`+folderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Path, f.Name, f.Enabled, f.ScanDepth, f.RemoveDuplicates,
		f.TrashIncompleteDownloads, f.IncompleteTimeoutMinutes, parentID, f.IsGroup,
		f.CreatedAt.Format(time.RFC3339), f.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.Folder{}, fmt.Errorf("inserting folder: %w", err)
	}
	return f, nil
}

// Get returns a folder by id.
func (r *FolderRepo) Get(id domain.FolderID) (domain.Folder, error) {
	row := r.db.Conn().QueryRow(`SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)
	f, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return domain.Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Folder{}, fmt.Errorf("getting folder: %w", err)
	}
	return f, nil
}

// List returns every folder, enabled or not.
func (r *FolderRepo) List() ([]domain.Folder, error) {
	rows, err := r.db.Conn().Query(`SELECT ` + folderColumns + ` FROM folders ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	defer rows.Close()

	var out []domain.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update replaces a folder's mutable fields.
func (r *FolderRepo) Update(f domain.Folder) error {
	f.UpdatedAt = time.Now().UTC()
	var parentID any
	if f.ParentID != nil {
		parentID = string(*f.ParentID)
	}
	res, err := r.db.Conn().Exec(`
		UPDATE folders SET path=?, name=?, enabled=?, scan_depth=?, remove_duplicates=?,
			trash_incomplete_downloads=?, incomplete_timeout_minutes=?, parent_id=?, is_group=?, updated_at=?
		WHERE id=?`,
		f.Path, f.Name, f.Enabled, f.ScanDepth, f.RemoveDuplicates,
		f.TrashIncompleteDownloads, f.IncompleteTimeoutMinutes, parentID, f.IsGroup,
		f.UpdatedAt.Format(time.RFC3339), f.ID)
	if err != nil {
		return fmt.Errorf("updating folder: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("folder %s: %w", f.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a folder, reparenting its children to its own parent
// first (§3 Folder invariant).
func (r *FolderRepo) Delete(id domain.FolderID) error {
	f, err := r.Get(id)
	if err != nil {
		return err
	}

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	var newParent any
	if f.ParentID != nil {
		newParent = string(*f.ParentID)
	}
	if _, err := tx.Exec(`UPDATE folders SET parent_id=? WHERE parent_id=?`, newParent, id); err != nil {
		return fmt.Errorf("reparenting children: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM folders WHERE id=?`, id); err != nil {
		return fmt.Errorf("deleting folder: %w", err)
	}
	return tx.Commit()
}
