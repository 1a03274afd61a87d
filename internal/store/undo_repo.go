package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// UndoRetentionLimit is K in "trim the table to the newest K entries
// (default 50)" (§4.5).
const UndoRetentionLimit = 50

// UndoRepo is the CRUD surface over undo_entries.
type UndoRepo struct {
	db *DB
}

func NewUndoRepo(db *DB) *UndoRepo { return &UndoRepo{db: db} }

// Append inserts an UndoEntry and trims the table to the newest
// UndoRetentionLimit rows, in the same transaction (§4.5 "enforce on
// insert, not on startup").
func (r *UndoRepo) Append(e domain.UndoEntry) (int64, error) {
	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning undo insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO undo_entries (log_id, action_type, original_path, current_path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.LogID, e.ActionType, e.OriginalPath, e.CurrentPath, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting undo entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`
		DELETE FROM undo_entries WHERE id NOT IN (
			SELECT id FROM undo_entries ORDER BY created_at DESC, id DESC LIMIT ?
		)`, UndoRetentionLimit); err != nil {
		return 0, fmt.Errorf("trimming undo entries: %w", err)
	}

	return id, tx.Commit()
}

// Get returns an undo entry by id.
func (r *UndoRepo) Get(id int64) (domain.UndoEntry, error) {
	row := r.db.Conn().QueryRow(`
		SELECT id, log_id, action_type, original_path, current_path, created_at
		FROM undo_entries WHERE id=?`, id)
	var e domain.UndoEntry
	var createdAt string
	err := row.Scan(&e.ID, &e.LogID, &e.ActionType, &e.OriginalPath, &e.CurrentPath, &createdAt)
	if err == sql.ErrNoRows {
		return domain.UndoEntry{}, fmt.Errorf("undo entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.UndoEntry{}, fmt.Errorf("getting undo entry: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

// List returns undo entries newest-first.
func (r *UndoRepo) List() ([]domain.UndoEntry, error) {
	rows, err := r.db.Conn().Query(`
		SELECT id, log_id, action_type, original_path, current_path, created_at
		FROM undo_entries ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing undo entries: %w", err)
	}
	defer rows.Close()

	var out []domain.UndoEntry
	for rows.Next() {
		var e domain.UndoEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.LogID, &e.ActionType, &e.OriginalPath, &e.CurrentPath, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning undo entry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an undo entry, called after it is successfully applied
// (§4.5 "After a successful undo, delete the UndoEntry").
func (r *UndoRepo) Delete(id int64) error {
	_, err := r.db.Conn().Exec(`DELETE FROM undo_entries WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting undo entry: %w", err)
	}
	return nil
}
