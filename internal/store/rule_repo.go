package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/google/uuid"
)

// RuleRepo is the CRUD surface over the rules table. Conditions and Actions
// are stored as JSON blobs (§6 "Persisted database schema").
type RuleRepo struct {
	db *DB
}

func NewRuleRepo(db *DB) *RuleRepo { return &RuleRepo{db: db} }

func scanRule(row interface{ Scan(dest ...any) error }) (domain.Rule, error) {
	var r domain.Rule
	var conditionsJSON, actionsJSON, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.FolderID, &r.Name, &r.Enabled, &r.StopProcessing,
		&conditionsJSON, &actionsJSON, &r.Position, &createdAt, &updatedAt)
	if err != nil {
		return domain.Rule{}, err
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &r.Conditions); err != nil {
		return domain.Rule{}, fmt.Errorf("decoding conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &r.Actions); err != nil {
		return domain.Rule{}, fmt.Errorf("decoding actions: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

const ruleColumns = `id, folder_id, name, enabled, stop_processing, conditions, actions, position, created_at, updated_at`

// Create inserts a rule at the end of its folder's position order.
func (r *RuleRepo) Create(rule domain.Rule) (domain.Rule, error) {
	if rule.ID == "" {
		rule.ID = domain.RuleID(uuid.NewString())
	}
	now := time.Now().UTC()
	rule.CreatedAt, rule.UpdatedAt = now, now

	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("encoding conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("encoding actions: %w", err)
	}

	if rule.Position == 0 {
		var max sql.NullInt64
		r.db.Conn().QueryRow(`SELECT MAX(position) FROM rules WHERE folder_id=?`, rule.FolderID).Scan(&max)
		if max.Valid {
			rule.Position = int(max.Int64) + 1
		}
	}

	_, err = r.db.Conn().Exec(`
		INSERT INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.FolderID, rule.Name, rule.Enabled, rule.StopProcessing,
		string(conditionsJSON), string(actionsJSON), rule.Position,
		rule.CreatedAt.Format(time.RFC3339), rule.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.Rule{}, fmt.Errorf("inserting rule: %w", err)
	}
	return rule, nil
}

// Get returns a rule by id.
func (r *RuleRepo) Get(id domain.RuleID) (domain.Rule, error) {
	row := r.db.Conn().QueryRow(`SELECT `+ruleColumns+` FROM rules WHERE id=?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return domain.Rule{}, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Rule{}, fmt.Errorf("getting rule: %w", err)
	}
	return rule, nil
}

// ListByFolder returns a folder's rules ordered by position ascending,
// exactly as §4.2 step 4 requires.
func (r *RuleRepo) ListByFolder(folderID domain.FolderID, onlyEnabled bool) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE folder_id=?`
	if onlyEnabled {
		query += ` AND enabled=1`
	}
	query += ` ORDER BY position ASC`

	rows, err := r.db.Conn().Query(query, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Update replaces a rule's fields, including its position.
func (r *RuleRepo) Update(rule domain.Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("encoding conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("encoding actions: %w", err)
	}

	res, err := r.db.Conn().Exec(`
		UPDATE rules SET name=?, enabled=?, stop_processing=?, conditions=?, actions=?, position=?, updated_at=?
		WHERE id=?`,
		rule.Name, rule.Enabled, rule.StopProcessing, string(conditionsJSON),
		string(actionsJSON), rule.Position, rule.UpdatedAt.Format(time.RFC3339), rule.ID)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a rule. Sibling positions are not re-packed (§3 invariant).
func (r *RuleRepo) Delete(id domain.RuleID) error {
	res, err := r.db.Conn().Exec(`DELETE FROM rules WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

// Reorder assigns dense 0-based positions to ids, in the given order, in a
// single transaction (§4.11 "multi-row reorders run in a single
// transaction").
func (r *RuleRepo) Reorder(folderID domain.FolderID, ids []domain.RuleID) error {
	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, id := range ids {
		if _, err := tx.Exec(`UPDATE rules SET position=?, updated_at=? WHERE id=? AND folder_id=?`,
			i, now, id, folderID); err != nil {
			return fmt.Errorf("reordering rule %s: %w", id, err)
		}
	}
	return tx.Commit()
}
