package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// LogRepo is the append-only CRUD surface over the logs table.
type LogRepo struct {
	db *DB
}

func NewLogRepo(db *DB) *LogRepo { return &LogRepo{db: db} }

// Append writes one LogEntry. Best-effort per §4.5 — a caller that treats
// the error as non-fatal matches the audit writer's documented behavior.
func (r *LogRepo) Append(e domain.LogEntry) (int64, error) {
	var detailsJSON sql.NullString
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return 0, fmt.Errorf("encoding details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(b), Valid: true}
	}

	var ruleID any
	if e.RuleID != nil {
		ruleID = string(*e.RuleID)
	}

	res, err := r.db.Conn().Exec(`
		INSERT INTO logs (rule_id, rule_name, file_path, action_type, details, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ruleID, e.RuleName, e.FilePath, e.ActionType, detailsJSON, e.Status, e.Error,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("appending log entry: %w", err)
	}
	return res.LastInsertId()
}

// List returns log entries filtered by rule name and/or status, newest
// first, capped at limit (0 = unlimited).
func (r *LogRepo) List(ruleName, status string, limit int) ([]domain.LogEntry, error) {
	query := `SELECT id, rule_id, rule_name, file_path, action_type, details, status, error, created_at FROM logs WHERE 1=1`
	var args []any
	if ruleName != "" {
		query += ` AND rule_name = ?`
		args = append(args, ruleName)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var ruleID, details, errStr sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &ruleID, &e.RuleName, &e.FilePath, &e.ActionType,
			&details, &e.Status, &errStr, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		if ruleID.Valid {
			id := domain.RuleID(ruleID.String)
			e.RuleID = &id
		}
		e.Error = errStr.String
		if details.Valid {
			var d domain.ActionDetails
			if err := json.Unmarshal([]byte(details.String), &d); err == nil {
				e.Details = &d
			}
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purge deletes log entries older than retentionDays (§3 "Retention: purged
// after N days where N is a setting").
func (r *LogRepo) Purge(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)
	res, err := r.db.Conn().Exec(`DELETE FROM logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging logs: %w", err)
	}
	return res.RowsAffected()
}
