package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// MatchRepo backs the Match Registry (§4.6): `(rule_id, file_path) ->
// fingerprint`.
type MatchRepo struct {
	db *DB
}

func NewMatchRepo(db *DB) *MatchRepo { return &MatchRepo{db: db} }

// Upsert records a match, replacing any prior fingerprint for the same
// (rule_id, file_path).
func (r *MatchRepo) Upsert(m domain.MatchRecord) error {
	_, err := r.db.Conn().Exec(`
		INSERT INTO rule_matches (rule_id, file_path, fingerprint, matched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (rule_id, file_path) DO UPDATE SET fingerprint=excluded.fingerprint, matched_at=excluded.matched_at`,
		m.RuleID, m.FilePath, m.Fingerprint, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting match record: %w", err)
	}
	return nil
}

// HasMatch implements §4.6's two-mode lookup: with a fingerprint, it
// requires an exact match; without one (empty string), any record for the
// pair counts.
func (r *MatchRepo) HasMatch(ruleID domain.RuleID, filePath, fingerprint string) (bool, error) {
	var stored string
	err := r.db.Conn().QueryRow(`
		SELECT fingerprint FROM rule_matches WHERE rule_id=? AND file_path=?`,
		ruleID, filePath).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking match record: %w", err)
	}
	if fingerprint == "" {
		return true, nil
	}
	return stored == fingerprint, nil
}

// ClearRule removes all match records for a rule; called whenever a rule
// is updated (§4.6).
func (r *MatchRepo) ClearRule(ruleID domain.RuleID) error {
	_, err := r.db.Conn().Exec(`DELETE FROM rule_matches WHERE rule_id=?`, ruleID)
	if err != nil {
		return fmt.Errorf("clearing rule matches: %w", err)
	}
	return nil
}
