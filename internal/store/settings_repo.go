package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/filedispatch/agent/internal/domain"
)

const settingsKey = "settings"

// SettingsRepo realizes §6's "Settings store: single JSON document at key
// 'settings' in an external key-value store" against the kv_store table.
type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Load returns the persisted settings, or domain.DefaultSettings() if none
// have been saved yet.
func (r *SettingsRepo) Load() (domain.Settings, error) {
	var raw string
	err := r.db.Conn().QueryRow(`SELECT value FROM kv_store WHERE key=?`, settingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	var s domain.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return domain.Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// Save replaces the persisted settings document.
func (r *SettingsRepo) Save(s domain.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = r.db.Conn().Exec(`
		INSERT INTO kv_store (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value`, settingsKey, string(raw))
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
