// internal/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGlobalAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("daemon:\n  db_path: /tmp/state.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGlobal(path)
	if err != nil {
		t.Fatalf("LoadGlobal failed: %v", err)
	}

	if cfg.Daemon.DBPath != "/tmp/state.db" {
		t.Errorf("expected explicit db_path to survive, got %q", cfg.Daemon.DBPath)
	}
	if cfg.Daemon.ControlAddress == "" {
		t.Error("expected a default control address")
	}
	if cfg.Daemon.HousekeepingCron == "" {
		t.Error("expected a default housekeeping cron expression")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadGlobalMissingFile(t *testing.T) {
	if _, err := LoadGlobal(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
