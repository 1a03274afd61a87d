// internal/config/loader.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadGlobal loads the daemon's bootstrap configuration from a YAML file,
// applying defaults for anything left unset.
func LoadGlobal(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Global
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyGlobalDefaults(&cfg)
	return &cfg, nil
}

func applyGlobalDefaults(cfg *Global) {
	if cfg.Daemon.DBPath == "" {
		cfg.Daemon.DBPath = "/Library/Application Support/filedispatch/state.db"
	}
	if cfg.Daemon.ControlAddress == "" {
		cfg.Daemon.ControlAddress = "127.0.0.1:8787"
	}
	if cfg.Daemon.HousekeepingCron == "" {
		cfg.Daemon.HousekeepingCron = "0 */5 * * * *"
	}
	if cfg.Daemon.DebounceMS <= 0 {
		cfg.Daemon.DebounceMS = 2000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
