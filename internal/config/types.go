// internal/config/types.go
package config

// Global is the daemon's bootstrap configuration, loaded once from
// config.yaml at process start. User-editable automation state (folders,
// rules, settings) lives in the database instead — see internal/store —
// and is mutated through the control surface at runtime.
type Global struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
}

type DaemonConfig struct {
	DBPath           string `yaml:"db_path"`
	ControlAddress   string `yaml:"control_address"`
	HousekeepingCron string `yaml:"housekeeping_cron"`
	DebounceMS       int    `yaml:"debounce_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
