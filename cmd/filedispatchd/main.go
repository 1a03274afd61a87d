// cmd/filedispatchd/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/filedispatch/agent/internal/config"
	"github.com/filedispatch/agent/internal/daemon"
	"github.com/filedispatch/agent/internal/logging"
)

const defaultConfigPath = "/usr/local/etc/filedispatch/config.yaml"

// loadConfig reads config.yaml (built-in defaults if it is missing or
// unreadable), then lets any set FILEDISPATCH_DB, FILEDISPATCH_CONTROL_ADDR
// or FILEDISPATCH_HOUSEKEEPING_CRON env var override the matching value,
// whether or not the file set it.
func loadConfig() config.Global {
	path := os.Getenv("FILEDISPATCH_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadGlobal(path)
	if err != nil {
		cfg, _ = config.LoadGlobal(os.DevNull) // applies defaults via the zero-value path
	}

	if v := os.Getenv("FILEDISPATCH_DB"); v != "" {
		cfg.Daemon.DBPath = v
	}
	if v := os.Getenv("FILEDISPATCH_CONTROL_ADDR"); v != "" {
		cfg.Daemon.ControlAddress = v
	}
	if v := os.Getenv("FILEDISPATCH_HOUSEKEEPING_CRON"); v != "" {
		cfg.Daemon.HousekeepingCron = v
	}
	return *cfg
}

// newLogger builds the daemon's structured logger from the loaded config,
// writing through a rotating file alongside the database and falling back
// to stdout if the log file can't be opened — the same degrade-don't-fail
// behavior the teacher's initLogWriter call site applies.
func newLogger(cfg config.Global) *slog.Logger {
	logPath := filepath.Join(filepath.Dir(cfg.Daemon.DBPath), "filedispatchd.log")
	w, err := logging.NewRotatingWriter(logPath, 50*1024*1024)
	if err != nil {
		logger := logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, os.Stdout)
		logger.Warn("failed to initialize rotating log writer, using stdout", "error", err, "path", logPath)
		return logger
	}
	return logging.NewLogger(cfg.Logging.Format, cfg.Logging.Level, w)
}

func main() {
	cfg := loadConfig()

	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.DBPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "creating database directory: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	d, err := daemon.New(daemon.Config{
		DBPath:           cfg.Daemon.DBPath,
		ControlAddr:      cfg.Daemon.ControlAddress,
		HousekeepingCron: cfg.Daemon.HousekeepingCron,
		DebounceMS:       cfg.Daemon.DebounceMS,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing daemon: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived shutdown signal")
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "daemon error: %v\n", err)
		os.Exit(1)
	}
}
