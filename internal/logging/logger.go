// internal/logging/logger.go
//
// Package logging builds the daemon's structured logger from its bootstrap
// config instead of reaching for slog.Default(), and attaches per-rule
// attribution the way the engine's error and outcome logs need. Grounded
// on the teacher's internal/logging/logger.go.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger writing to w (or os.Stdout if w is nil)
// using either a JSON or text handler depending on format, at the given
// level. Unrecognized levels default to info.
func NewLogger(format string, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// WithRule returns a logger with the triggering rule's name attached, so
// every log line it produces can be traced back to the rule that caused it.
func WithRule(logger *slog.Logger, ruleName string) *slog.Logger {
	return logger.With("rule", ruleName)
}
