// Package enginelog sets up the engine's structured logging. It mirrors
// the host application's own logging conventions: a JSON slog handler,
// level controlled by configuration, and an optional stderr tee.
package enginelog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls log output.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// WriteToStderr additionally tees JSON records to stderr; useful for
	// cmd/enginectl where there is no separate log viewer.
	WriteToStderr bool
	// Writer receives log records. Defaults to io.Discard when nil and
	// WriteToStderr is false, so a host embedding the engine without
	// configuring logging gets silence rather than a panic.
	Writer io.Writer
}

// DefaultConfig returns info-level logging to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", WriteToStderr: true}
}

// New builds a slog.Logger per cfg. It never returns an error: a bad
// Level string falls back to info rather than failing startup.
func New(cfg Config) *slog.Logger {
	var output io.Writer = io.Discard
	switch {
	case cfg.Writer != nil && cfg.WriteToStderr:
		output = io.MultiWriter(cfg.Writer, os.Stderr)
	case cfg.Writer != nil:
		output = cfg.Writer
	case cfg.WriteToStderr:
		output = os.Stderr
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler)
}

// SetupDefault installs a default-configured logger as the process-wide
// slog default, for hosts that don't want to thread a *slog.Logger
// through every engine call.
func SetupDefault() {
	slog.SetDefault(New(DefaultConfig()))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
