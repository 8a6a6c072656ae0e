// Package logging builds the process-wide structured logger. Logs go to the
// writer the host chooses (stderr for the CLI, so stdout stays clean for
// conversation output).
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a text-handler logger at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
