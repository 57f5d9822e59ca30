// Package logging provides the single slog.Logger construction point used
// across the engine, configurable by level and output path the way
// config.Config exposes them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a *slog.Logger writing to output (os.Stdout if empty) at the
// given level. level is matched case-insensitively against the standard
// slog names; an unrecognized level falls back to Info.
func New(level string, output string) (*slog.Logger, error) {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		w = f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
