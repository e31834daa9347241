// Package cli provides the command-line interface for the python build system.
package cli

import (
	"log/slog"
	"os"
	"strings"
)

// NewLoggers creates default loggers with JSON output.
func NewLoggers(level slog.Level) (*slog.Logger, *slog.Logger) {
	return NewLoggersWithOutputFormat(level, "json")
}

// NewLoggersWithOutputFormat creates loggers with awareness of output format.
// All logs go to stderr so stdout stays clean for reports and JSON output.
func NewLoggersWithOutputFormat(level slog.Level, outputFormat string) (*slog.Logger, *slog.Logger) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: a.Value}
			}
			return a
		},
	}

	var handler slog.Handler
	if outputFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	stdout := slog.New(handler)
	stderr := slog.New(handler)
	return stdout, stderr
}

// ParseLogLevelOrDefault parses a log level string or returns a default level.
func ParseLogLevelOrDefault(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
