package cli

import (
	"log/slog"
	"testing"
)

func TestParseLogLevelOrDefault(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevelOrDefault(tt.input); got != tt.want {
				t.Errorf("ParseLogLevelOrDefault(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLoggers(t *testing.T) {
	stdout, stderr := NewLoggers(slog.LevelInfo)
	if stdout == nil || stderr == nil {
		t.Fatal("NewLoggers returned nil logger")
	}
	if !stdout.Enabled(nil, slog.LevelInfo) {
		t.Error("stdout logger should log at info")
	}
	if stdout.Enabled(nil, slog.LevelDebug) {
		t.Error("stdout logger should not log at debug")
	}
}

func TestNewLoggersWithOutputFormat(t *testing.T) {
	for _, format := range []string{"text", "json", ""} {
		t.Run(format, func(t *testing.T) {
			stdout, stderr := NewLoggersWithOutputFormat(slog.LevelDebug, format)
			if stdout == nil || stderr == nil {
				t.Fatal("nil logger")
			}
			if !stdout.Enabled(nil, slog.LevelDebug) {
				t.Error("debug level not honored")
			}
		})
	}
}
