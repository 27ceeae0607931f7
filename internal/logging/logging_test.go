package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")
	logger.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}

	buf.Reset()
	logger = NewWithWriter(&buf, "warn", "text")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=kept") {
		t.Errorf("expected text output, got %s", out)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no credentials", "redis://localhost:6379", "redis://localhost:6379"},
		{"user and password", "postgres://app:hunter2@db:5432/app", "postgres://app@db:5432/app"},
		{"password only", "redis://:hunter2@cache:6379/0", "redis://redacted@cache:6379/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactURL(tt.in); got != tt.want {
				t.Errorf("RedactURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://app:hunter2@db:5432/app"
	err := errors.New("dial " + dsn + " failed: password=hunter2 rejected")

	got := SanitizeError(err, dsn)
	if strings.Contains(got, "hunter2") {
		t.Errorf("sanitized error still contains the password: %s", got)
	}
	if !strings.Contains(got, "password=redacted") {
		t.Errorf("expected password pattern to be redacted: %s", got)
	}

	if SanitizeError(nil) != "" {
		t.Error("nil error should render empty")
	}
}
