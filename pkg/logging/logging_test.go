package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", slog.LevelInfo)

	logger.Info("mail sent", "subject", "[Critical] CloudWatch Alarm : cpu-high")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "mail sent" {
		t.Errorf("expected msg 'mail sent', got %q", m["msg"])
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "TEXT", slog.LevelInfo)

	logger.Info("mail sent", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "msg=\"mail sent\"") {
		t.Errorf("expected text output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("expected key=value in output, got %q", out)
	}
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", slog.LevelWarn)

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("expected warn to be logged")
	}
}
