package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerWithWriter(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerWithWriter(slog.LevelInfo, "text", &buf)

		logger.Info("task added", "task", "render")

		out := buf.String()
		if !strings.Contains(out, "task added") || !strings.Contains(out, "task=render") {
			t.Fatalf("unexpected output: %s", out)
		}
	})
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerWithWriter(slog.LevelInfo, "JSON", &buf)

		logger.Info("task added", "task", "render")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if rec["msg"] != "task added" || rec["task"] != "render" {
			t.Fatalf("unexpected record: %v", rec)
		}
	})
	t.Run("Level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

		logger.Info("hidden")
		logger.Debug("hidden")

		if buf.Len() != 0 {
			t.Fatalf("records below the level were written: %s", buf.String())
		}

		logger.Warn("shown")

		if !strings.Contains(buf.String(), "shown") {
			t.Fatal("warn record missing")
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
