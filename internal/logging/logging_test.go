package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "date", "2024-06-01")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "date=2024-06-01") {
		t.Errorf("expected warn line with fields, got %q", out)
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates file and parent dirs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "app.log")

		logger, closer, err := Open(path, "info")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		logger.Info("started")
		if err := closer.Close(); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file not created: %v", err)
		}
		if !strings.Contains(string(data), "started") {
			t.Errorf("log file content = %q", data)
		}
	})

	t.Run("empty path returns error", func(t *testing.T) {
		if _, _, err := Open("", "info"); err == nil {
			t.Fatal("expected error for empty path")
		}
	})
}
