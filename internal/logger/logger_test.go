package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
		{"bogus", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "collabd.log")

	l, err := New(LevelInfo, logPath, "gateway")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	l.Info("client connected")
	l.Debug("suppressed at info level")
	l.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	out := string(content)
	if !strings.Contains(out, "client connected") {
		t.Errorf("Log file missing info message, got: %s", out)
	}
	if strings.Contains(out, "suppressed at info level") {
		t.Errorf("Debug message leaked through info level")
	}
	if !strings.Contains(out, "[gateway]") {
		t.Errorf("Log file missing prefix, got: %s", out)
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "collabd.log")

	l, err := New(LevelInfo, logPath, "coordinator")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	l.WithPrefix("locks").Info("sweep started")
	l.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), "[coordinator:locks]") {
		t.Errorf("Log file missing combined prefix, got: %s", content)
	}
}

func TestSetLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "collabd.log")

	l, err := New(LevelInfo, logPath, "")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	l.Debug("before")
	l.SetLevel(LevelDebug)
	l.Debug("after")
	l.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	out := string(content)
	if strings.Contains(out, "before") {
		t.Errorf("Debug message logged while level was INFO")
	}
	if !strings.Contains(out, "after") {
		t.Errorf("Debug message missing after level change to DEBUG")
	}
}

func TestLoggerDisabled(t *testing.T) {
	l, err := New(LevelNone, "", "test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Close()

	// Must not panic
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestGlobalLogger(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() returned nil")
	}

	// Global helpers must work without Init
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")
}
