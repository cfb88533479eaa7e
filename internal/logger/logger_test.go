package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug json", "debug", "json"},
		{"info json", "info", "json"},
		{"warn json", "warn", "json"},
		{"error json", "error", "json"},
		{"info text", "info", "text"},
		{"unknown level defaults to info", "unknown", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.level, tt.format, &buf)
			if log == nil {
				t.Error("expected non-nil logger")
			}
		})
	}
}

func TestLogFunctions(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "text", &buf)

	// Replace default logger temporarily
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	Debug("debug message", "key", "value")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("expected debug message in output")
	}

	buf.Reset()
	Info("info message", "key", "value")
	if !strings.Contains(buf.String(), "info message") {
		t.Error("expected info message in output")
	}

	buf.Reset()
	Warn("warn message", "key", "value")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("expected warn message in output")
	}

	buf.Reset()
	Error("error message", "key", "value")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("expected error message in output")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "text", &buf)
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	withLogger := With("component", "test")
	if withLogger == nil {
		t.Error("expected non-nil logger from With")
	}
}

func TestWithGroup(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "text", &buf)
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	groupLogger := WithGroup("test-group")
	if groupLogger == nil {
		t.Error("expected non-nil logger from WithGroup")
	}
}

func TestLogSelection(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	LogSelection("News HD", "http://example.com/stream", 2, 5)

	output := buf.String()
	if !strings.Contains(output, "selection") {
		t.Error("expected 'selection' in output")
	}
	if !strings.Contains(output, "News HD") {
		t.Error("expected group in output")
	}
}

func TestLogFailover(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf)
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	LogFailover("News HD", 1, 2)

	output := buf.String()
	if !strings.Contains(output, "failover") {
		t.Error("expected 'failover' in output")
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	log := New("error", "json", &buf)
	oldDefault := defaultLogger
	defaultLogger = log
	defer func() { defaultLogger = oldDefault }()

	LogError("test_operation", &testError{msg: "test error"}, "extra", "data")

	output := buf.String()
	if !strings.Contains(output, "test_operation") {
		t.Error("expected operation in output")
	}
	if !strings.Contains(output, "test error") {
		t.Error("expected error message in output")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestReconfigure(t *testing.T) {
	var buf bytes.Buffer
	oldDefault, oldOutput, oldFormat := defaultLogger, output, currentFormat
	oldLevel := levelVar.Level()
	defer func() {
		defaultLogger, output, currentFormat = oldDefault, oldOutput, oldFormat
		levelVar.Set(oldLevel)
	}()
	output = &buf
	currentFormat = "json"
	defaultLogger = newLogger("json", &buf)
	levelVar.Set(slog.LevelInfo)

	// Must return promptly even though it logs its own confirmation.
	done := make(chan struct{})
	go func() {
		Reconfigure("debug", "text")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Reconfigure did not return")
	}

	if currentFormat != "text" {
		t.Errorf("expected format text, got %q", currentFormat)
	}
	if !strings.Contains(buf.String(), "logger_reconfigured") {
		t.Error("expected confirmation line in output")
	}

	buf.Reset()
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("expected debug output after lowering level")
	}
}

func TestDefault(t *testing.T) {
	// Reset defaultLogger
	oldDefault := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = oldDefault }()

	log := Default()
	if log == nil {
		t.Error("expected non-nil default logger")
	}
}
