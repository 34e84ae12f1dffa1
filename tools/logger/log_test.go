package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "json", &buf)

	l.Info("dropped %d", 1)
	l.Warn("kept %d", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "kept 2") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", "json", &buf).With("worker", "3")
	l.Debug("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["worker"] != "3" {
		t.Errorf("expected worker field, got %v", line)
	}
	if line["message"] != "hello" {
		t.Errorf("unexpected message: %v", line["message"])
	}
}

func TestLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	l := New("verbose", "console", &bytes.Buffer{})
	if l.GetLevel() != INFO {
		t.Errorf("expected INFO, got %s", l.GetLevel())
	}
}
