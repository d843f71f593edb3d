package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithStampsBaseFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf).With(map[string]any{"session_id": "abc"})
	l.Error("slideshow.rearm_failed", map[string]any{"error": errors.New("boom"), "position": 2})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["session_id"] != "abc" || entry["level"] != "error" || entry["msg"] != "slideshow.rearm_failed" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("expected error to be stringified, got %v", entry["error"])
	}
}

func TestNewJSONLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "termdeck.jsonl")
	for i := 0; i < 2; i++ {
		l, err := NewJSONLogger(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		l.Info("app.start", nil)
		if err := l.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := strings.Count(string(b), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *JSONLogger
	l.Info("x", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	discard, err := NewJSONLogger("")
	if err != nil {
		t.Fatalf("discard: %v", err)
	}
	discard.Info("x", nil)
}
