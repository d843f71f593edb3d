package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per line. Loggers derived with With share
// the underlying writer and its lock.
type JSONLogger struct {
	out  *sink
	base map[string]any
	now  func() time.Time
}

type sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewJSONLogger appends to path, creating parent directories. An empty path
// yields a logger that discards everything.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if path == "" {
		return NewWriterLogger(io.Discard), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLogger{out: &sink{w: f}, now: time.Now}, nil
}

func NewWriterLogger(w io.Writer) *JSONLogger {
	wc, ok := w.(io.WriteCloser)
	if !ok {
		wc = nopCloser{Writer: w}
	}
	return &JSONLogger{out: &sink{w: wc}, now: time.Now}
}

// With returns a logger that stamps fields onto every entry.
func (l *JSONLogger) With(fields map[string]any) *JSONLogger {
	if l == nil {
		return nil
	}
	base := make(map[string]any, len(l.base)+len(fields))
	for k, v := range l.base {
		base[k] = v
	}
	for k, v := range fields {
		base[k] = v
	}
	return &JSONLogger{out: l.out, base: base, now: l.now}
}

func (l *JSONLogger) Info(msg string, fields map[string]any) {
	l.log("info", msg, fields)
}

func (l *JSONLogger) Error(msg string, fields map[string]any) {
	l.log("error", msg, fields)
}

func (l *JSONLogger) log(level, msg string, fields map[string]any) {
	if l == nil || l.out == nil {
		return
	}
	entry := map[string]any{
		"ts":    l.now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range l.base {
		entry[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"ts": entry["ts"], "level": "error", "msg": "telemetry.encode_failed", "event": msg, "error": err.Error()})
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(append(b, '\n'))
}

func (l *JSONLogger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
