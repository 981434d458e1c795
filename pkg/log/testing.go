package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// TestLogger records every entry as a JSON line in memory. Loggers derived
// with With write to the same buffer. It is safe for concurrent use.
type TestLogger struct {
	sink   *testSink
	level  Level
	fields map[string]interface{}
}

type testSink struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

// NewTestLogger returns a logger that keeps entries at or above level, and
// the buffer they are written to.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	log.SetLogger(logger)
//	// ...
//	assert.Contains(t, buf.String(), "search finished")
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &TestLogger{
		sink:   &testSink{buf: buf},
		level:  level,
		fields: map[string]interface{}{},
	}, buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, msg, fields) }

// Error accepts a leading error value the same way the zerolog logger does.
func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{"error", err}, fields[1:]...)
		}
	}
	t.write(LevelError, msg, fields)
}

// With returns a child that adds fields to every entry.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]interface{}, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	addPairs(merged, fields)
	return &TestLogger{sink: t.sink, level: t.level, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) write(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]interface{}{
		"level":   level.String(),
		"message": msg,
	}
	for k, v := range t.fields {
		entry[k] = v
	}
	addPairs(entry, fields)

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":"ERROR","message":%q}`, "unencodable entry: "+msg))
	}
	t.sink.mu.Lock()
	t.sink.buf.Write(line)
	t.sink.buf.WriteByte('\n')
	t.sink.mu.Unlock()
}

// addPairs copies key/value pairs into dst. Errors are stored by message.
func addPairs(dst map[string]interface{}, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Entries decodes everything recorded so far. Numbers come back as float64.
func (t *TestLogger) Entries() ([]map[string]interface{}, error) {
	t.sink.mu.Lock()
	data := t.sink.buf.String()
	t.sink.mu.Unlock()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any entry's message contains substr.
func (t *TestLogger) ContainsMessage(substr string) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if msg, ok := e["message"].(string); ok && strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// ContainsField reports whether any entry has key set to value, compared
// after a JSON round trip.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops everything recorded so far.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	t.sink.buf.Reset()
	t.sink.mu.Unlock()
}
