package testutil

import (
	"strings"
	"sync"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.  Logger holds the dotted Named chain,
// empty for the root.
type LogEntry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// LogRecorder is a logging.Logger that keeps every entry in memory so tests
// can assert on what a component logged.  Children created through With and
// Named share the parent's sink, mirroring how zap loggers tee into one core.
type LogRecorder struct {
	sink  *logSink
	name  string
	bound []logging.Field
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogRecorder returns an empty recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{sink: &logSink{}}
}

func (r *LogRecorder) record(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(r.bound)+len(fields))
	all = append(all, r.bound...)
	all = append(all, fields...)

	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = append(r.sink.entries, LogEntry{
		Level:   level,
		Logger:  r.name,
		Message: msg,
		Fields:  all,
	})
}

func (r *LogRecorder) Debug(msg string, fields ...logging.Field) { r.record("debug", msg, fields) }
func (r *LogRecorder) Info(msg string, fields ...logging.Field)  { r.record("info", msg, fields) }
func (r *LogRecorder) Warn(msg string, fields ...logging.Field)  { r.record("warn", msg, fields) }
func (r *LogRecorder) Error(msg string, fields ...logging.Field) { r.record("error", msg, fields) }
func (r *LogRecorder) Fatal(msg string, fields ...logging.Field) { r.record("fatal", msg, fields) }

// With returns a child whose entries carry fields in addition to anything
// bound earlier in the chain.
func (r *LogRecorder) With(fields ...logging.Field) logging.Logger {
	child := *r
	child.bound = append(append([]logging.Field{}, r.bound...), fields...)
	return &child
}

// Named returns a child labelled name, extending any existing label with a dot.
func (r *LogRecorder) Named(name string) logging.Logger {
	child := *r
	if r.name != "" {
		child.name = r.name + "." + name
	} else {
		child.name = name
	}
	return &child
}

// Sync is a no-op; entries are never buffered.
func (r *LogRecorder) Sync() error { return nil }

// Entries returns a snapshot of everything recorded so far, in order.
func (r *LogRecorder) Entries() []LogEntry {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	out := make([]LogEntry, len(r.sink.entries))
	copy(out, r.sink.entries)
	return out
}

// Reset discards all recorded entries.
func (r *LogRecorder) Reset() {
	r.sink.mu.Lock()
	defer r.sink.mu.Unlock()
	r.sink.entries = r.sink.entries[:0]
}

// Has reports whether an entry with exactly this level and message exists.
func (r *LogRecorder) Has(level, msg string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// HasContaining reports whether any entry at level has substr in its message.
func (r *LogRecorder) HasContaining(level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Count returns how many entries were recorded at level.
func (r *LogRecorder) Count(level string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// FieldValue returns the value of the first field named key on the first
// entry matching level and message, or nil when absent.
func (r *LogRecorder) FieldValue(level, msg, key string) interface{} {
	for _, e := range r.Entries() {
		if e.Level != level || e.Message != msg {
			continue
		}
		for _, f := range e.Fields {
			if f.Key == key {
				return f.Value
			}
		}
	}
	return nil
}
