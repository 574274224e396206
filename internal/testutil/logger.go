package testutil

import (
	"fmt"
	"strings"
	"sync"

	"fscope/internal/fscope"
)

var _ fscope.Logger = (*RecordingLogger)(nil)

// RecordingLogger keeps every message it is given. Loggers derived with With
// share the parent's record. Safe for concurrent use.
type RecordingLogger struct {
	sink  *recordSink
	attrs []any
}

type recordSink struct {
	mu      sync.Mutex
	entries []string
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{sink: &recordSink{}}
}

func (l *RecordingLogger) With(args ...any) fscope.Logger {
	return &RecordingLogger{sink: l.sink, attrs: append(append([]any(nil), l.attrs...), args...)}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.add("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.add("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.add("ERROR", msg, args) }

func (l *RecordingLogger) add(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	all := append(append([]any(nil), l.attrs...), args...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, b.String())
}

// Entries returns a copy of the recorded lines, formatted as
// "LEVEL message key=value ...".
func (l *RecordingLogger) Entries() []string {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]string(nil), l.sink.entries...)
}

// Contains reports whether any recorded line contains substr.
func (l *RecordingLogger) Contains(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
