package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/chronote/pkg/core"
)

// TraceLogger emits ordered, timestamped milestones of a save.
// It is only used from the event loop goroutine.
type TraceLogger struct {
	target core.Dispatcher
	now    func() time.Time
	id     string
}

// NewTraceLogger creates a logger reporting to target.
func NewTraceLogger(target core.Dispatcher, now func() time.Time) *TraceLogger {
	if now == nil {
		now = time.Now
	}
	return &TraceLogger{target: target, now: now}
}

// StartNew begins a new trace and emits trace-new. It returns the trace ID.
func (l *TraceLogger) StartNew() string {
	l.id = uuid.NewString()
	l.target.Dispatch(core.Event{
		Type:    core.EventTraceNew,
		TraceID: l.id,
		Time:    l.now(),
	})
	return l.id
}

// LogCalled emits a trace-log line formatted as "[HH:MM:SS] message".
func (l *TraceLogger) LogCalled(message string) {
	now := l.now()
	l.target.Dispatch(core.Event{
		Type:    core.EventTraceLog,
		TraceID: l.id,
		Time:    now,
		Log:     FormatTraceLine(now, message),
	})
}

// ID returns the current trace ID, empty before the first StartNew.
func (l *TraceLogger) ID() string {
	return l.id
}

// FormatTraceLine renders a trace line with a time-of-day label.
func FormatTraceLine(t time.Time, message string) string {
	return fmt.Sprintf("[%s] %s", t.Format("15:04:05"), message)
}
