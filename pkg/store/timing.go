package store

import (
	"time"

	"github.com/aretw0/chronote/pkg/core"
)

// TimingReporter measures wall-clock time around a unit of work and reports
// it as a report-perf-measurement event.
type TimingReporter struct {
	target core.Dispatcher
	now    func() time.Time
	scope  func() string
}

// NewTimingReporter creates a reporter. scope, when non-nil, supplies the
// trace ID stamped on each measurement; it is read when the timer starts.
func NewTimingReporter(target core.Dispatcher, now func() time.Time, scope func() string) *TimingReporter {
	if now == nil {
		now = time.Now
	}
	return &TimingReporter{target: target, now: now, scope: scope}
}

// StartTimer records a start instant and returns the function that stops the
// timer and emits the measurement. Only the first call of the returned
// function emits.
func (r *TimingReporter) StartTimer(name string) func() {
	start := r.now()
	traceID := ""
	if r.scope != nil {
		traceID = r.scope()
	}

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true

		stop := r.now()
		duration := stop.Sub(start)
		if duration < 0 {
			duration = 0
		}
		r.target.Dispatch(core.Event{
			Type:        core.EventPerfMeasurement,
			TraceID:     traceID,
			Time:        stop,
			Measurement: &core.Measurement{Name: name, Duration: duration},
		})
	}
}
