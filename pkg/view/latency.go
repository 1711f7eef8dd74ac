package view

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/events"
)

// Latency shows the most recent measurement of the bound target.
type Latency struct {
	mu      sync.RWMutex
	target  Target
	sub     *events.Subscription
	latency time.Duration
	known   bool
}

// NewLatency creates an unbound latency meter.
func NewLatency() *Latency {
	return &Latency{}
}

// Bind moves the meter to target. The old subscription is released first, so
// only the new target's measurements are shown afterwards. Binding the
// current target again is a no-op; a nil target just unbinds.
func (l *Latency) Bind(target Target) {
	l.mu.Lock()
	if l.target == target {
		l.mu.Unlock()
		return
	}
	old := l.sub
	l.target = target
	l.sub = nil
	l.mu.Unlock()

	old.Unsubscribe()
	if target == nil {
		return
	}

	sub := target.Subscribe(core.EventPerfMeasurement, l.Handle)
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()
}

// Close releases the current subscription.
func (l *Latency) Close() {
	l.Bind(nil)
}

// Handle records a report-perf-measurement event.
func (l *Latency) Handle(e core.Event) {
	if e.Type != core.EventPerfMeasurement || e.Measurement == nil {
		return
	}
	l.mu.Lock()
	l.latency = e.Measurement.Duration
	l.known = true
	l.mu.Unlock()
}

// Value returns the last latency and whether one has been reported.
func (l *Latency) Value() (time.Duration, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latency, l.known
}

// Render returns "Latency: N/A" or "Latency: <ms> milliseconds".
func (l *Latency) Render() string {
	d, ok := l.Value()
	if !ok {
		return "Latency: N/A"
	}
	ms := math.Round(float64(d) / float64(time.Millisecond))
	return fmt.Sprintf("Latency: %d milliseconds", int64(ms))
}
