// Package core holds the domain types shared by the chronote packages.
package core

import (
	"fmt"
	"time"
)

// Note is a single entry in a chronote. Notes are immutable once created and
// kept newest first.
type Note struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Text      string    `json:"text" yaml:"text"`
}

// Measurement is the timing of one save, from the strategy's start point to
// its stop point.
type Measurement struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"-"`
}

// Milliseconds returns the duration as fractional milliseconds, the unit the
// charts use.
func (m Measurement) Milliseconds() float64 {
	return float64(m.Duration) / float64(time.Millisecond)
}

// EventType represents the kind of event a chronote raises toward its listeners.
type EventType string

const (
	EventPerfMeasurement EventType = "report-perf-measurement"
	EventTraceLog        EventType = "trace-log"
	EventTraceNew        EventType = "trace-new"
	EventStatusChange    EventType = "status-change"
	EventClockTick       EventType = "clock-tick"
)

// Status is the host state shown by the status indicator.
type Status string

const (
	StatusReady  Status = "ready"
	StatusSaving Status = "saving"
)

// Event is the envelope delivered to listeners.
// Only the field matching Type is populated.
type Event struct {
	Type        EventType
	TraceID     string
	Time        time.Time
	Measurement *Measurement
	Log         string
	Status      Status
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	switch e.Type {
	case EventPerfMeasurement:
		if e.Measurement != nil {
			return fmt.Sprintf("%s %s=%.0fms", e.Type, e.Measurement.Name, e.Measurement.Milliseconds())
		}
	case EventTraceLog:
		return fmt.Sprintf("%s %s", e.Type, e.Log)
	case EventStatusChange:
		return fmt.Sprintf("%s %s", e.Type, e.Status)
	case EventClockTick:
		return fmt.Sprintf("%s %s", e.Type, e.Time.Format("15:04:05"))
	}
	return string(e.Type)
}

// Dispatcher is the event target a strategy reports to.
type Dispatcher interface {
	Dispatch(e Event)
}

// DispatcherFunc adapts a plain function to a Dispatcher.
type DispatcherFunc func(e Event)

// Dispatch calls f(e).
func (f DispatcherFunc) Dispatch(e Event) { f(e) }
