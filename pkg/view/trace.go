package view

import (
	"strings"
	"sync"

	"github.com/aretw0/chronote/pkg/core"
)

// TraceViewer shows the log lines of the most recent trace.
type TraceViewer struct {
	mu        sync.RWMutex
	traceID   string
	lines     []string
	collapsed bool
}

// NewTraceViewer creates a collapsed viewer.
func NewTraceViewer() *TraceViewer {
	return &TraceViewer{collapsed: true}
}

// Handle clears the lines on trace-new and appends on trace-log. Lines tagged
// with another trace's ID are dropped.
func (v *TraceViewer) Handle(e core.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Type {
	case core.EventTraceNew:
		v.traceID = e.TraceID
		v.lines = nil
	case core.EventTraceLog:
		if e.TraceID != "" && e.TraceID != v.traceID {
			return
		}
		v.lines = append(v.lines, e.Log)
	}
}

// Lines returns a copy of the current trace lines.
func (v *TraceViewer) Lines() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.lines...)
}

// TraceID returns the ID of the trace being shown.
func (v *TraceViewer) TraceID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.traceID
}

// Toggle flips the collapsed state and returns the new value.
func (v *TraceViewer) Toggle() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.collapsed = !v.collapsed
	return v.collapsed
}

// Collapsed reports whether the viewer is collapsed.
func (v *TraceViewer) Collapsed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.collapsed
}

// Render joins the lines, or returns an empty string when collapsed.
func (v *TraceViewer) Render() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.collapsed {
		return ""
	}
	return strings.Join(v.lines, "\n")
}
