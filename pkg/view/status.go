package view

import (
	"sync"

	"github.com/aretw0/chronote/pkg/core"
)

// StatusIndicator mirrors the chronote status.
type StatusIndicator struct {
	mu     sync.RWMutex
	status core.Status
}

// NewStatusIndicator starts in ready.
func NewStatusIndicator() *StatusIndicator {
	return &StatusIndicator{status: core.StatusReady}
}

// Handle tracks status-change events.
func (s *StatusIndicator) Handle(e core.Event) {
	if e.Type != core.EventStatusChange {
		return
	}
	s.mu.Lock()
	s.status = e.Status
	s.mu.Unlock()
}

func (s *StatusIndicator) Status() core.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Saving reports whether a save is in flight.
func (s *StatusIndicator) Saving() bool {
	return s.Status() == core.StatusSaving
}
