package eventloop

import (
	"github.com/aretw0/introspection"
)

// LoopState exposes internal state for observability.
type LoopState struct {
	PendingMacrotasks int    `json:"pending_macrotasks"`
	PendingMicrotasks int    `json:"pending_microtasks"`
	Intervals         int    `json:"intervals"`
	Turns             uint64 `json:"turns"`
	Busy              bool   `json:"busy"`
	Running           bool   `json:"running"`
}

// State implements introspection.Introspectable.
func (l *Loop) State() any {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LoopState{
		PendingMacrotasks: len(l.timers),
		PendingMicrotasks: len(l.micro),
		Intervals:         l.repeats,
		Turns:             l.turns,
		Busy:              l.busy,
		Running:           l.active,
	}
}

// ComponentType implements introspection.Component.
func (l *Loop) ComponentType() string {
	return "event-loop"
}

var _ introspection.Introspectable = (*Loop)(nil)
var _ introspection.Component = (*Loop)(nil)
