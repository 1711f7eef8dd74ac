package host

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/chronote/pkg/core"
)

// ChronoteState exposes internal state for observability.
type ChronoteState struct {
	Store      string `json:"store"`
	Parts      int    `json:"parts,omitempty"`
	Status     string `json:"status"`
	Notes      int    `json:"notes"`
	Generation uint64 `json:"generation"`
}

// State implements introspection.Introspectable.
func (c *Chronote) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	parts := 0
	if c.kind == core.KindSetTimeoutByParts {
		parts = c.parts
	}
	return ChronoteState{
		Store:      string(c.kind),
		Parts:      parts,
		Status:     string(c.status),
		Notes:      len(c.notes),
		Generation: c.generation,
	}
}

// ComponentType implements introspection.Component.
func (c *Chronote) ComponentType() string {
	return "chronote"
}

var _ introspection.Introspectable = (*Chronote)(nil)
var _ introspection.Component = (*Chronote)(nil)
