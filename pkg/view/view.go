// Package view holds headless view-models for the chronote surfaces. Each one
// folds events into display state and renders plain strings; the TUI and the
// CLI decide how to draw them.
//
// Listeners run on the dispatching goroutine, so every view-model guards its
// state for readers on other goroutines.
package view

import (
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/events"
)

// Target is an event source views can subscribe to. *events.Bus satisfies it.
type Target interface {
	Subscribe(t core.EventType, fn events.Listener) *events.Subscription
	SubscribeAll(fn events.Listener) *events.Subscription
}

// Handler folds one event into a view-model.
type Handler interface {
	Handle(e core.Event)
}

// Attach feeds every event of target to the given views.
func Attach(target Target, views ...Handler) *events.Subscription {
	return target.SubscribeAll(func(e core.Event) {
		for _, v := range views {
			v.Handle(e)
		}
	})
}
