package platform

import (
	"github.com/aretw0/introspection"
)

// AppState exposes internal state for observability.
type AppState struct {
	Loop        any `json:"loop"`
	Chronote    any `json:"chronote"`
	Subscribers int `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (a *App) State() any {
	return AppState{
		Loop:        a.Loop.State(),
		Chronote:    a.Host.State(),
		Subscribers: a.Events.Len(),
	}
}

// ComponentType implements introspection.Component.
func (a *App) ComponentType() string {
	return "chronote-app"
}

var _ introspection.Introspectable = (*App)(nil)
var _ introspection.Component = (*App)(nil)
