// Package lifecycle exposes chronote event streams as lifecycle sources.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/chronote/pkg/core"
)

type eventSource struct {
	events <-chan core.Event
	filter func(core.Event) bool
	out    chan lifecycle.Event
}

// SourceOption configures a source.
type SourceOption func(*eventSource)

// WithTypes only forwards events of the given types.
func WithTypes(types ...core.EventType) SourceOption {
	return func(s *eventSource) {
		allowed := make(map[core.EventType]bool, len(types))
		for _, t := range types {
			allowed[t] = true
		}
		s.filter = func(e core.Event) bool { return allowed[e.Type] }
	}
}

// NewSource creates a lifecycle.Source from a chronote event channel, such as
// the one returned by events.Bus.Channel. The output closes when the input
// closes or the Start context ends.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &eventSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *eventSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.filter != nil && !s.filter(e) {
					continue
				}
				// core.Event implements lifecycle.Event (has String())
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
