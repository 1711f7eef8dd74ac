// Package events provides the event target chronote components report to.
//
// Listeners are attached through explicit Subscription handles, so moving a
// listener from one target to another is always Unsubscribe on the old handle
// followed by Subscribe on the new target.
package events

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/chronote/pkg/core"
)

// DefaultBuffer is the channel size used by Channel when buffer <= 0.
const DefaultBuffer = 100

// Listener receives dispatched events. It runs synchronously on the
// dispatching goroutine and must not block.
type Listener func(core.Event)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   uint64
	typ  core.EventType
	all  bool
	fn   Listener
	once sync.Once
}

// Unsubscribe detaches the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

// Bus is an in-process event target. It implements core.Dispatcher.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*Subscription
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe attaches fn to events of type t.
func (b *Bus) Subscribe(t core.EventType, fn Listener) *Subscription {
	return b.add(&Subscription{typ: t, fn: fn})
}

// SubscribeAll attaches fn to every event.
func (b *Bus) SubscribeAll(fn Listener) *Subscription {
	return b.add(&Subscription{all: true, fn: fn})
}

func (b *Bus) add(s *Subscription) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s.bus = b
	s.id = b.nextID
	b.subs = append(b.subs, s)
	return s
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers e to every matching listener in subscription order.
func (b *Bus) Dispatch(e core.Event) {
	b.mu.RLock()
	targets := make([]Listener, 0, len(b.subs))
	for _, s := range b.subs {
		if s.all || s.typ == e.Type {
			targets = append(targets, s.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(e)
	}
}

// Len returns the number of attached listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Channel returns a buffered stream of every event until ctx is done, after
// which the channel is closed. Events are dropped while the buffer is full.
func (b *Bus) Channel(ctx context.Context, buffer int) <-chan core.Event {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	out := make(chan core.Event, buffer)
	var mu sync.Mutex
	closed := false

	sub := b.SubscribeAll(func(e core.Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- e:
		default:
			b.logger.Warn("event subscriber is falling behind, dropping event", "type", e.Type)
		}
	})

	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out
}

var _ core.Dispatcher = (*Bus)(nil)
