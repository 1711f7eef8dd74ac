// Package host contains the chronote: the component that owns the notes, the
// active save strategy and the ready/saving status.
package host

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/store"
)

// Chronote accepts notes and saves the whole collection with the configured
// strategy after each addition.
//
// AddNote must be called on the loop goroutine. Submit, Configure and the
// accessors are safe from any goroutine.
type Chronote struct {
	loop         *eventloop.Loop
	target       core.Dispatcher
	sim          store.Simulator
	instantDelay time.Duration
	clock        func() time.Time
	logger       *slog.Logger

	mu         sync.RWMutex
	strategy   store.Strategy
	kind       core.StrategyKind
	parts      int
	notes      []core.Note
	status     core.Status
	generation uint64
	stale      bool
}

// Option configures a Chronote.
type Option func(*Chronote)

// WithTarget sets where strategy and status events are dispatched.
func WithTarget(target core.Dispatcher) Option {
	return func(c *Chronote) {
		c.target = target
	}
}

// WithSimulator sets the simulated work durations handed to strategies.
func WithSimulator(sim store.Simulator) Option {
	return func(c *Chronote) {
		c.sim = sim
	}
}

// WithInstantDelay sets the delay used by the instant strategy.
func WithInstantDelay(d time.Duration) Option {
	return func(c *Chronote) {
		c.instantDelay = d
	}
}

// WithClock overrides the time source for note timestamps and measurements.
func WithClock(now func() time.Time) Option {
	return func(c *Chronote) {
		c.clock = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chronote) {
		c.logger = logger
	}
}

// New creates a chronote with no strategy. Call Configure before adding notes.
func New(loop *eventloop.Loop, opts ...Option) *Chronote {
	c := &Chronote{
		loop:   loop,
		sim:    store.DefaultSimulator(),
		clock:  time.Now,
		status: core.StatusReady,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.target == nil {
		c.target = core.DispatcherFunc(func(core.Event) {})
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Configure selects the save strategy. The strategy is rebuilt only when the
// kind changes, or when the part count changes for setTimeoutByParts, so a
// pending timer can still be superseded by the next save. A rebuild cancels
// the old strategy's pending save.
//
// An unknown kind leaves the chronote without a strategy.
func (c *Chronote) Configure(kind core.StrategyKind, parts int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.strategy != nil && !c.stale && c.kind == kind && (kind != core.KindSetTimeoutByParts || c.parts == parts) {
		return nil
	}

	s, err := store.New(kind, store.Config{
		Loop:         c.loop,
		Target:       c.target,
		Simulator:    c.sim,
		Parts:        parts,
		InstantDelay: c.instantDelay,
		Clock:        c.clock,
		Logger:       c.logger,
	})
	c.discardLocked()
	if err != nil {
		c.strategy = nil
		c.kind = ""
		c.parts = 0
		c.logger.Warn("no save strategy assigned", "store", string(kind), "error", err)
		return err
	}

	c.strategy = s
	c.kind = kind
	c.parts = parts
	c.stale = false
	c.logger.Debug("save strategy configured", "store", string(kind), "parts", parts)
	return nil
}

// discardLocked cancels whatever the current strategy still has pending, so
// a replaced strategy never runs stale work.
func (c *Chronote) discardLocked() {
	if canceler, ok := c.strategy.(store.Canceler); ok {
		canceler.Cancel()
		c.logger.Debug("cancelled pending save of replaced strategy", "store", string(c.kind))
	}
}

// Tune changes the simulated work durations. The current strategy keeps its
// old timings until the next Configure rebuilds it.
func (c *Chronote) Tune(sim store.Simulator, instantDelay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sim == sim && c.instantDelay == instantDelay {
		return
	}
	c.sim = sim
	c.instantDelay = instantDelay
	c.stale = true
}

// AddNote prepends a note and saves the collection. The returned promise
// settles with the save. Only the latest save moves the status back to ready.
func (c *Chronote) AddNote(text string) *eventloop.Promise {
	if strings.TrimSpace(text) == "" {
		return c.loop.Rejected(core.ErrEmptyNote)
	}

	c.mu.Lock()
	strategy := c.strategy
	if strategy == nil {
		c.mu.Unlock()
		return c.loop.Rejected(core.ErrNoStrategy)
	}
	c.notes = append([]core.Note{{Timestamp: c.clock(), Text: text}}, c.notes...)
	notes := append([]core.Note(nil), c.notes...)
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.setStatus(core.StatusSaving)

	return strategy.Save(notes).Then(func(err error) error {
		c.mu.RLock()
		latest := gen == c.generation
		c.mu.RUnlock()

		if latest {
			c.setStatus(core.StatusReady)
		}
		if err != nil && !errors.Is(err, core.ErrSaveSuperseded) {
			c.logger.Error("save failed", "error", err)
		}
		return err
	})
}

// Submit hops onto the loop and calls AddNote.
func (c *Chronote) Submit(text string) *eventloop.Promise {
	p, _, settle := c.loop.NewPromise()
	c.loop.Post(func() {
		c.AddNote(text).Then(func(err error) error {
			settle(err)
			return nil
		})
	})
	return p
}

func (c *Chronote) setStatus(s core.Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	c.mu.Unlock()

	c.target.Dispatch(core.Event{
		Type:   core.EventStatusChange,
		Time:   c.clock(),
		Status: s,
	})
}

// Status returns ready or saving.
func (c *Chronote) Status() core.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Notes returns a copy of the notes, newest first.
func (c *Chronote) Notes() []core.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.Note(nil), c.notes...)
}

// Kind returns the active strategy kind, empty when none is assigned.
func (c *Chronote) Kind() core.StrategyKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind
}

// Parts returns the configured part count.
func (c *Chronote) Parts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parts
}
