// Package store implements the family of note-save strategies.
//
// Every strategy wraps the same simulated blocking work with a different
// scheduling primitive of the event loop, and reports a timing measurement and
// a trace of milestones so the resulting latency patterns can be compared.
// Strategies are created with New and must only be used from the loop
// goroutine.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

// DefaultInstantDelay is how long the instant strategy waits before reporting
// completion, so a save is still visible in the UI.
const DefaultInstantDelay = 200 * time.Millisecond

// Strategy saves the full current collection of notes. The returned promise
// settles according to the strategy's own completion contract, which for the
// unawaited strategies is before the work has finished.
type Strategy interface {
	Save(notes []core.Note) *eventloop.Promise
	Kind() core.StrategyKind
}

// Canceler is implemented by strategies whose save can still have timers
// pending after Save returns. Cancel must be called before such a strategy is
// discarded, so its stale work never runs.
type Canceler interface {
	Cancel()
}

// Config carries the collaborators shared by every strategy.
type Config struct {
	Loop         *eventloop.Loop
	Target       core.Dispatcher
	Simulator    Simulator
	Parts        int
	InstantDelay time.Duration
	Clock        func() time.Time
	Logger       *slog.Logger
}

// New creates the strategy selected by kind.
func New(kind core.StrategyKind, cfg Config) (Strategy, error) {
	if cfg.Loop == nil {
		return nil, errors.New("store: event loop is required")
	}
	if cfg.Target == nil {
		cfg.Target = core.DispatcherFunc(func(core.Event) {})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.InstantDelay <= 0 {
		cfg.InstantDelay = DefaultInstantDelay
	}

	trace := NewTraceLogger(cfg.Target, cfg.Clock)
	base := &instrumented{
		kind:   kind,
		loop:   cfg.Loop,
		sim:    cfg.Simulator,
		trace:  trace,
		timing: NewTimingReporter(cfg.Target, cfg.Clock, trace.ID),
		logger: cfg.Logger.With("strategy", string(kind)),
	}

	switch kind {
	case core.KindInstant:
		return &instantStore{instrumented: base, delay: cfg.InstantDelay}, nil
	case core.KindSync:
		return &syncStore{instrumented: base}, nil
	case core.KindSetTimeout:
		return &setTimeoutStore{instrumented: base}, nil
	case core.KindSetTimeoutByParts:
		parts := cfg.Parts
		if parts <= 0 {
			if parts < 0 {
				base.logger.Warn("non-positive part count, clamping to 1", "parts", parts)
			}
			parts = 1
		}
		return &setTimeoutByPartsStore{instrumented: base, parts: parts}, nil
	case core.KindAwaitedPromise:
		return &awaitedPromiseStore{instrumented: base}, nil
	case core.KindUnawaitedPreparedPromise:
		return &unawaitedPreparedPromiseStore{instrumented: base}, nil
	case core.KindUnawaitedPromise:
		return &unawaitedPromiseStore{instrumented: base}, nil
	case core.KindUnawaitedFinalizedPromise:
		return &unawaitedFinalizedPromiseStore{instrumented: base}, nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownStrategy, string(kind))
	}
}

// instrumented holds what every strategy shares: the loop, the simulated work
// and the timing/trace instrumentation.
type instrumented struct {
	kind   core.StrategyKind
	loop   *eventloop.Loop
	sim    Simulator
	trace  *TraceLogger
	timing *TimingReporter
	logger *slog.Logger
}

func (b *instrumented) Kind() core.StrategyKind {
	return b.kind
}

// begin starts a new trace and the timer.
func (b *instrumented) begin() func() {
	b.trace.StartNew()
	stop := b.timing.StartTimer(string(b.kind))
	b.trace.LogCalled("Called startTimer()")
	return stop
}

// finish stops the timer and logs the closing milestones.
func (b *instrumented) finish(stop func()) {
	stop()
	b.trace.LogCalled("Called stopTimer()")
	b.trace.LogCalled("Returning from save()")
}
