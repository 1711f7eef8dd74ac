package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/store"
)

// options holds the internal configuration for a chronote App.
type options struct {
	logger       *slog.Logger
	store        core.StrategyKind
	parts        int
	sim          store.Simulator
	instantDelay time.Duration
	clock        func() time.Time
	eventBuffer  int
}

// Option defines a functional option for configuring a chronote App.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:       nil,
		store:        "",
		parts:        1,
		sim:          store.DefaultSimulator(),
		instantDelay: store.DefaultInstantDelay,
		clock:        time.Now,
	}
}

// WithLogger sets the logger shared by the loop, the bus and the chronote.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore selects the save strategy. Without it the App starts with no
// strategy and AddNote fails with core.ErrNoStrategy.
func WithStore(kind core.StrategyKind) Option {
	return func(o *options) {
		o.store = kind
	}
}

// WithParts sets how many fractions setTimeoutByParts splits the work into.
func WithParts(parts int) Option {
	return func(o *options) {
		o.parts = parts
	}
}

// WithWork sets how long the simulated compression blocks.
func WithWork(d time.Duration) Option {
	return func(o *options) {
		o.sim.Work = d
	}
}

// WithOverhead sets how long the prepare and finalize steps block.
func WithOverhead(d time.Duration) Option {
	return func(o *options) {
		o.sim.Overhead = d
	}
}

// WithInstantDelay sets the delay of the instant strategy.
func WithInstantDelay(d time.Duration) Option {
	return func(o *options) {
		o.instantDelay = d
	}
}

// WithClock overrides the time source (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithEventBuffer allows specifying the size of event channels handed to
// subscribers. Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithConfig applies every setting of a config file.
func WithConfig(f config.File) Option {
	return func(o *options) {
		o.store = f.Store
		o.parts = f.Parts
		o.sim = f.Simulator()
		o.instantDelay = f.InstantDelay
	}
}
