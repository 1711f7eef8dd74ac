package chronote

import (
	"log/slog"
	"time"

	"github.com/aretw0/chronote/internal/platform"
	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// App is a running chronote: event loop, event bus and host.
type App = platform.App

// Note is a single timestamped note.
type Note = core.Note

// Event is anything a chronote reports.
type Event = core.Event

// StrategyKind names a save strategy.
type StrategyKind = core.StrategyKind

// The save strategies.
const (
	KindInstant                   = core.KindInstant
	KindSync                      = core.KindSync
	KindSetTimeout                = core.KindSetTimeout
	KindSetTimeoutByParts         = core.KindSetTimeoutByParts
	KindAwaitedPromise            = core.KindAwaitedPromise
	KindUnawaitedPreparedPromise  = core.KindUnawaitedPreparedPromise
	KindUnawaitedPromise          = core.KindUnawaitedPromise
	KindUnawaitedFinalizedPromise = core.KindUnawaitedFinalizedPromise
)

// --- Configuration ---

// Option defines a functional option for configuring a chronote.
type Option = platform.Option

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore selects the save strategy.
func WithStore(kind StrategyKind) Option {
	return platform.WithStore(kind)
}

// WithParts sets the fraction count of setTimeoutByParts.
func WithParts(parts int) Option {
	return platform.WithParts(parts)
}

// WithWork sets how long the simulated compression blocks.
func WithWork(d time.Duration) Option {
	return platform.WithWork(d)
}

// WithOverhead sets how long prepare and finalize block.
func WithOverhead(d time.Duration) Option {
	return platform.WithOverhead(d)
}

// WithInstantDelay sets the delay of the instant strategy.
func WithInstantDelay(d time.Duration) Option {
	return platform.WithInstantDelay(d)
}

// WithEventBuffer sets the size of subscriber channels.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithConfig applies a loaded config file.
func WithConfig(f config.File) Option {
	return platform.WithConfig(f)
}

// --- Factory ---

// New creates a chronote. Call Start on the result to run its event loop.
func New(opts ...Option) (*App, error) {
	return platform.New(opts...)
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (config.File, error) {
	return config.Load(path)
}
