package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/chronote/pkg/config"
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/events"
	"github.com/aretw0/chronote/pkg/host"
	"github.com/aretw0/chronote/pkg/view"
)

// App wires an event loop, an event bus and a chronote together.
type App struct {
	Loop   *eventloop.Loop
	Events *events.Bus
	Host   *host.Chronote

	logger      *slog.Logger
	clock       func() time.Time
	eventBuffer int
	done        chan struct{}
}

// app, err := platform.New(platform.WithStore(core.KindSetTimeout))
func New(opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.parts < 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidParts, o.parts)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	loop := eventloop.New(eventloop.WithLogger(logger), eventloop.WithClock(o.clock))
	bus := events.NewBus(events.WithLogger(logger))
	chronote := host.New(loop,
		host.WithTarget(bus),
		host.WithSimulator(o.sim),
		host.WithInstantDelay(o.instantDelay),
		host.WithClock(o.clock),
		host.WithLogger(logger),
	)

	a := &App{
		Loop:        loop,
		Events:      bus,
		Host:        chronote,
		logger:      logger,
		clock:       o.clock,
		eventBuffer: o.eventBuffer,
		done:        make(chan struct{}),
	}

	// An unknown store is not fatal; the chronote simply has no strategy.
	if o.store != "" {
		_ = chronote.Configure(o.store, o.parts)
	}
	return a, nil
}

// Start runs the event loop in the background until ctx is done.
func (a *App) Start(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(a.done)
		return a.Loop.Run(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		a.logger.Error("event loop stopped", "error", err)
	}))
}

// Done is closed when the loop started by Start returns.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// StartClock dispatches clock-tick events from the loop every interval until
// ctx is done or stop is called.
func (a *App) StartClock(ctx context.Context, every time.Duration) (stop func()) {
	stop = view.StartClock(a.Loop, a.Events, every, a.clock)
	context.AfterFunc(ctx, stop)
	return stop
}

// Subscribe returns a buffered channel of every event until ctx is done.
func (a *App) Subscribe(ctx context.Context) <-chan core.Event {
	return a.Events.Channel(ctx, a.eventBuffer)
}

// Channel implements ws.Stream with the App's buffer size.
func (a *App) Channel(ctx context.Context, buffer int) <-chan core.Event {
	if buffer <= 0 {
		buffer = a.eventBuffer
	}
	return a.Events.Channel(ctx, buffer)
}

// Submit adds a note from any goroutine.
func (a *App) Submit(text string) *eventloop.Promise {
	return a.Host.Submit(text)
}

// Configure selects the save strategy.
func (a *App) Configure(kind core.StrategyKind, parts int) error {
	return a.Host.Configure(kind, parts)
}

// Kind returns the active strategy, empty when none.
func (a *App) Kind() core.StrategyKind {
	return a.Host.Kind()
}

// Apply switches to the settings of a (re)loaded config file.
func (a *App) Apply(f config.File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	a.Host.Tune(f.Simulator(), f.InstantDelay)
	if err := a.Host.Configure(f.Store, f.Parts); err != nil {
		return err
	}
	a.logger.Info("configuration applied", "store", string(f.Store), "parts", f.Parts)
	return nil
}
