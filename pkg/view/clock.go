package view

import (
	"sync"
	"time"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

// DefaultTickInterval is how often the clock ticks.
const DefaultTickInterval = time.Second

// Scheduler is the part of the event loop that drives the clock.
// *eventloop.Loop satisfies it.
type Scheduler interface {
	Post(fn func())
	SetInterval(fn func(), every time.Duration) eventloop.TimerID
	ClearInterval(id eventloop.TimerID) bool
}

// StartClock dispatches a clock-tick to target right away and then every
// interval, always from the loop. While a task blocks the loop no tick is
// delivered, so a Clock fed by these events freezes with it.
func StartClock(loop Scheduler, target core.Dispatcher, every time.Duration, now func() time.Time) (stop func()) {
	if every <= 0 {
		every = DefaultTickInterval
	}
	if now == nil {
		now = time.Now
	}
	tick := func() {
		target.Dispatch(core.Event{Type: core.EventClockTick, Time: now()})
	}

	loop.Post(tick)
	id := loop.SetInterval(tick, every)

	var once sync.Once
	return func() {
		once.Do(func() { loop.ClearInterval(id) })
	}
}

// Clock shows the time of the last tick.
type Clock struct {
	mu   sync.RWMutex
	last time.Time
}

// NewClock creates a clock that has not ticked yet.
func NewClock() *Clock {
	return &Clock{}
}

// Handle records clock-tick events.
func (c *Clock) Handle(e core.Event) {
	if e.Type != core.EventClockTick {
		return
	}
	c.mu.Lock()
	c.last = e.Time
	c.mu.Unlock()
}

// Last returns the time of the last tick, zero before the first one.
func (c *Clock) Last() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Render formats the last tick as HH:MM:SS.
func (c *Clock) Render() string {
	last := c.Last()
	if last.IsZero() {
		return "--:--:--"
	}
	return last.Format("15:04:05")
}
