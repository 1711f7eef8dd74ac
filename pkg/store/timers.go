package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

// timerSet owns the timer handles of one save invocation. A new invocation
// cancels the previous set and replaces it as a whole. cancel may be called
// from any goroutine; the callbacks run on the loop.
type timerSet struct {
	loop   *eventloop.Loop
	reject func(error)

	mu        sync.Mutex
	ids       []eventloop.TimerID
	cancelled bool
}

func newTimerSet(loop *eventloop.Loop, size int, reject func(error)) *timerSet {
	return &timerSet{
		loop:   loop,
		ids:    make([]eventloop.TimerID, size),
		reject: reject,
	}
}

// schedule arms slot i. The slot is cleared when the timer fires, and fn is
// skipped when the set was cancelled after the timer had already been taken.
func (ts *timerSet) schedule(i int, delay time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.cancelled {
		return
	}
	ts.ids[i] = ts.loop.SetTimeout(func() {
		ts.mu.Lock()
		cancelled := ts.cancelled
		ts.ids[i] = 0
		ts.mu.Unlock()
		if cancelled {
			return
		}
		fn()
	}, delay)
}

// cancel clears every pending timer and rejects the superseded save. A save
// that already settled is left as is. It returns how many timers were still
// pending.
func (ts *timerSet) cancel() int {
	ts.mu.Lock()
	ts.cancelled = true
	cleared := 0
	for i, id := range ts.ids {
		if id != 0 && ts.loop.ClearTimeout(id) {
			cleared++
		}
		ts.ids[i] = 0
	}
	ts.mu.Unlock()

	ts.reject(core.ErrSaveSuperseded)
	return cleared
}

// timerSlot is embedded by the timer based strategies.
type timerSlot struct {
	mu      sync.Mutex
	current *timerSet
}

// replace cancels the previous invocation's timers and installs a new set.
func (t *timerSlot) replace(b *instrumented, size int, reject func(error)) *timerSet {
	t.mu.Lock()
	prev := t.current
	t.current = newTimerSet(b.loop, size, reject)
	next := t.current
	t.mu.Unlock()

	if prev != nil {
		if cleared := prev.cancel(); cleared > 0 {
			b.trace.LogCalled(fmt.Sprintf("Called clearTimeout() on %d pending timer(s)", cleared))
			b.logger.Debug("superseded pending save", "timers", cleared)
		}
	}
	return next
}

// Cancel supersedes the pending save, if any. Its promise rejects with
// core.ErrSaveSuperseded and its remaining work never runs.
func (t *timerSlot) Cancel() {
	t.mu.Lock()
	prev := t.current
	t.current = nil
	t.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
}

// setTimeoutStore defers the work to a new macrotask.
type setTimeoutStore struct {
	*instrumented
	timerSlot
}

func (s *setTimeoutStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	p, resolve, reject := s.loop.NewPromise()

	timers := s.replace(s.instrumented, 1, reject)
	timers.schedule(0, 0, func() {
		s.trace.LogCalled("Timer fired")
		s.sim.Compress(notes)
		s.trace.LogCalled("Called compress(notes)")
		s.finish(stop)
		resolve()
	})
	s.trace.LogCalled("Called setTimeout(compress, 0)")
	return p
}

// setTimeoutByPartsStore splits the work into equal fractions, each running in
// its own macrotask. The next fraction is only scheduled once the previous one
// has finished, so other tasks can run in between.
type setTimeoutByPartsStore struct {
	*instrumented
	timerSlot
	parts int
}

func (s *setTimeoutByPartsStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	p, resolve, reject := s.loop.NewPromise()

	timers := s.replace(s.instrumented, s.parts, reject)
	var step func(i int)
	step = func(i int) {
		timers.schedule(i, 0, func() {
			s.sim.CompressPart(notes, s.parts, i)
			s.trace.LogCalled(fmt.Sprintf("Called compressParts(notes, %d, %d)", s.parts, i))
			if i+1 < s.parts {
				step(i + 1)
				return
			}
			s.finish(stop)
			resolve()
		})
	}
	step(0)
	s.trace.LogCalled("Called setTimeout(compressParts, 0)")
	return p
}

// instantStore does no work at all; it only waits a short delay so the saving
// indicator is visible.
type instantStore struct {
	*instrumented
	timerSlot
	delay time.Duration
}

func (s *instantStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	p, resolve, reject := s.loop.NewPromise()

	timers := s.replace(s.instrumented, 1, reject)
	timers.schedule(0, s.delay, func() {
		s.trace.LogCalled("Timer fired")
		s.finish(stop)
		resolve()
	})
	s.trace.LogCalled(fmt.Sprintf("Called setTimeout(resolve, %d)", s.delay.Milliseconds()))
	return p
}
