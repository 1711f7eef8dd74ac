// Package eventloop implements a single-threaded cooperative scheduler in the
// style of a browser event loop.
//
// A Loop owns two queues:
//
//   - a macrotask queue of timers, ordered by due time and then by insertion
//     order, so zero-delay timers run FIFO;
//   - a microtask queue, drained completely before and after every macrotask.
//
// Every callback runs on the goroutine that called Run. Work posted from other
// goroutines (SetTimeout, Post, QueueMicrotask, Do) is safe; the callbacks
// themselves never run concurrently, so state owned by the loop needs no
// locking.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Run when another goroutine is already
// driving the loop.
var ErrAlreadyRunning = errors.New("event loop is already running")

// TimerID identifies a pending macrotask. The zero value is never issued.
type TimerID uint64

type macrotask struct {
	id    TimerID
	due   time.Time
	seq   uint64
	every time.Duration
	fn    func()
	index int
}

type timerQueue []*macrotask

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*macrotask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Loop is a cooperative scheduler with a macrotask and a microtask queue.
type Loop struct {
	mu      sync.Mutex
	timers  timerQueue
	pending map[TimerID]*macrotask
	micro   []func()
	seq     uint64
	repeats int
	turns   uint64
	busy    bool
	active  bool
	idle    []chan struct{}
	wake    chan struct{}

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the clock used to compute timer due times.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates an idle loop. Call Run to start processing tasks.
func New(opts ...Option) *Loop {
	l := &Loop{
		pending: make(map[TimerID]*macrotask),
		wake:    make(chan struct{}, 1),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetTimeout schedules fn as a macrotask after delay. Negative delays are
// treated as zero.
func (l *Loop) SetTimeout(fn func(), delay time.Duration) TimerID {
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	l.seq++
	t := &macrotask{
		id:  TimerID(l.seq),
		due: l.now().Add(delay),
		seq: l.seq,
		fn:  fn,
	}
	heap.Push(&l.timers, t)
	l.pending[t.id] = t
	l.mu.Unlock()

	l.signal()
	return t.id
}

// SetInterval runs fn as a macrotask every interval until cleared. The next
// run is due one interval after the current one starts, so ticks missed while
// the loop was blocked are not replayed. Intervals shorter than a millisecond
// are raised to one.
//
// A pending interval does not keep Idle waiting.
func (l *Loop) SetInterval(fn func(), every time.Duration) TimerID {
	if every < time.Millisecond {
		every = time.Millisecond
	}

	l.mu.Lock()
	l.seq++
	t := &macrotask{
		id:    TimerID(l.seq),
		due:   l.now().Add(every),
		seq:   l.seq,
		every: every,
		fn:    fn,
	}
	heap.Push(&l.timers, t)
	l.pending[t.id] = t
	l.repeats++
	l.mu.Unlock()

	l.signal()
	return t.id
}

// ClearTimeout cancels a pending timer. It reports false when the timer has
// already fired, was already cleared, or never existed.
func (l *Loop) ClearTimeout(id TimerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.pending[id]
	if !ok {
		return false
	}
	heap.Remove(&l.timers, t.index)
	delete(l.pending, id)
	if t.every > 0 {
		l.repeats--
	}
	return true
}

// ClearInterval stops an interval. It works from inside the interval's own
// callback too.
func (l *Loop) ClearInterval(id TimerID) bool {
	return l.ClearTimeout(id)
}

// Post schedules fn as a zero-delay macrotask.
func (l *Loop) Post(fn func()) {
	l.SetTimeout(fn, 0)
}

// QueueMicrotask appends fn to the microtask queue.
func (l *Loop) QueueMicrotask(fn func()) {
	l.mu.Lock()
	l.micro = append(l.micro, fn)
	l.mu.Unlock()
	l.signal()
}

// Do runs fn as a macrotask and waits for it to return.
// It must not be called from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle blocks until no macrotask or microtask is pending or running.
// Timeouts scheduled in the future count as pending; intervals do not.
func (l *Loop) Idle(ctx context.Context) error {
	l.mu.Lock()
	if l.isIdleLocked() {
		l.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	l.idle = append(l.idle, ch)
	l.mu.Unlock()

	l.signal()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks on the calling goroutine until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.active = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		l.drainMicrotasks()

		fn, wait := l.nextMacrotask()
		if fn != nil {
			l.runTask(fn)
			l.mu.Lock()
			l.turns++
			l.mu.Unlock()
			continue
		}

		l.notifyIdle()

		var timeout <-chan time.Time
		var timer *time.Timer
		if wait > 0 {
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
		case <-l.wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// nextMacrotask pops the first due timer. When none is due it returns the
// time until the next one, or zero if the queue is empty.
func (l *Loop) nextMacrotask() (func(), time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.timers) == 0 {
		return nil, 0
	}
	head := l.timers[0]
	now := l.now()
	if head.due.After(now) {
		return nil, head.due.Sub(now)
	}
	heap.Pop(&l.timers)
	if head.every > 0 {
		l.seq++
		head.seq = l.seq
		head.due = now.Add(head.every)
		heap.Push(&l.timers, head)
	} else {
		delete(l.pending, head.id)
	}
	l.busy = true
	return head.fn, 0
}

func (l *Loop) drainMicrotasks() {
	for {
		l.mu.Lock()
		if len(l.micro) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		l.busy = true
		l.mu.Unlock()

		l.runTask(fn)
	}
}

// runTask runs a task popped by nextMacrotask or drainMicrotasks. Both mark
// the loop busy while still holding the lock, so Idle never sees a gap.
func (l *Loop) runTask(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("task panic: %v", recovered)
			if l.logger.Enabled(context.Background(), slog.LevelDebug) {
				l.logger.Error("event loop task panic", "error", err, "stack", string(debug.Stack()))
			} else {
				l.logger.Error("event loop task panic", "error", err)
			}
		}
		l.mu.Lock()
		l.busy = false
		l.mu.Unlock()
	}()

	fn()
}

func (l *Loop) isIdleLocked() bool {
	return len(l.timers) == l.repeats && len(l.micro) == 0 && !l.busy
}

func (l *Loop) notifyIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isIdleLocked() || len(l.idle) == 0 {
		return
	}
	for _, ch := range l.idle {
		close(ch)
	}
	l.idle = nil
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
