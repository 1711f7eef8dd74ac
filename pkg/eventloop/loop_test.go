package eventloop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronote/pkg/eventloop"
)

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()

	l := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func waitIdle(t *testing.T, l *eventloop.Loop) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Idle(ctx))
}

func TestLoop_MicrotasksBeforeMacrotasks(t *testing.T) {
	l := startLoop(t)
	var order []string

	err := l.Do(context.Background(), func() {
		order = append(order, "sync")
		l.SetTimeout(func() {
			order = append(order, "macro1")
			l.QueueMicrotask(func() { order = append(order, "micro-from-macro1") })
		}, 0)
		l.QueueMicrotask(func() { order = append(order, "micro1") })
		l.Resolved().Then(func(error) error {
			order = append(order, "then")
			return nil
		})
		l.SetTimeout(func() { order = append(order, "macro2") }, 0)
		l.QueueMicrotask(func() { order = append(order, "micro2") })
	})
	require.NoError(t, err)
	waitIdle(t, l)

	assert.Equal(t, []string{
		"sync",
		"micro1",
		"then",
		"micro2",
		"macro1",
		"micro-from-macro1",
		"macro2",
	}, order)
}

func TestLoop_TimersOrderedByDueTime(t *testing.T) {
	l := startLoop(t)
	var order []string

	require.NoError(t, l.Do(context.Background(), func() {
		l.SetTimeout(func() { order = append(order, "late") }, 30*time.Millisecond)
		l.SetTimeout(func() { order = append(order, "early") }, 5*time.Millisecond)
		l.SetTimeout(func() { order = append(order, "now") }, 0)
	}))
	waitIdle(t, l)

	assert.Equal(t, []string{"now", "early", "late"}, order)
}

func TestLoop_ClearTimeout(t *testing.T) {
	l := startLoop(t)
	fired := false

	var id eventloop.TimerID
	require.NoError(t, l.Do(context.Background(), func() {
		id = l.SetTimeout(func() { fired = true }, 10*time.Millisecond)
		assert.True(t, l.ClearTimeout(id))
		assert.False(t, l.ClearTimeout(id), "second clear is a no-op")
	}))
	waitIdle(t, l)

	assert.False(t, fired)
	assert.False(t, l.ClearTimeout(eventloop.TimerID(9999)))
}

func TestLoop_ClearTimeoutAfterFire(t *testing.T) {
	l := startLoop(t)

	var id eventloop.TimerID
	require.NoError(t, l.Do(context.Background(), func() {
		id = l.SetTimeout(func() {}, 0)
	}))
	waitIdle(t, l)

	assert.False(t, l.ClearTimeout(id))
}

func TestLoop_BlockingTaskDelaysOthers(t *testing.T) {
	l := startLoop(t)
	var firedAt time.Time

	start := time.Now()
	require.NoError(t, l.Do(context.Background(), func() {
		l.SetTimeout(func() { firedAt = time.Now() }, 0)
		for time.Since(start) < 40*time.Millisecond {
		}
	}))
	waitIdle(t, l)

	assert.GreaterOrEqual(t, firedAt.Sub(start), 40*time.Millisecond)
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := startLoop(t)
	ran := false

	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })
	waitIdle(t, l)

	assert.True(t, ran)
}

func TestLoop_RunTwice(t *testing.T) {
	l := startLoop(t)

	// Make sure the background Run has started.
	require.NoError(t, l.Do(context.Background(), func() {}))

	err := l.Run(context.Background())
	assert.True(t, errors.Is(err, eventloop.ErrAlreadyRunning))
}

func TestLoop_IdleRespectsContext(t *testing.T) {
	l := eventloop.New() // never started
	l.Post(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Idle(ctx), context.DeadlineExceeded)
}

func TestLoop_State(t *testing.T) {
	l := eventloop.New()
	l.Post(func() {})
	l.QueueMicrotask(func() {})

	state, ok := l.State().(eventloop.LoopState)
	require.True(t, ok)
	assert.Equal(t, 1, state.PendingMacrotasks)
	assert.Equal(t, 1, state.PendingMicrotasks)
	assert.False(t, state.Running)
	assert.Equal(t, "event-loop", l.ComponentType())
}

func TestLoop_IntervalRepeatsUntilCleared(t *testing.T) {
	l := startLoop(t)
	done := make(chan struct{})
	ticks := 0

	var id eventloop.TimerID
	require.NoError(t, l.Do(context.Background(), func() {
		id = l.SetInterval(func() {
			ticks++
			if ticks == 3 {
				assert.True(t, l.ClearInterval(id))
				close(done)
			}
		}, 2*time.Millisecond)
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("interval never reached three ticks")
	}
	waitIdle(t, l)
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, l.Do(context.Background(), func() {
		assert.Equal(t, 3, ticks)
	}))
	assert.False(t, l.ClearInterval(id))
}

func TestLoop_IntervalStallsWhileBlocked(t *testing.T) {
	l := startLoop(t)
	ticks := make(chan time.Time, 8)
	var blockEnd time.Time

	var id eventloop.TimerID
	require.NoError(t, l.Do(context.Background(), func() {
		id = l.SetInterval(func() { ticks <- time.Now() }, 10*time.Millisecond)
		l.Post(func() {
			deadline := time.Now().Add(60 * time.Millisecond)
			for time.Now().Before(deadline) {
			}
			blockEnd = time.Now()
		})
	}))

	first := <-ticks
	second := <-ticks
	require.NoError(t, l.Do(context.Background(), func() {
		l.ClearInterval(id)
	}))

	assert.False(t, first.Before(blockEnd), "tick due during the busy-wait fired only after it")
	assert.GreaterOrEqual(t, second.Sub(first), 5*time.Millisecond, "missed ticks are not replayed")
}

func TestLoop_IdleIgnoresIntervals(t *testing.T) {
	l := startLoop(t)

	var id eventloop.TimerID
	require.NoError(t, l.Do(context.Background(), func() {
		id = l.SetInterval(func() {}, time.Hour)
	}))
	waitIdle(t, l)

	state := l.State().(eventloop.LoopState)
	assert.Equal(t, 1, state.Intervals)
	assert.True(t, l.ClearInterval(id))
	assert.Zero(t, l.State().(eventloop.LoopState).Intervals)
}
