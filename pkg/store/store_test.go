package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/events"
	"github.com/aretw0/chronote/pkg/store"
)

var testSim = store.Simulator{Work: 40 * time.Millisecond, Overhead: 5 * time.Millisecond}

type harness struct {
	loop *eventloop.Loop
	bus  *events.Bus
	rec  *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{loop: eventloop.New(), bus: events.NewBus()}
	h.rec = events.NewRecorder(h.bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *harness) strategy(t *testing.T, kind core.StrategyKind, parts int) store.Strategy {
	t.Helper()

	s, err := store.New(kind, store.Config{
		Loop:         h.loop,
		Target:       h.bus,
		Simulator:    testSim,
		Parts:        parts,
		InstantDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, kind, s.Kind())
	return s
}

// save calls Save on the loop goroutine.
func (h *harness) save(t *testing.T, s store.Strategy) *eventloop.Promise {
	t.Helper()

	var p *eventloop.Promise
	require.NoError(t, h.loop.Do(context.Background(), func() {
		p = s.Save(sampleNotes())
	}))
	return p
}

// settle waits for p and then for every background task to finish.
func (h *harness) settle(t *testing.T, p *eventloop.Promise) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.Wait(ctx)
	require.NoError(t, h.loop.Idle(ctx))
	return err
}

func (h *harness) measurements() []core.Measurement {
	var out []core.Measurement
	for _, e := range h.rec.OfType(core.EventPerfMeasurement) {
		out = append(out, *e.Measurement)
	}
	return out
}

func (h *harness) messages() []string {
	var out []string
	for _, e := range h.rec.OfType(core.EventTraceLog) {
		out = append(out, message(e.Log))
	}
	return out
}

func message(line string) string {
	_, msg, _ := strings.Cut(line, "] ")
	return msg
}

func count(msgs []string, prefix string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func sampleNotes() []core.Note {
	return []core.Note{
		{Timestamp: time.Now(), Text: "second"},
		{Timestamp: time.Now().Add(-time.Minute), Text: "first"},
	}
}

func TestStrategies_OneMeasurementPerSave(t *testing.T) {
	for _, kind := range core.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, kind, 3)

			require.NoError(t, h.settle(t, h.save(t, s)))

			ms := h.measurements()
			require.Len(t, ms, 1)
			assert.Equal(t, string(kind), ms[0].Name)
			assert.GreaterOrEqual(t, ms[0].Duration, time.Duration(0))

			all := h.rec.Events()
			require.NotEmpty(t, all)
			assert.Equal(t, core.EventTraceNew, all[0].Type, "trace-new must open the sequence")
			for _, e := range all[1:] {
				assert.Equal(t, all[0].TraceID, e.TraceID)
			}

			msgs := h.messages()
			require.NotEmpty(t, msgs)
			assert.Equal(t, "Called startTimer()", msgs[0])
			assert.Equal(t, "Returning from save()", msgs[len(msgs)-1])
			assert.Equal(t, "Called stopTimer()", msgs[len(msgs)-2])
		})
	}
}

func TestStrategies_CorrectMeasurementsCoverWork(t *testing.T) {
	kinds := []core.StrategyKind{
		core.KindSync,
		core.KindSetTimeout,
		core.KindSetTimeoutByParts,
		core.KindAwaitedPromise,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, kind, 4)

			require.NoError(t, h.settle(t, h.save(t, s)))

			ms := h.measurements()
			require.Len(t, ms, 1)
			assert.GreaterOrEqual(t, ms[0].Duration, testSim.Work)
		})
	}
}

func TestStrategies_UnawaitedMeasurementsMissWork(t *testing.T) {
	kinds := []core.StrategyKind{
		core.KindUnawaitedPromise,
		core.KindUnawaitedPreparedPromise,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, kind, 1)

			start := time.Now()
			p := h.save(t, s)
			require.NoError(t, h.settle(t, p))
			elapsed := time.Since(start)

			ms := h.measurements()
			require.Len(t, ms, 1)
			assert.Less(t, ms[0].Duration, testSim.Work)
			// The work still ran, just outside the measurement.
			assert.GreaterOrEqual(t, elapsed, testSim.Work)
		})
	}
}

func TestUnawaitedFinalized_CompletesAfterFinalize(t *testing.T) {
	h := newHarness(t)
	s := h.strategy(t, core.KindUnawaitedFinalizedPromise, 1)

	require.NoError(t, h.settle(t, h.save(t, s)))

	ms := h.measurements()
	require.Len(t, ms, 1)
	assert.GreaterOrEqual(t, ms[0].Duration, testSim.Overhead)
	assert.Equal(t, []string{
		"Called startTimer()",
		"Called result = this.saveInternal(notes)",
		"Called await finalize(notes)",
		"Resumed after await finalize(notes)",
		"Called stopTimer()",
		"Returning from save()",
	}, h.messages())
}

func TestAwaitedPromise_TraceOrder(t *testing.T) {
	h := newHarness(t)
	s := h.strategy(t, core.KindAwaitedPromise, 1)

	require.NoError(t, h.settle(t, h.save(t, s)))

	assert.Equal(t, []string{
		"Called startTimer()",
		"Called await this.saveInternal(notes)",
		"Called compress(notes)",
		"Resumed after await this.saveInternal(notes)",
		"Called stopTimer()",
		"Returning from save()",
	}, h.messages())
}

func TestUnawaitedPromise_ReturnsBeforeWork(t *testing.T) {
	h := newHarness(t)
	s := h.strategy(t, core.KindUnawaitedPromise, 1)

	var settledInline bool
	require.NoError(t, h.loop.Do(context.Background(), func() {
		p := s.Save(sampleNotes())
		settledInline = p.Settled()
	}))
	assert.True(t, settledInline, "unawaited save completes before its work runs")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.loop.Idle(ctx))
}

func TestSetTimeoutByParts_ChainedFractions(t *testing.T) {
	h := newHarness(t)
	const parts = 4
	s := h.strategy(t, core.KindSetTimeoutByParts, parts)

	var p *eventloop.Promise
	require.NoError(t, h.loop.Do(context.Background(), func() {
		p = s.Save(sampleNotes())
		// Queued behind the first fraction; chunking lets it run before
		// the second one.
		h.loop.Post(func() {
			h.bus.Dispatch(core.Event{Type: core.EventTraceLog, Log: "[00:00:00] marker"})
		})
	}))
	require.NoError(t, h.settle(t, p))

	var fractions []string
	for _, m := range h.messages() {
		if strings.HasPrefix(m, "Called compressParts") || m == "marker" {
			fractions = append(fractions, m)
		}
	}
	assert.Equal(t, []string{
		"Called compressParts(notes, 4, 0)",
		"marker",
		"Called compressParts(notes, 4, 1)",
		"Called compressParts(notes, 4, 2)",
		"Called compressParts(notes, 4, 3)",
	}, fractions)

	ms := h.measurements()
	require.Len(t, ms, 1)
	assert.GreaterOrEqual(t, ms[0].Duration, testSim.Work)
}

func TestSetTimeoutByParts_ArticleExample(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-length simulation in short mode")
	}

	h := newHarness(t)
	s, err := store.New(core.KindSetTimeoutByParts, store.Config{
		Loop:      h.loop,
		Target:    h.bus,
		Simulator: store.DefaultSimulator(),
		Parts:     4,
	})
	require.NoError(t, err)

	require.NoError(t, h.settle(t, h.save(t, s)))

	assert.Equal(t, 4, count(h.messages(), "Called compressParts(notes, 4, "))
	ms := h.measurements()
	require.Len(t, ms, 1)
	assert.GreaterOrEqual(t, ms[0].Duration, 1133*time.Millisecond)
}

func TestTimerStrategies_SupersedePendingSave(t *testing.T) {
	cases := []struct {
		kind   core.StrategyKind
		parts  int
		worked string
		runs   int
	}{
		{core.KindSetTimeout, 1, "Called compress(notes)", 1},
		{core.KindInstant, 1, "Timer fired", 1},
		{core.KindSetTimeoutByParts, 3, "Called compressParts", 3},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, tc.kind, tc.parts)

			var first, second *eventloop.Promise
			require.NoError(t, h.loop.Do(context.Background(), func() {
				first = s.Save(sampleNotes())
				second = s.Save(sampleNotes())
			}))

			assert.ErrorIs(t, h.settle(t, first), core.ErrSaveSuperseded)
			require.NoError(t, h.settle(t, second))

			msgs := h.messages()
			assert.Equal(t, tc.runs, count(msgs, tc.worked), "only the latest save runs its work")
			assert.Equal(t, 1, count(msgs, "Called clearTimeout()"))
			assert.Len(t, h.measurements(), 1)
			assert.Len(t, h.rec.OfType(core.EventTraceNew), 2)
		})
	}
}

func TestSetTimeoutByParts_SupersedeMidChain(t *testing.T) {
	h := newHarness(t)
	s := h.strategy(t, core.KindSetTimeoutByParts, 3)

	var first *eventloop.Promise
	next := make(chan *eventloop.Promise, 1)
	require.NoError(t, h.loop.Do(context.Background(), func() {
		first = s.Save(sampleNotes())
		// Runs after fraction 0, while fraction 1 is pending.
		h.loop.Post(func() {
			next <- s.Save(sampleNotes())
		})
	}))

	assert.ErrorIs(t, h.settle(t, first), core.ErrSaveSuperseded)
	second := <-next
	require.NoError(t, h.settle(t, second))

	msgs := h.messages()
	assert.Equal(t, 1, count(msgs, "Called compressParts(notes, 3, 0)"), "first save ran one fraction")
	assert.Equal(t, 3, count(msgs, "Called compressParts")-1, "second save ran the whole chain")
	assert.Equal(t, []string{"Called clearTimeout() on 1 pending timer(s)"}, filter(msgs, "Called clearTimeout()"))

	ms := h.measurements()
	require.Len(t, ms, 1)
	assert.GreaterOrEqual(t, ms[0].Duration, testSim.Work)
}

func TestTimerStrategies_Cancel(t *testing.T) {
	for _, kind := range []core.StrategyKind{core.KindSetTimeout, core.KindInstant, core.KindSetTimeoutByParts} {
		t.Run(string(kind), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, kind, 2)
			canceler, ok := s.(store.Canceler)
			require.True(t, ok)

			var p *eventloop.Promise
			require.NoError(t, h.loop.Do(context.Background(), func() {
				p = s.Save(sampleNotes())
				canceler.Cancel()
			}))

			assert.ErrorIs(t, h.settle(t, p), core.ErrSaveSuperseded)
			assert.Zero(t, count(h.messages(), "Called stopTimer()"))
			assert.Empty(t, h.measurements())
		})
	}

	t.Run("promise strategies have nothing to cancel", func(t *testing.T) {
		h := newHarness(t)
		_, ok := h.strategy(t, core.KindAwaitedPromise, 1).(store.Canceler)
		assert.False(t, ok)
	})
}

func TestSetTimeout_SequentialSavesBothRun(t *testing.T) {
	h := newHarness(t)
	s := h.strategy(t, core.KindSetTimeout, 1)

	require.NoError(t, h.settle(t, h.save(t, s)))
	require.NoError(t, h.settle(t, h.save(t, s)))

	assert.Equal(t, 2, count(h.messages(), "Called compress(notes)"))
	assert.Equal(t, 0, count(h.messages(), "Called clearTimeout()"))
	assert.Len(t, h.measurements(), 2)
}

func TestNew_Errors(t *testing.T) {
	_, err := store.New(core.KindSync, store.Config{})
	assert.Error(t, err)

	_, err = store.New("webWorker", store.Config{Loop: eventloop.New()})
	assert.ErrorIs(t, err, core.ErrUnknownStrategy)
}

func TestNew_ClampsNonPositiveParts(t *testing.T) {
	for _, parts := range []int{0, -3} {
		t.Run(fmt.Sprint(parts), func(t *testing.T) {
			h := newHarness(t)
			s := h.strategy(t, core.KindSetTimeoutByParts, parts)

			require.NoError(t, h.settle(t, h.save(t, s)))
			assert.Equal(t, []string{"Called compressParts(notes, 1, 0)"}, filter(h.messages(), "Called compressParts"))
		})
	}
}

func filter(msgs []string, prefix string) []string {
	var out []string
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}
