package store

import (
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

// compressAsync wraps the work in a promise. The work runs as a microtask,
// after the current task finishes.
func (b *instrumented) compressAsync(notes []core.Note, traced bool) *eventloop.Promise {
	return b.loop.Async(func() error {
		b.sim.Compress(notes)
		if traced {
			b.trace.LogCalled("Called compress(notes)")
		}
		return nil
	})
}

// prepareThenCompress awaits the short prepare step, then runs the work.
func (b *instrumented) prepareThenCompress(notes []core.Note) *eventloop.Promise {
	prepared := b.loop.Async(func() error {
		b.sim.Prepare(notes)
		return nil
	})
	return prepared.Then(func(err error) error {
		if err != nil {
			return err
		}
		b.sim.Compress(notes)
		return nil
	})
}

// awaitedPromiseStore suspends until the wrapped work resolves.
type awaitedPromiseStore struct {
	*instrumented
}

func (s *awaitedPromiseStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	work := s.compressAsync(notes, true)
	s.trace.LogCalled("Called await this.saveInternal(notes)")
	return work.Then(func(err error) error {
		s.trace.LogCalled("Resumed after await this.saveInternal(notes)")
		s.finish(stop)
		return err
	})
}

// unawaitedPromiseStore starts the wrapped work but stops the timer without
// waiting for it, so the measurement misses the work entirely.
type unawaitedPromiseStore struct {
	*instrumented
}

func (s *unawaitedPromiseStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	s.compressAsync(notes, false)
	s.trace.LogCalled("Called result = this.saveInternal(notes)")
	s.finish(stop)
	return s.loop.Resolved()
}

// unawaitedPreparedPromiseStore starts prepare-then-work without awaiting any
// of it.
type unawaitedPreparedPromiseStore struct {
	*instrumented
}

func (s *unawaitedPreparedPromiseStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	s.prepareThenCompress(notes)
	s.trace.LogCalled("Called result = this.saveInternal(notes)")
	s.finish(stop)
	return s.loop.Resolved()
}

// unawaitedFinalizedPromiseStore starts prepare-then-work unawaited and then
// awaits a separate finalize step. The timer stops when finalize resumes, which
// says nothing about whether the work is done.
type unawaitedFinalizedPromiseStore struct {
	*instrumented
}

func (s *unawaitedFinalizedPromiseStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	s.prepareThenCompress(notes)
	s.trace.LogCalled("Called result = this.saveInternal(notes)")

	finalized := s.loop.Async(func() error {
		s.sim.Finalize(notes)
		return nil
	})
	s.trace.LogCalled("Called await finalize(notes)")
	return finalized.Then(func(err error) error {
		s.trace.LogCalled("Resumed after await finalize(notes)")
		s.finish(stop)
		return err
	})
}
