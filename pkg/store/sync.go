package store

import (
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
)

// syncStore compresses on the calling turn, freezing the loop for the whole
// duration of the work.
type syncStore struct {
	*instrumented
}

func (s *syncStore) Save(notes []core.Note) *eventloop.Promise {
	stop := s.begin()
	s.sim.Compress(notes)
	s.trace.LogCalled("Called compress(notes)")
	s.finish(stop)
	return s.loop.Resolved()
}
