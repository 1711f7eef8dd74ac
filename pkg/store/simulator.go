package store

import (
	"time"

	"github.com/aretw0/chronote/pkg/core"
)

const (
	// DefaultWork is how long a full "compression" blocks. It is an odd
	// number so the latency stands out from the prepare/finalize steps.
	DefaultWork = 1133 * time.Millisecond

	// DefaultOverhead is how long prepare and finalize block.
	DefaultOverhead = 97 * time.Millisecond
)

// Block busy-waits for at least d without yielding.
func Block(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}

// BlockFraction busy-waits for total/parts. A non-positive part count is
// treated as 1.
func BlockFraction(total time.Duration, parts, _ int) {
	if parts <= 0 {
		parts = 1
	}
	Block(total / time.Duration(parts))
}

// Simulator stands in for CPU-bound work on the notes. No real compression
// happens; the notes only exist to mirror the call shapes.
type Simulator struct {
	Work     time.Duration
	Overhead time.Duration
}

// DefaultSimulator returns a Simulator with the demo timings.
func DefaultSimulator() Simulator {
	return Simulator{Work: DefaultWork, Overhead: DefaultOverhead}
}

// Compress blocks for the full work duration.
func (s Simulator) Compress(_ []core.Note) {
	Block(s.Work)
}

// CompressPart blocks for one of parts equal fractions of the work.
func (s Simulator) CompressPart(_ []core.Note, parts, i int) {
	BlockFraction(s.Work, parts, i)
}

// Prepare blocks for the overhead duration.
func (s Simulator) Prepare(_ []core.Note) {
	Block(s.Overhead)
}

// Finalize blocks for the overhead duration.
func (s Simulator) Finalize(_ []core.Note) {
	Block(s.Overhead)
}
