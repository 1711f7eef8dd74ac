package view

import (
	"sync"

	"github.com/aretw0/chronote/pkg/core"
)

// MaxPoints is how many measurements a series keeps.
const MaxPoints = 10

// Point is one measurement in a series. X runs from 1 to the series length.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Series holds the recent measurements for one name.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// PerfChart collects measurements into one series per measurement name, in
// order of first appearance.
type PerfChart struct {
	mu     sync.RWMutex
	series []*Series
}

// NewPerfChart creates an empty chart.
func NewPerfChart() *PerfChart {
	return &PerfChart{}
}

// Handle adds report-perf-measurement events to the chart.
func (c *PerfChart) Handle(e core.Event) {
	if e.Type != core.EventPerfMeasurement || e.Measurement == nil {
		return
	}
	c.Add(e.Measurement.Name, e.Measurement.Milliseconds())
}

// Add appends a value in milliseconds. Once a series is full the oldest point
// is dropped and the rest shift left by one.
func (c *PerfChart) Add(name string, ms float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.find(name)
	if len(s.Points) == MaxPoints {
		s.Points = append(s.Points[:0], s.Points[1:]...)
		for i := range s.Points {
			s.Points[i].X--
		}
	}
	s.Points = append(s.Points, Point{X: len(s.Points) + 1, Y: ms})
}

func (c *PerfChart) find(name string) *Series {
	for _, s := range c.series {
		if s.Name == name {
			return s
		}
	}
	s := &Series{Name: name}
	c.series = append(c.series, s)
	return s
}

// Series returns a copy of every series.
func (c *PerfChart) Series() []Series {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Series, 0, len(c.series))
	for _, s := range c.series {
		out = append(out, Series{Name: s.Name, Points: append([]Point(nil), s.Points...)})
	}
	return out
}
