package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aretw0/chronote/pkg/core"
)

// Recorder keeps every event dispatched on a Bus.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
	sub    *Subscription
}

// NewRecorder attaches a recorder to b.
func NewRecorder(b *Bus) *Recorder {
	r := &Recorder{}
	r.sub = b.SubscribeAll(func(e core.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]core.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t core.EventType) []core.Event {
	var out []core.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Close detaches the recorder from its bus.
func (r *Recorder) Close() {
	r.sub.Unsubscribe()
}

// Save writes the recorded events to a JSON-lines file.
func (r *Recorder) Save(filename string) error {
	return SaveTrace(filename, r.Events())
}

// LoadTrace reads events from a JSON-lines file.
func LoadTrace(filename string) ([]core.Event, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	var trace []core.Event
	dec := json.NewDecoder(bufio.NewReader(f))
	for dec.More() {
		var e core.Event
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		trace = append(trace, e)
	}
	return trace, nil
}

// SaveTrace writes events to a JSON-lines file.
func SaveTrace(filename string, trace []core.Event) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range trace {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return w.Flush()
}
