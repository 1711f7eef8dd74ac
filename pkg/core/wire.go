package core

import (
	"encoding/json"
	"time"
)

// wireEvent is the JSON form of Event used by the websocket stream and the
// JSON-lines recorder. Durations travel as milliseconds.
type wireEvent struct {
	Type     EventType `json:"type"`
	TraceID  string    `json:"trace_id,omitempty"`
	Time     time.Time `json:"time"`
	Name     string    `json:"name,omitempty"`
	Duration *float64  `json:"duration,omitempty"`
	Log      string    `json:"log,omitempty"`
	Status   Status    `json:"status,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Type:    e.Type,
		TraceID: e.TraceID,
		Time:    e.Time,
		Log:     e.Log,
		Status:  e.Status,
	}
	if e.Measurement != nil {
		ms := e.Measurement.Milliseconds()
		w.Name = e.Measurement.Name
		w.Duration = &ms
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		Type:    w.Type,
		TraceID: w.TraceID,
		Time:    w.Time,
		Log:     w.Log,
		Status:  w.Status,
	}
	if w.Duration != nil {
		e.Measurement = &Measurement{
			Name:     w.Name,
			Duration: time.Duration(*w.Duration * float64(time.Millisecond)),
		}
	}
	return nil
}
