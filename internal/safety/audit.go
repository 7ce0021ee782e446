package safety

import "time"

// Event is the audit record emitted for every attempted write,
// whether it was performed, rejected, or failed. The core hands
// events to a Sink; storage format and rotation belong to the caller.
type Event struct {
	Request       string         `json:"request"`
	Category      string         `json:"category"`
	Params        map[string]any `json:"params,omitempty"`
	DryRun        bool           `json:"dry_run"`
	WritesEnabled bool           `json:"writes_enabled"`
	Result        string         `json:"result"`
	Time          time.Time      `json:"time"`
}

// Sink receives audit events.
type Sink interface {
	Emit(Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
