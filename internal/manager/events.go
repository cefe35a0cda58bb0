package manager

import "github.com/rs/zerolog"

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
//
// Names emitted by the manager: ensure_start, backend_unavailable,
// backend_failed, ensure_ready, ensure_failed, teardown, generate_start,
// generate_done, generate_error, generate_cancelled, reset, switch_start,
// switch_done, switch_failed. The cpu backend adds spawn_start, spawn_ready,
// spawn_exit, spawn_timeout and spawn_stop.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes events as debug log lines.
type LogPublisher struct{ Log zerolog.Logger }

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name).Str("model", e.ModelID)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("session event")
}
