package manager

import (
	"context"

	"github.com/google/uuid"
)

// Cancel stops the in-flight generation, if any. It is a no-op otherwise.
func (m *Manager) Cancel() {
	m.mu.Lock()
	b := m.active
	tok := m.takeGenTokenLocked()
	m.mu.Unlock()
	if tok != nil {
		tok.Cancel()
	}
	if b != nil {
		b.Cancel()
	}
}

// Switch starts EnsureReady for modelID in the background and returns an
// operation id. Callers poll Snapshot or Status to observe progress.
func (m *Manager) Switch(modelID string) string {
	op := uuid.NewString()
	m.publish("switch_start", modelID, map[string]any{"op": op})
	go func() {
		// detached: the switch outlives the request that started it
		kind, err := m.EnsureReady(context.Background(), modelID, nil)
		if err != nil {
			m.publish("switch_failed", modelID, map[string]any{"op": op, "error": err.Error()})
			return
		}
		m.publish("switch_done", modelID, map[string]any{"op": op, "backend": string(kind)})
	}()
	return op
}
