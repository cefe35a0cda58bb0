package manager

// Reset cancels any generation, releases the active engine and returns the
// session to Idle. An initialization running concurrently is discarded when
// it completes.
func (m *Manager) Reset() {
	m.mu.Lock()
	b, model := m.active, m.modelID
	m.active, m.handle = nil, nil
	m.modelID = ""
	m.epoch++
	m.state = SessionState{Phase: PhaseIdle}
	tok := m.takeGenTokenLocked()
	m.mu.Unlock()
	if tok != nil {
		tok.Cancel()
	}
	if b != nil {
		m.teardown(b, model)
	}
	m.publish("reset", model, nil)
}
