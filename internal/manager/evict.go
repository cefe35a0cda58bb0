package manager

// teardown cancels any in-flight generation on b and releases its engine.
// It is called with the backend already detached from the session.
func (m *Manager) teardown(b Backend, modelID string) {
	b.Cancel()
	if err := b.Close(); err != nil {
		m.log.Warn().Err(err).Str("model", modelID).Str("backend", string(b.Kind())).Msg("backend close failed")
	}
	m.log.Debug().Str("model", modelID).Str("backend", string(b.Kind())).Msg("backend torn down")
	m.publish("teardown", modelID, map[string]any{"backend": string(b.Kind())})
}
