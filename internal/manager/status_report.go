package manager

import (
	"time"

	"vynel/pkg/types"
)

// Snapshot returns the current session state.
func (m *Manager) Snapshot() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns the session state in its wire form.
func (m *Manager) Session() types.SessionResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.SessionResponse{
		State:   m.state.Phase.String(),
		Backend: string(m.state.Kind),
		Model:   m.modelID,
	}
	if m.state.Phase == PhaseInitializing {
		resp.Progress = m.state.Progress
	}
	if m.state.Err != nil {
		resp.Error = m.state.Err.Error()
	}
	return resp
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	kinds, _ := m.prober.Probe()
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		State:            m.state.Phase.String(),
		Backend:          string(m.state.Kind),
		Model:            m.modelID,
		LastError:        m.lastErr,
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
		LoadsTotal:       m.loadsTotal,
		GenerationsTotal: m.gensTotal,
	}
	if m.state.Phase == PhaseInitializing {
		resp.Progress = m.state.Progress
	}
	if m.active != nil {
		resp.LoadMillis = m.loadTime.Milliseconds()
	}
	for _, k := range kinds {
		resp.Probe = append(resp.Probe, string(k))
	}
	if m.lastStats != nil {
		w := m.lastStats.Wire()
		resp.LastGeneration = &w
	}
	return resp
}
