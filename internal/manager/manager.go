package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vynel/pkg/types"
)

// Manager owns the single active backend, the model bound to it and the
// session state machine. All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	state   SessionState
	modelID string
	active  Backend
	handle  EngineHandle
	genTok  *CancelToken
	// epoch is bumped whenever the active backend is dropped; work started
	// under an older epoch must not commit.
	epoch uint64

	// initMu serializes EnsureReady calls.
	initMu sync.Mutex

	registry     []types.Model
	defaultModel string
	backends     map[BackendKind]Backend
	prober       Prober
	prefs        Store
	publisher    EventPublisher
	log          zerolog.Logger

	startTime  time.Time
	loadsTotal uint64
	gensTotal  uint64
	loadTime   time.Duration
	lastStats  *GenerationStats
	lastErr    string
}

// New builds a Manager over the given backends, tried in the order given.
func New(reg []types.Model, defaultModel string, backends ...Backend) *Manager {
	return NewWithConfig(ManagerConfig{
		Registry:     reg,
		DefaultModel: defaultModel,
		Backends:     backends,
	})
}

// Ready reports whether a generation can start now.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Phase == PhaseReady && m.active != nil
}

// ModelID returns the model bound to the session, or "".
func (m *Manager) ModelID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modelID
}

// DefaultModel returns the model used when a caller names none.
func (m *Manager) DefaultModel() string { return m.defaultModel }

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// LastStats returns the stats of the most recent completed generation.
func (m *Manager) LastStats() (GenerationStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastStats == nil {
		return GenerationStats{}, false
	}
	return *m.lastStats, true
}

func (m *Manager) setState(epoch uint64, s SessionState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return false
	}
	m.state = s
	return true
}

func (m *Manager) fail(epoch uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.state = SessionState{Phase: PhaseFailed, Err: err}
	m.lastErr = err.Error()
}

func (m *Manager) publish(name, modelID string, fields map[string]any) {
	m.publisher.Publish(Event{Name: name, ModelID: modelID, Fields: fields})
}

// Close tears down the active backend and releases every configured backend.
func (m *Manager) Close() error {
	m.Reset()
	var first error
	for _, b := range m.backends {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
