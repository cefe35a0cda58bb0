package manager

import (
	"time"

	"github.com/rs/zerolog"

	"vynel/pkg/types"
)

// SelectedModelKey is the preference key holding the last selected model.
const SelectedModelKey = "vynellm:selectedModel"

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Registry lists known models. When empty any model id is accepted.
	Registry     []types.Model
	DefaultModel string
	// Backends available to the session, looked up by Kind.
	Backends []Backend
	// Prober ranks backends per initialization attempt. Defaults to the
	// order of Backends.
	Prober Prober
	// Prefs persists the last selected model. Optional.
	Prefs     Store
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		registry:     cfg.Registry,
		defaultModel: cfg.DefaultModel,
		backends:     make(map[BackendKind]Backend, len(cfg.Backends)),
		prober:       cfg.Prober,
		prefs:        cfg.Prefs,
		publisher:    cfg.Publisher,
		log:          zerolog.Nop(),
	}
	var order staticProber
	for _, b := range cfg.Backends {
		if b == nil {
			continue
		}
		if _, dup := m.backends[b.Kind()]; !dup {
			order = append(order, b.Kind())
		}
		m.backends[b.Kind()] = b
	}
	if m.prober == nil {
		m.prober = order
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if m.defaultModel == "" && len(m.registry) > 0 {
		m.defaultModel = m.registry[0].ID
	}
	m.startTime = time.Now()
	return m
}
