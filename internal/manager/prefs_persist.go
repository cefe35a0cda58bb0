package manager

import (
	"context"
	"time"
)

const prefsTimeout = 2 * time.Second

// resolveDefaultModel picks the persisted selection when it is still a
// known model, else the configured default. A selection naming a model the
// registry no longer has is forgotten.
func (m *Manager) resolveDefaultModel(ctx context.Context) string {
	if id := m.loadSelectedModel(ctx); id != "" {
		if len(m.registry) == 0 {
			return id
		}
		if _, ok := m.getModelByID(id); ok {
			return id
		}
		m.forgetSelectedModel(ctx, id)
	}
	return m.defaultModel
}

func (m *Manager) forgetSelectedModel(ctx context.Context, stale string) {
	ctx, cancel := context.WithTimeout(ctx, prefsTimeout)
	defer cancel()
	if err := m.prefs.Delete(ctx, SelectedModelKey); err != nil {
		m.log.Warn().Err(err).Str("model", stale).Msg("drop stale selected model")
		return
	}
	m.log.Info().Str("model", stale).Msg("dropped selection of unknown model")
}

func (m *Manager) loadSelectedModel(ctx context.Context) string {
	if m.prefs == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, prefsTimeout)
	defer cancel()
	id, ok, err := m.prefs.Get(ctx, SelectedModelKey)
	if err != nil {
		m.log.Warn().Err(err).Msg("read selected model")
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

func (m *Manager) saveSelectedModel(ctx context.Context, id string) {
	if m.prefs == nil {
		return
	}
	// the load may have consumed the caller's deadline; persisting is best effort
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), prefsTimeout)
	defer cancel()
	if err := m.prefs.Set(ctx, SelectedModelKey, id); err != nil {
		m.log.Warn().Err(err).Str("model", id).Msg("persist selected model")
	}
}
