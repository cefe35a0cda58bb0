package manager

import (
	"context"
	"fmt"
	"time"
)

// EnsureReady binds the session to modelID on the best available backend.
// A call for the model that is already loaded returns at once. A different
// model tears the current backend down before any new initialization starts.
// An empty modelID selects the last persisted choice or the default model.
func (m *Manager) EnsureReady(ctx context.Context, modelID string, onProgress ProgressFunc) (BackendKind, error) {
	if modelID == "" {
		modelID = m.resolveDefaultModel(ctx)
		if modelID == "" {
			return "", ErrModelNotFound("(unspecified)")
		}
	}
	if len(m.registry) > 0 {
		if _, ok := m.getModelByID(modelID); !ok {
			return "", ErrModelNotFound(modelID)
		}
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	m.mu.Lock()
	if m.active != nil && m.modelID == modelID {
		kind := m.state.Kind
		m.mu.Unlock()
		return kind, nil
	}
	old, oldModel := m.active, m.modelID
	m.active, m.handle = nil, nil
	m.epoch++
	epoch := m.epoch
	tok := m.takeGenTokenLocked()
	m.mu.Unlock()
	if tok != nil {
		tok.Cancel()
	}

	if old != nil {
		m.teardown(old, oldModel)
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: session reset during initialization", ErrNotReady)
	}
	m.modelID = modelID
	m.state = SessionState{Phase: PhaseProbing}
	m.mu.Unlock()

	m.publish("ensure_start", modelID, nil)
	rep := newProgressReporter(onProgress, func(ev ProgressEvent) {
		if ev.Err != "" {
			return
		}
		m.mu.Lock()
		if m.epoch == epoch && m.state.Phase == PhaseInitializing {
			m.state.Progress = ev.Progress
		}
		m.mu.Unlock()
	})
	defer rep.close()

	kinds, err := m.prober.Probe()
	if err != nil {
		m.fail(epoch, err)
		rep.report(ProgressEvent{Err: err.Error()})
		m.publish("ensure_failed", modelID, map[string]any{"error": err.Error()})
		return "", err
	}

	var lastErr error
	for _, kind := range kinds {
		b := m.backends[kind]
		if b == nil {
			lastErr = fmt.Errorf("%w: %s backend not configured", ErrBackendUnavailable, kind)
			continue
		}
		if !m.setState(epoch, SessionState{Phase: PhaseInitializing, Kind: kind}) {
			return "", fmt.Errorf("%w: session reset during initialization", ErrNotReady)
		}
		log := m.log.With().Str("model", modelID).Str("backend", string(kind)).Logger()
		log.Debug().Msg("initializing backend")
		t0 := time.Now()
		h, err := b.Initialize(ctx, modelID, rep.report)
		if err == nil {
			load := time.Since(t0)
			m.mu.Lock()
			if m.epoch != epoch {
				m.mu.Unlock()
				_ = b.Close()
				return "", fmt.Errorf("%w: session reset during initialization", ErrNotReady)
			}
			m.active, m.handle = b, h
			m.state = SessionState{Phase: PhaseReady, Kind: kind}
			m.loadTime = load
			m.loadsTotal++
			m.lastErr = ""
			m.mu.Unlock()

			observeInit(kind, "ok", load)
			rep.report(ProgressEvent{Progress: 1})
			log.Info().Dur("load", load).Msg("model ready")
			m.publish("ensure_ready", modelID, map[string]any{"backend": string(kind), "load_ms": load.Milliseconds()})
			m.saveSelectedModel(ctx, modelID)
			return kind, nil
		}
		_ = b.Close()
		lastErr = err
		if IsBackendUnavailable(err) {
			observeInit(kind, "unavailable", 0)
			log.Info().Err(err).Msg("backend unavailable, trying next")
			m.publish("backend_unavailable", modelID, map[string]any{"backend": string(kind), "error": err.Error()})
		} else {
			observeInit(kind, "error", 0)
			log.Warn().Err(err).Msg("backend failed to initialize")
			m.publish("backend_failed", modelID, map[string]any{"backend": string(kind), "error": err.Error()})
		}
		if ctx.Err() != nil {
			break
		}
	}

	err = initFailedError{last: lastErr}
	m.fail(epoch, err)
	rep.report(ProgressEvent{Err: err.Error()})
	m.log.Error().Str("model", modelID).Err(lastErr).Msg("initialization failed")
	m.publish("ensure_failed", modelID, map[string]any{"error": err.Error()})
	return "", err
}
