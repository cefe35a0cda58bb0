package manager

import (
	"context"
	"fmt"
)

// generation is the admission ticket of one Generate call.
type generation struct {
	backend Backend
	handle  EngineHandle
	kind    BackendKind
	model   string
	epoch   uint64
	// tok belongs to this attempt from admission on, so a Cancel issued
	// before the adapter starts streaming is not lost.
	tok *CancelToken
}

// beginGeneration moves Ready to Generating. Any other phase is rejected
// without touching the backend, which keeps one generation per handle.
// The returned context is cancelled by Manager.Cancel and Reset.
func (m *Manager) beginGeneration(ctx context.Context) (generation, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != PhaseReady || m.active == nil {
		return generation{}, nil, fmt.Errorf("%w: session is %s", ErrNotReady, m.state.Phase)
	}
	tok, gctx := newCancelToken(ctx)
	g := generation{backend: m.active, handle: m.handle, kind: m.state.Kind, model: m.modelID, epoch: m.epoch, tok: tok}
	m.genTok = tok
	m.state = SessionState{Phase: PhaseGenerating, Kind: g.kind}
	return g, gctx, nil
}

// endGeneration returns to Ready unless the backend was dropped meanwhile.
func (m *Manager) endGeneration(g generation, stats *GenerationStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.genTok == g.tok {
		m.genTok = nil
	}
	if stats != nil {
		s := *stats
		m.lastStats = &s
		m.gensTotal++
	}
	if m.epoch == g.epoch && m.state.Phase == PhaseGenerating {
		m.state = SessionState{Phase: PhaseReady, Kind: g.kind}
	}
}

// takeGenTokenLocked detaches the token of the running generation, if any.
// Callers hold m.mu.
func (m *Manager) takeGenTokenLocked() *CancelToken {
	tok := m.genTok
	m.genTok = nil
	return tok
}
