package manager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generate streams the reply to turns through h. It requires the Ready
// phase and returns ErrNotReady otherwise, including while another
// generation runs. It blocks until the stream ends; stream failures are
// delivered to h.OnError, never returned. A cancelled generation ends with
// no terminal callback. The session is back in Ready before OnDone or
// OnError runs.
func (m *Manager) Generate(ctx context.Context, turns []Turn, h StreamHandlers) error {
	g, gctx, err := m.beginGeneration(ctx)
	if err != nil {
		return err
	}
	defer g.tok.release()
	id := uuid.NewString()
	log := m.log.With().Str("gen", id).Str("model", g.model).Str("backend", string(g.kind)).Logger()
	m.publish("generate_start", g.model, map[string]any{"gen": id, "backend": string(g.kind)})

	timer := startGenTimer()
	var (
		once     sync.Once
		terminal atomic.Bool
	)
	end := func(stats *GenerationStats) { once.Do(func() { m.endGeneration(g, stats) }) }

	g.backend.GenerateStream(gctx, g.handle, turns, StreamHandlers{
		OnToken: func(s string) {
			timer.token()
			h.token(s)
		},
		OnDone: func(r FinalResult) {
			if g.tok.Cancelled() {
				return
			}
			terminal.Store(true)
			st := timer.stats()
			end(&st)
			observeGeneration(g.kind, st)
			log.Info().Dur("ttft", st.TTFT).Int("tokens", st.Tokens).Dur("total", st.Total).
				Float64("tps", st.TokensPerSecond()).Msg("generation done")
			m.publish("generate_done", g.model, map[string]any{"gen": id, "tokens": st.Tokens})
			h.done(r)
		},
		OnError: func(err error) {
			if g.tok.Cancelled() {
				return
			}
			terminal.Store(true)
			st := timer.stats()
			end(&st)
			log.Warn().Err(err).Int("tokens", st.Tokens).Msg("generation failed")
			m.publish("generate_error", g.model, map[string]any{"gen": id, "error": err.Error()})
			h.fail(err)
		},
	})

	if !terminal.Load() {
		end(nil)
		log.Debug().Msg("generation cancelled")
		m.publish("generate_cancelled", g.model, map[string]any{"gen": id})
	}
	return nil
}
