package manager

import (
	"context"
	"sync"
	"sync/atomic"
)

// CancelToken is a one-shot cancellation flag for a single generation
// attempt. Once set it stays set. Setting it also cancels the context
// returned by newCancelToken so blocked reads return promptly.
type CancelToken struct {
	set    atomic.Bool
	once   sync.Once
	cancel context.CancelFunc
}

func newCancelToken(parent context.Context) (*CancelToken, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &CancelToken{cancel: cancel}, ctx
}

// Cancel sets the token. Safe to call any number of times from any goroutine.
func (t *CancelToken) Cancel() {
	t.once.Do(func() {
		t.set.Store(true)
		t.cancel()
	})
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool { return t.set.Load() }

// release frees the derived context without marking the token cancelled.
func (t *CancelToken) release() { t.cancel() }

// genSlot tracks the token of the generation currently running in an adapter.
type genSlot struct {
	mu  sync.Mutex
	cur *CancelToken
}

// begin installs a fresh token for a new generation and returns its context.
// The returned func must be called when the generation ends.
func (s *genSlot) begin(ctx context.Context) (*CancelToken, context.Context, func()) {
	tok, gctx := newCancelToken(ctx)
	s.mu.Lock()
	s.cur = tok
	s.mu.Unlock()
	return tok, gctx, func() {
		s.mu.Lock()
		if s.cur == tok {
			s.cur = nil
		}
		s.mu.Unlock()
		tok.release()
	}
}

// Cancel sets the in-flight token, if any.
func (s *genSlot) Cancel() {
	s.mu.Lock()
	tok := s.cur
	s.mu.Unlock()
	if tok != nil {
		tok.Cancel()
	}
}
