package manager

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// callLog records backend calls across fakes so tests can assert ordering.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(s string) int {
	n := 0
	for _, c := range l.list() {
		if c == s {
			n++
		}
	}
	return n
}

// fakeBackend is a scriptable in-memory Backend.
type fakeBackend struct {
	kind     BackendKind
	log      *callLog
	initErr  error
	progress []float64
	frags    []string
	genErr   error
	// step, when set, gates every Recv on a receive from it.
	step chan struct{}
	// hold, when set, keeps the stream open after the last fragment until closed.
	hold chan struct{}

	slot genSlot
	mu   sync.Mutex
	cur  string
}

func newFake(kind BackendKind, log *callLog) *fakeBackend {
	if log == nil {
		log = &callLog{}
	}
	return &fakeBackend{kind: kind, log: log}
}

func (f *fakeBackend) Kind() BackendKind { return f.kind }

func (f *fakeBackend) Initialize(ctx context.Context, modelID string, onProgress ProgressFunc) (EngineHandle, error) {
	f.log.add(string(f.kind) + ":init:" + modelID)
	if f.initErr != nil {
		return nil, f.initErr
	}
	for _, p := range f.progress {
		if onProgress != nil {
			onProgress(ProgressEvent{Progress: p})
		}
	}
	f.mu.Lock()
	f.cur = modelID
	f.mu.Unlock()
	return engineHandle{model: modelID, kind: f.kind}, nil
}

func (f *fakeBackend) GenerateStream(ctx context.Context, handle EngineHandle, turns []Turn, h StreamHandlers) {
	f.log.add(string(f.kind) + ":generate")
	tok, gctx, done := f.slot.begin(ctx)
	defer done()
	consumeStream(gctx, tok, &sliceStream{ctx: gctx, frags: f.frags, err: f.genErr, step: f.step, hold: f.hold}, h, false)
}

func (f *fakeBackend) Cancel() {
	f.log.add(string(f.kind) + ":cancel")
	f.slot.Cancel()
}

func (f *fakeBackend) Close() error {
	f.log.add(string(f.kind) + ":close")
	f.mu.Lock()
	f.cur = ""
	f.mu.Unlock()
	return nil
}

// sliceStream replays frags, then err (or io.EOF).
type sliceStream struct {
	ctx   context.Context
	frags []string
	err   error
	step  chan struct{}
	hold  chan struct{}
	i     int
}

func (s *sliceStream) Recv() (string, error) {
	if s.step != nil {
		select {
		case <-s.step:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	if s.i < len(s.frags) {
		s.i++
		return s.frags[s.i-1], nil
	}
	if s.err != nil {
		return "", s.err
	}
	if s.hold != nil {
		select {
		case <-s.hold:
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		}
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error { return nil }

// recorder collects StreamHandlers callbacks.
type recorder struct {
	mu     sync.Mutex
	tokens []string
	dones  []FinalResult
	errs   []error
	tokCh  chan string
}

func newRecorder() *recorder { return &recorder{tokCh: make(chan string, 64)} }

func (r *recorder) handlers() StreamHandlers {
	return StreamHandlers{
		OnToken: func(s string) {
			r.mu.Lock()
			r.tokens = append(r.tokens, s)
			r.mu.Unlock()
			r.tokCh <- s
		},
		OnDone: func(f FinalResult) {
			r.mu.Lock()
			r.dones = append(r.dones, f)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() (tokens []string, dones []FinalResult, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...), append([]FinalResult(nil), r.dones...), append([]error(nil), r.errs...)
}

// progressLog collects ProgressEvents.
type progressLog struct {
	mu  sync.Mutex
	evs []ProgressEvent
}

func (p *progressLog) fn(ev ProgressEvent) {
	p.mu.Lock()
	p.evs = append(p.evs, ev)
	p.mu.Unlock()
}

func (p *progressLog) events() []ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ProgressEvent(nil), p.evs...)
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// writeWeights creates a small placeholder weights file and returns its path.
func writeWeights(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return p
}

// buildTestBinary builds the fake llama server used for subprocess tests and returns its path.
func buildTestBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := filepath.Join(t.TempDir(), "fake_llama_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_llama_server.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	m       map[string]string
	deletes int
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]string{}
	}
	s.m[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	s.deletes++
	return nil
}
