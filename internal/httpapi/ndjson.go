package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// ndjsonStream writes one JSON value per line. The status line and headers
// go out with the first value, so handlers can still answer with a plain
// JSON error until something has been streamed. Callbacks from backend
// goroutines use emit; once sealed, emit drops values and only final writes.
type ndjsonStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	out     io.Writer
	flush   func()
	started bool
	sealed  bool
}

func newNDJSONStream(w http.ResponseWriter, tee io.Writer) *ndjsonStream {
	s := &ndjsonStream{w: w, out: w, flush: func() {}}
	if tee != nil {
		s.out = io.MultiWriter(w, tee)
	}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
	}
	return s
}

func (s *ndjsonStream) emit(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.writeLocked(v)
}

func (s *ndjsonStream) final(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	s.writeLocked(v)
}

func (s *ndjsonStream) seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

func (s *ndjsonStream) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *ndjsonStream) writeLocked(v any) {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	_ = json.NewEncoder(s.out).Encode(v)
	s.flush()
}
