package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"vynel/pkg/types"
)

// fakeOllama serves the subset of the Ollama API the remote backend uses.
type fakeOllama struct {
	mu      sync.Mutex
	present map[string]bool
	reply   []string
	chatReq map[string]any
	pulls   int
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		ok := f.present[req.Model]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model '` + req.Model + `' not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"modelfile":"","details":{}}`))
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.pulls++
		f.present[req.Model] = true
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range []int{25, 50, 100} {
			fmt.Fprintf(w, `{"status":"pulling","digest":"sha256:x","total":100,"completed":%d}`+"\n", c)
		}
		fmt.Fprintln(w, `{"status":"success"}`)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.chatReq = req
		reply := f.reply
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/x-ndjson")
		fl, _ := w.(http.Flusher)
		for _, frag := range reply {
			b, _ := json.Marshal(map[string]any{"model": req["model"], "message": map[string]string{"role": "assistant", "content": frag}, "done": false})
			_, _ = w.Write(append(b, '\n'))
			if fl != nil {
				fl.Flush()
			}
		}
		_, _ = w.Write([]byte(`{"model":"x","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}` + "\n"))
	})
	return mux
}

func newRemote(t *testing.T, f *fakeOllama, pull bool) Backend {
	t.Helper()
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	reg := []types.Model{{ID: "TinyLlama", Remote: "tinyllama"}}
	b, err := NewRemoteBackend(RemoteConfig{Endpoint: ts.URL, Models: RegistryLookup(reg), Pull: pull, HeartbeatInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewRemoteBackend: %v", err)
	}
	return b
}

func TestRemoteBackend_StreamsChat(t *testing.T) {
	f := &fakeOllama{present: map[string]bool{"tinyllama": true}, reply: []string{"Hel", "lo", "lo", "!"}}
	b := newRemote(t, f, false)
	h, err := b.Initialize(testCtx(t), "TinyLlama", nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	rec := newRecorder()
	b.GenerateStream(testCtx(t), h, []Turn{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}}, rec.handlers())
	tokens, dones, errs := rec.snapshot()
	if len(errs) != 0 {
		t.Fatalf("errs: %v", errs)
	}
	if !reflect.DeepEqual(tokens, []string{"Hel", "lo", "!"}) || len(dones) != 1 || dones[0].Content != "Hello!" {
		t.Fatalf("tokens=%v dones=%+v", tokens, dones)
	}
	f.mu.Lock()
	req := f.chatReq
	f.mu.Unlock()
	if req["model"] != "tinyllama" || req["stream"] != true {
		t.Fatalf("chat request = %v", req)
	}
	if msgs, _ := req["messages"].([]any); len(msgs) != 2 {
		t.Fatalf("messages = %v", req["messages"])
	}
}

func TestRemoteBackend_MissingModelWithoutPull(t *testing.T) {
	f := &fakeOllama{present: map[string]bool{}}
	b := newRemote(t, f, false)
	_, err := b.Initialize(testCtx(t), "TinyLlama", nil)
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("expected model load error, got %v", err)
	}
}

func TestRemoteBackend_PullReportsRealProgress(t *testing.T) {
	f := &fakeOllama{present: map[string]bool{}}
	b := newRemote(t, f, true)
	var prog progressLog
	if _, err := b.Initialize(testCtx(t), "TinyLlama", prog.fn); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	want := []ProgressEvent{{Progress: 0.25}, {Progress: 0.5}, {Progress: 0.99}}
	if got := prog.events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("progress = %+v, want %+v", got, want)
	}
	if f.pulls != 1 {
		t.Fatalf("pulls = %d", f.pulls)
	}
}

func TestRemoteBackend_UnreachableIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()
	b, err := NewRemoteBackend(RemoteConfig{Endpoint: url})
	if err != nil {
		t.Fatalf("NewRemoteBackend: %v", err)
	}
	if _, err := b.Initialize(testCtx(t), "m", nil); !IsBackendUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestNewRemoteBackend_RejectsBadEndpoint(t *testing.T) {
	if _, err := NewRemoteBackend(RemoteConfig{Endpoint: "not a url"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRemoteBackend_CancelMidStream(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) })
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"first"},"done":false}` + "\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()
	defer close(release)
	b, _ := NewRemoteBackend(RemoteConfig{Endpoint: ts.URL})
	h, err := b.Initialize(testCtx(t), "m", nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	rec := newRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.GenerateStream(testCtx(t), h, []Turn{{Role: RoleUser, Content: "x"}}, rec.handlers())
	}()
	<-rec.tokCh
	b.Cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("stream not cancelled")
	}
	tokens, dones, errs := rec.snapshot()
	if len(tokens) != 1 || len(dones)+len(errs) != 0 {
		t.Fatalf("tokens=%v dones=%d errs=%v", tokens, len(dones), errs)
	}
}
