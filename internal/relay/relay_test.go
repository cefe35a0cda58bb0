package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// chunkReader returns its chunks one Read at a time.
type chunkReader struct {
	chunks []string
	err    error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func TestCopyLines_ReassemblesSplitLines(t *testing.T) {
	src := &chunkReader{chunks: []string{`{"message":{"content":"He`, `"}}` + "\n\n" + `{"done":`, `true}`}}
	var sb strings.Builder
	n, err := CopyLines(&sb, src, nil)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	want := `{"message":{"content":"He"}}` + "\n" + `{"done":true}` + "\n"
	if n != 2 || sb.String() != want {
		t.Fatalf("got n=%d %q want %q", n, sb.String(), want)
	}
}

func TestCopyLines_PropagatesReadError(t *testing.T) {
	boom := errors.New("reset by peer")
	var sb strings.Builder
	n, err := CopyLines(&sb, &chunkReader{chunks: []string{"a\n"}, err: boom}, nil)
	if !errors.Is(err, boom) || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestHandler_ForwardsUpstreamStream(t *testing.T) {
	var got upstreamRequest
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected upstream request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		f := w.(http.Flusher)
		io.WriteString(w, `{"message":{"content":"Hel`)
		f.Flush()
		time.Sleep(10 * time.Millisecond)
		io.WriteString(w, `lo"},"done":false}`+"\n")
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer up.Close()

	h := New(up.URL+"/api/chat", "llama3.1", up.Client(), zerolog.Nop())
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	h.ServeHTTP(rr, req)

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type %q", ct)
	}
	if rr.Header().Get("Cache-Control") != "no-cache" || rr.Header().Get("Connection") != "keep-alive" {
		t.Fatalf("missing streaming headers: %v", rr.Header())
	}
	want := `{"message":{"content":"Hello"},"done":false}` + "\n" + `{"done":true}` + "\n"
	if rr.Body.String() != want {
		t.Fatalf("body %q want %q", rr.Body.String(), want)
	}
	if got.Model != "llama3.1" || !got.Stream || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatalf("upstream payload %+v", got)
	}
}

func TestHandler_RequestModelOverridesDefault(t *testing.T) {
	var got upstreamRequest
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer up.Close()
	h := New(up.URL, "llama3.1", nil, zerolog.Nop())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"model":"mistral:7b","messages":[]}`)))
	if got.Model != "mistral:7b" {
		t.Fatalf("model %q", got.Model)
	}
}

func TestHandler_UpstreamDownWritesFailureLine(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := up.URL
	up.Close()

	h := New(url+"/api/chat", "llama3.1", nil, zerolog.Nop())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`)))
	if rr.Body.String() != failureLine {
		t.Fatalf("body %q", rr.Body.String())
	}
}

func TestHandler_UpstreamStatusWritesFailureLine(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer up.Close()
	h := New(up.URL, "llama3.1", nil, zerolog.Nop())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`)))
	if rr.Body.String() != failureLine {
		t.Fatalf("body %q", rr.Body.String())
	}
}

func TestHandler_BadJSON(t *testing.T) {
	h := New("http://127.0.0.1:1", "llama3.1", nil, zerolog.Nop())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("code %d", rr.Code)
	}
}
