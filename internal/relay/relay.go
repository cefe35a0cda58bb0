// Package relay forwards chat requests to an Ollama-compatible /api/chat
// endpoint and streams the upstream NDJSON back line by line.
package relay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"vynel/pkg/types"
)

// failureLine is written once when the upstream stream breaks.
const failureLine = `{"error":"Streaming failed"}` + "\n"

// Handler is an http.Handler for POST /api/chat.
type Handler struct {
	upstream string
	model    string
	client   *http.Client
	log      zerolog.Logger
	maxBody  int64
}

// New returns a relay to upstream. model is used when the request names none.
// A nil client means http.DefaultClient.
func New(upstream, model string, client *http.Client, log zerolog.Logger) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{upstream: upstream, model: model, client: client, log: log, maxBody: 1 << 20}
}

// SetMaxBodyBytes caps the accepted request body size.
func (h *Handler) SetMaxBodyBytes(n int64) {
	if n > 0 {
		h.maxBody = n
	}
}

type upstreamRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	var req types.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "invalid JSON body", Code: http.StatusBadRequest})
		return
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.model
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush := func() {}
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}

	n, err := h.forward(r, upstreamRequest{Model: model, Messages: req.Messages, Stream: true}, w, flush)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.log.Warn().Err(err).Str("model", model).Int("lines", n).Msg("relay stream failed")
		_, _ = io.WriteString(w, failureLine)
		flush()
		return
	}
	h.log.Debug().Str("model", model).Int("lines", n).Msg("relay done")
}

// forward posts body upstream and copies each non-empty line to w.
// It returns the number of lines written.
func (h *Handler) forward(r *http.Request, body upstreamRequest, w io.Writer, flush func()) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	up, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.upstream, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	up.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(up)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("upstream %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return CopyLines(w, resp.Body, flush)
}

// CopyLines reads newline-delimited records from src and writes each
// non-empty one to dst followed by "\n". Records split across reads are
// reassembled; a trailing record without a newline is still forwarded.
func CopyLines(dst io.Writer, src io.Reader, flush func()) (int, error) {
	br := bufio.NewReader(src)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			if _, werr := dst.Write(append(line, '\n')); werr != nil {
				return n, werr
			}
			n++
			if flush != nil {
				flush()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
	}
}
