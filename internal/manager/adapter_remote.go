package manager

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// RemoteConfig configures the remote streaming backend.
type RemoteConfig struct {
	// Endpoint is the base URL of an Ollama-compatible server.
	Endpoint string
	Models   ModelLookup
	// Pull downloads a missing model instead of failing.
	Pull              bool
	KeepRepeats       bool
	HTTPClient        *http.Client
	HeartbeatInterval time.Duration
	Logger            *zerolog.Logger
}

type remoteBackend struct {
	cfg    RemoteConfig
	client *api.Client
	log    zerolog.Logger
	slot   genSlot

	mu  sync.Mutex
	cur *remoteHandle
}

type remoteHandle struct {
	engineHandle
	name string
}

// NewRemoteBackend builds the remote backend for cfg.Endpoint.
func NewRemoteBackend(cfg RemoteConfig) (Backend, error) {
	base, err := url.Parse(cfg.Endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote endpoint %q", cfg.Endpoint)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &remoteBackend{cfg: cfg, client: api.NewClient(base, hc), log: backendLogger(cfg.Logger, KindRemote)}, nil
}

func (a *remoteBackend) Kind() BackendKind { return KindRemote }

// remoteName maps a model id to the server's model name.
func (a *remoteBackend) remoteName(modelID string) string {
	if a.cfg.Models != nil {
		if mdl, ok := a.cfg.Models(modelID); ok && mdl.Remote != "" {
			return mdl.Remote
		}
	}
	return modelID
}

func (a *remoteBackend) Initialize(ctx context.Context, modelID string, onProgress ProgressFunc) (EngineHandle, error) {
	a.mu.Lock()
	if a.cur != nil && a.cur.model == modelID {
		h := a.cur
		a.mu.Unlock()
		return h, nil
	}
	a.cur = nil
	a.mu.Unlock()

	if err := a.client.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("%w: remote server unreachable: %v", ErrBackendUnavailable, err)
	}
	name := a.remoteName(modelID)
	hb := startHeartbeat(a.cfg.HeartbeatInterval, progressOrNop(onProgress))
	defer hb.Stop()

	if _, err := a.client.Show(ctx, &api.ShowRequest{Model: name}); err != nil {
		if !a.cfg.Pull {
			return nil, fmt.Errorf("%w: remote model %s: %v", ErrModelLoad, name, err)
		}
		a.log.Info().Str("model", name).Msg("pulling remote model")
		err = a.client.Pull(ctx, &api.PullRequest{Model: name}, func(p api.ProgressResponse) error {
			if p.Total > 0 {
				// 1 is reserved for the ready event
				hb.Forward(ProgressEvent{Progress: min(float64(p.Completed)/float64(p.Total), 0.99)})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: pull %s: %v", ErrModelLoad, name, err)
		}
	}

	h := &remoteHandle{engineHandle: engineHandle{model: modelID, kind: KindRemote}, name: name}
	a.mu.Lock()
	a.cur = h
	a.mu.Unlock()
	return h, nil
}

func (a *remoteBackend) GenerateStream(ctx context.Context, handle EngineHandle, turns []Turn, h StreamHandlers) {
	rh, ok := handle.(*remoteHandle)
	a.mu.Lock()
	live := ok && rh == a.cur
	a.mu.Unlock()
	if !live {
		h.fail(fmt.Errorf("%w: engine handle is not loaded", ErrGeneration))
		return
	}
	tok, gctx, done := a.slot.begin(ctx)
	defer done()
	msgs := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, api.Message{Role: string(t.Role), Content: t.Content})
	}
	streaming := true
	req := &api.ChatRequest{
		Model:    rh.name,
		Messages: msgs,
		Stream:   &streaming,
		Options:  map[string]any{"temperature": defaultTemperature, "num_predict": defaultMaxTokens},
	}
	stream := newChanStream(gctx, func(ctx context.Context, emit func(string) bool) error {
		return a.client.Chat(ctx, req, func(r api.ChatResponse) error {
			if !emit(r.Message.Content) {
				return ctx.Err()
			}
			return nil
		})
	})
	consumeStream(gctx, tok, stream, h, a.cfg.KeepRepeats)
}

func (a *remoteBackend) Cancel() { a.slot.Cancel() }

// Close forgets the handle. The remote server keeps its own model cache.
func (a *remoteBackend) Close() error {
	a.mu.Lock()
	a.cur = nil
	a.mu.Unlock()
	return nil
}
