package manager

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/rs/zerolog"

	"vynel/internal/common/fsutil"
)

// CPUConfig configures the CPU-only backend.
type CPUConfig struct {
	Spawn  SpawnConfig
	Models ModelLookup
	// KeepRepeats forwards a fragment even when the reply already ends with it.
	KeepRepeats       bool
	HeartbeatInterval time.Duration
	Logger            *zerolog.Logger
	Publisher         EventPublisher
}

// cpuBackend runs a llama-server subprocess with no GPU offload and streams
// from its OpenAI-compatible endpoint.
type cpuBackend struct {
	cfg   CPUConfig
	procs *llamaServerProcs
	log   zerolog.Logger
	slot  genSlot

	mu  sync.Mutex
	cur *cpuHandle
}

type cpuHandle struct {
	engineHandle
	path    string
	baseURL string
	client  openai.Client
}

// NewCPUBackend builds the cpu backend. An empty Spawn.Bin falls back to
// DiscoverLlamaBin at Initialize time.
func NewCPUBackend(cfg CPUConfig) Backend {
	log := backendLogger(cfg.Logger, KindCPU)
	spawn := cfg.Spawn
	spawn.GPULayers = 0
	return &cpuBackend{cfg: cfg, procs: newLlamaServerProcs(spawn, cfg.Publisher, log), log: log}
}

func (a *cpuBackend) Kind() BackendKind { return KindCPU }

func (a *cpuBackend) Initialize(ctx context.Context, modelID string, onProgress ProgressFunc) (EngineHandle, error) {
	a.mu.Lock()
	if a.cur != nil && a.cur.model == modelID {
		h := a.cur
		a.mu.Unlock()
		return h, nil
	}
	a.mu.Unlock()

	if a.procs.cfg.Bin == "" {
		a.procs.cfg.Bin = DiscoverLlamaBin()
		if a.procs.cfg.Bin == "" {
			return nil, fmt.Errorf("%w: llama-server not found", ErrBackendUnavailable)
		}
	}
	path, err := localWeights(a.cfg.Models, modelID)
	if err != nil {
		return nil, err
	}
	_ = a.Close()

	emit := progressOrNop(onProgress)
	hb := startHeartbeat(a.cfg.HeartbeatInterval, emit)
	defer hb.Stop()
	baseURL, err := a.procs.ensure(ctx, path)
	if err != nil {
		return nil, err
	}
	hb.Stop()

	h := &cpuHandle{
		engineHandle: engineHandle{model: modelID, kind: KindCPU},
		path:         path,
		baseURL:      baseURL,
		client: openai.NewClient(
			option.WithBaseURL(baseURL+"/v1/"),
			option.WithAPIKey("sk-no-key-required"),
			option.WithHTTPClient(a.procs.httpClient),
			option.WithMaxRetries(0),
		),
	}
	a.mu.Lock()
	a.cur = h
	a.mu.Unlock()
	return h, nil
}

func (a *cpuBackend) GenerateStream(ctx context.Context, handle EngineHandle, turns []Turn, h StreamHandlers) {
	ch, ok := handle.(*cpuHandle)
	a.mu.Lock()
	live := ok && ch == a.cur
	a.mu.Unlock()
	if !live {
		h.fail(fmt.Errorf("%w: engine handle is not loaded", ErrGeneration))
		return
	}
	tok, gctx, done := a.slot.begin(ctx)
	defer done()
	stream := ch.client.Chat.Completions.NewStreaming(gctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(ch.model),
		Messages:    openAIMessages(turns),
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(defaultMaxTokens),
	})
	consumeStream(gctx, tok, &openAIFragments{s: stream}, h, a.cfg.KeepRepeats)
}

func (a *cpuBackend) Cancel() { a.slot.Cancel() }

func (a *cpuBackend) Close() error {
	a.mu.Lock()
	h := a.cur
	a.cur = nil
	a.mu.Unlock()
	if h == nil {
		return nil
	}
	return a.procs.stop(h.path)
}

// openAIFragments reads delta content from a chat completion stream.
type openAIFragments struct {
	s *ssestream.Stream[openai.ChatCompletionChunk]
}

func (f *openAIFragments) Recv() (string, error) {
	for f.s.Next() {
		chunk := f.s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
	if err := f.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (f *openAIFragments) Close() error { return f.s.Close() }

func openAIMessages(turns []Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			out = append(out, openai.UserMessage(t.Content))
		}
	}
	return out
}

// localWeights resolves the GGUF path of modelID for the local backends.
func localWeights(models ModelLookup, modelID string) (string, error) {
	if models == nil {
		return "", fmt.Errorf("%w: no model registry for %s", ErrModelLoad, modelID)
	}
	mdl, ok := models(modelID)
	if !ok || mdl.Path == "" {
		return "", fmt.Errorf("%w: no local weights for %s", ErrModelLoad, modelID)
	}
	path, err := fsutil.ExpandHome(mdl.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if !fsutil.IsFile(path) {
		return "", fmt.Errorf("%w: weights not found: %s", ErrModelLoad, path)
	}
	return path, nil
}

func progressOrNop(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(ProgressEvent) {}
	}
	return fn
}
