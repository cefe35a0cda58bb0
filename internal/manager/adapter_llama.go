//go:build llama

package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// acceleratedBackend runs go-llama.cpp in process with layers offloaded to the GPU.
type acceleratedBackend struct {
	cfg  AcceleratedConfig
	log  zerolog.Logger
	slot genSlot
	// predictMu serializes Predict: the token callback is per model.
	predictMu sync.Mutex

	mu  sync.Mutex
	cur *llamaHandle
}

type llamaHandle struct {
	engineHandle
	model *llama.LLama
}

func NewAcceleratedBackend(cfg AcceleratedConfig) Backend {
	return &acceleratedBackend{cfg: cfg.withDefaults(), log: backendLogger(cfg.Logger, KindAccelerated)}
}

func (a *acceleratedBackend) Kind() BackendKind { return KindAccelerated }

func (a *acceleratedBackend) Initialize(ctx context.Context, modelID string, onProgress ProgressFunc) (EngineHandle, error) {
	a.mu.Lock()
	if a.cur != nil && a.cur.model == modelID {
		h := a.cur
		a.mu.Unlock()
		return h, nil
	}
	a.mu.Unlock()

	path, err := localWeights(a.cfg.Models, modelID)
	if err != nil {
		return nil, err
	}
	_ = a.Close()

	hb := startHeartbeat(a.cfg.HeartbeatInterval, progressOrNop(onProgress))
	defer hb.Stop()
	type loaded struct {
		m   *llama.LLama
		err error
	}
	res := make(chan loaded, 1)
	t0 := time.Now()
	go func() {
		m, err := llama.New(path, llama.SetContext(a.cfg.ContextSize), llama.SetGPULayers(a.cfg.GPULayers), llama.EnableF16Memory)
		res <- loaded{m, err}
	}()
	var r loaded
	select {
	case r = <-res:
	case <-ctx.Done():
		// the load cannot be interrupted; free it once it lands
		go func() {
			if r := <-res; r.m != nil {
				r.m.Free()
			}
		}()
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, ctx.Err())
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: accelerated engine rejected %s: %v", ErrBackendUnavailable, modelID, r.err)
	}
	a.log.Info().Str("model", modelID).Dur("load", time.Since(t0)).Int("gpu_layers", a.cfg.GPULayers).Msg("engine loaded")

	h := &llamaHandle{engineHandle: engineHandle{model: modelID, kind: KindAccelerated}, model: r.m}
	a.mu.Lock()
	a.cur = h
	a.mu.Unlock()
	return h, nil
}

func (a *acceleratedBackend) GenerateStream(ctx context.Context, handle EngineHandle, turns []Turn, h StreamHandlers) {
	lh, ok := handle.(*llamaHandle)
	a.mu.Lock()
	live := ok && lh == a.cur
	a.mu.Unlock()
	if !live {
		h.fail(fmt.Errorf("%w: engine handle is not loaded", ErrGeneration))
		return
	}
	tok, gctx, done := a.slot.begin(ctx)
	defer done()
	prompt := renderChatML(turns)
	stream := newChanStream(gctx, func(ctx context.Context, emit func(string) bool) error {
		a.predictMu.Lock()
		defer a.predictMu.Unlock()
		lh.model.SetTokenCallback(func(frag string) bool { return emit(frag) })
		_, err := lh.model.Predict(prompt,
			llama.SetTokens(defaultMaxTokens),
			llama.SetThreads(a.cfg.Threads),
			llama.SetTemperature(defaultTemperature),
			llama.SetStopWords(chatStopWords...),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	})
	consumeStream(gctx, tok, stream, h, a.cfg.KeepRepeats)
}

func (a *acceleratedBackend) Cancel() { a.slot.Cancel() }

func (a *acceleratedBackend) Close() error {
	a.mu.Lock()
	h := a.cur
	a.cur = nil
	a.mu.Unlock()
	if h == nil {
		return nil
	}
	a.slot.Cancel()
	a.predictMu.Lock()
	h.model.Free()
	a.predictMu.Unlock()
	return nil
}
