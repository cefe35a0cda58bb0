//go:build !llama

package manager

// Without the 'llama' build tag the binary carries no in-process engine.
// The accelerated backend then reports itself unavailable so the session
// falls through to the next ranked backend. Default builds stay CGO-free.

import (
	"context"
	"fmt"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type acceleratedBackend struct{ cfg AcceleratedConfig }

func NewAcceleratedBackend(cfg AcceleratedConfig) Backend {
	return &acceleratedBackend{cfg: cfg.withDefaults()}
}

func (a *acceleratedBackend) Kind() BackendKind { return KindAccelerated }

func (a *acceleratedBackend) Initialize(context.Context, string, ProgressFunc) (EngineHandle, error) {
	return nil, fmt.Errorf("%w: llama support not built (missing 'llama' build tag)", ErrBackendUnavailable)
}

func (a *acceleratedBackend) GenerateStream(_ context.Context, _ EngineHandle, _ []Turn, h StreamHandlers) {
	h.fail(fmt.Errorf("%w: llama support not built", ErrGeneration))
}

func (a *acceleratedBackend) Cancel() {}

func (a *acceleratedBackend) Close() error { return nil }
