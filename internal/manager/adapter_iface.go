package manager

import "context"

// Backend is one execution backend. Implementations own at most one
// EngineHandle at a time.
type Backend interface {
	Kind() BackendKind
	// Initialize loads modelID and returns its handle. Calling it again with
	// the same id while the handle is live returns the existing handle.
	// Errors wrap ErrBackendUnavailable or ErrModelLoad.
	Initialize(ctx context.Context, modelID string, onProgress ProgressFunc) (EngineHandle, error)
	// GenerateStream streams the reply to turns into h and blocks until the
	// stream ends. It returns silently when cancelled.
	GenerateStream(ctx context.Context, handle EngineHandle, turns []Turn, h StreamHandlers)
	// Cancel stops the in-flight generation, if any. It never blocks.
	Cancel()
	// Close releases the engine handle.
	Close() error
}

// FragmentStream is a pull-based sequence of generated text fragments.
// Recv returns io.EOF after the last fragment.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// Sampling configuration shared by all adapters.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

type engineHandle struct {
	model string
	kind  BackendKind
}

func (h engineHandle) ModelID() string   { return h.model }
func (h engineHandle) Kind() BackendKind { return h.kind }
