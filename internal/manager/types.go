package manager

import (
	"context"
	"fmt"
)

// BackendKind names one of the interchangeable execution backends.
type BackendKind string

const (
	KindAccelerated BackendKind = "accelerated"
	KindCPU         BackendKind = "cpu"
	KindRemote      BackendKind = "remote"
)

func (k BackendKind) String() string { return string(k) }

// Phase is the coarse lifecycle position of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseInitializing
	PhaseReady
	PhaseGenerating
	PhaseFailed
)

var phaseNames = [...]string{"idle", "probing", "initializing", "ready", "generating", "failed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// SessionState is a read-only projection of the session state machine.
// Kind is set in Ready and Generating, Progress in Initializing and Err in Failed.
type SessionState struct {
	Phase    Phase
	Kind     BackendKind
	Progress float64
	Err      error
}

func (s SessionState) String() string {
	switch s.Phase {
	case PhaseInitializing:
		return fmt.Sprintf("initializing(%.2f)", s.Progress)
	case PhaseReady, PhaseGenerating:
		return fmt.Sprintf("%s(%s)", s.Phase, s.Kind)
	case PhaseFailed:
		if s.Err != nil {
			return "failed(" + s.Err.Error() + ")"
		}
	}
	return s.Phase.String()
}

// Role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation context handed to a backend.
type Turn struct {
	Role    Role
	Content string
}

// ProgressEvent reports initialization progress. It is terminal when
// Progress reaches 1 or Err is set.
type ProgressEvent struct {
	Progress float64
	Err      string
}

func (e ProgressEvent) Terminal() bool { return e.Progress >= 1 || e.Err != "" }

// ProgressFunc receives initialization progress. It may be invoked from a
// goroutine other than the one that called Initialize.
type ProgressFunc func(ProgressEvent)

// EngineHandle is an opaque reference to a loaded model inside one backend.
type EngineHandle interface {
	ModelID() string
	Kind() BackendKind
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting. Only completion fragments are counted.
type Usage struct {
	CompletionTokens int
}

// StreamHandlers receive the output of one generation. Exactly one of
// OnDone or OnError fires for a generation that is not cancelled.
type StreamHandlers struct {
	OnToken func(string)
	OnDone  func(FinalResult)
	OnError func(error)
}

func (h StreamHandlers) token(s string) {
	if h.OnToken != nil {
		h.OnToken(s)
	}
}

func (h StreamHandlers) done(r FinalResult) {
	if h.OnDone != nil {
		h.OnDone(r)
	}
}

func (h StreamHandlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Prober ranks the backends usable on this host.
type Prober interface {
	Probe() ([]BackendKind, error)
}

// Store persists small client preferences.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
