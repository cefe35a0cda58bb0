package manager

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// AcceleratedConfig configures the in-process GPU backend.
type AcceleratedConfig struct {
	Models      ModelLookup
	ContextSize int
	// GPULayers offloaded to the device. Defaults to all of them.
	GPULayers         int
	Threads           int
	KeepRepeats       bool
	HeartbeatInterval time.Duration
	Logger            *zerolog.Logger
}

const (
	defaultContextSize = 2048
	allGPULayers       = 999
)

func (c AcceleratedConfig) withDefaults() AcceleratedConfig {
	if c.ContextSize <= 0 {
		c.ContextSize = defaultContextSize
	}
	if c.GPULayers <= 0 {
		c.GPULayers = allGPULayers
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	return c
}

func backendLogger(l *zerolog.Logger, kind BackendKind) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.With().Str("backend", string(kind)).Logger()
}
