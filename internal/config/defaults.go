package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultAddr          = ":8080"
	DefaultModelsDir     = "~/models/llm"
	DefaultStatePath     = "~/.local/state/vynel/prefs.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultMaxBodyBytes  = 1 << 20
	DefaultRelayUpstream = "http://localhost:11434/api/chat"
	DefaultRelayModel    = "llama3.1"
)

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Relay.Upstream == "" {
		c.Relay.Upstream = DefaultRelayUpstream
	}
	if c.Relay.Model == "" {
		c.Relay.Model = DefaultRelayModel
	}
}

// ApplyEnv overrides fields from VYNEL_* environment variables.
func (c *Config) ApplyEnv() {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("VYNEL_ADDR", &c.Addr)
	str("VYNEL_MODELS_DIR", &c.ModelsDir)
	str("VYNEL_DEFAULT_MODEL", &c.DefaultModel)
	str("VYNEL_STATE_PATH", &c.StatePath)
	str("VYNEL_LOG_LEVEL", &c.LogLevel)
	str("VYNEL_LOG_FORMAT", &c.LogFormat)
	str("VYNEL_LLAMA_BIN", &c.Backends.CPU.LlamaBin)
	str("VYNEL_REMOTE_ENDPOINT", &c.Backends.Remote.Endpoint)
	str("VYNEL_RELAY_UPSTREAM", &c.Relay.Upstream)
	str("VYNEL_RELAY_MODEL", &c.Relay.Model)
	if v := os.Getenv("VYNEL_REMOTE_PULL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Backends.Remote.Pull = b
		}
	}
}
