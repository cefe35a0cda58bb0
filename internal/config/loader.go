package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vynel/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// StatePath is the SQLite file holding client preferences.
	StatePath string `json:"state_path" yaml:"state_path" toml:"state_path"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat    string        `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Models       []types.Model `json:"models" yaml:"models" toml:"models"`
	Backends     Backends      `json:"backends" yaml:"backends" toml:"backends"`
	Relay        Relay         `json:"relay" yaml:"relay" toml:"relay"`
	CORS         CORS          `json:"cors" yaml:"cors" toml:"cors"`
}

// Backends configures each backend kind.
type Backends struct {
	Accelerated Accelerated `json:"accelerated" yaml:"accelerated" toml:"accelerated"`
	CPU         CPU         `json:"cpu" yaml:"cpu" toml:"cpu"`
	Remote      Remote      `json:"remote" yaml:"remote" toml:"remote"`
	// KeepRepeats forwards fragments the reply already ends with.
	KeepRepeats bool `json:"keep_repeats" yaml:"keep_repeats" toml:"keep_repeats"`
}

type Accelerated struct {
	Disabled    bool `json:"disabled" yaml:"disabled" toml:"disabled"`
	ContextSize int  `json:"context_size" yaml:"context_size" toml:"context_size"`
	GPULayers   int  `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Threads     int  `json:"threads" yaml:"threads" toml:"threads"`
}

type CPU struct {
	Disabled bool `json:"disabled" yaml:"disabled" toml:"disabled"`
	// LlamaBin is the llama-server executable; discovered when empty.
	LlamaBin        string   `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin"`
	Host            string   `json:"host" yaml:"host" toml:"host"`
	PortStart       int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd         int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	ContextSize     int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads         int      `json:"threads" yaml:"threads" toml:"threads"`
	ExtraArgs       []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	ReadyTimeoutSec int      `json:"ready_timeout_sec" yaml:"ready_timeout_sec" toml:"ready_timeout_sec"`
}

// Remote is enabled when Endpoint is set.
type Remote struct {
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Pull     bool   `json:"pull" yaml:"pull" toml:"pull"`
}

// Relay configures the POST /api/chat passthrough.
type Relay struct {
	Disabled bool   `json:"disabled" yaml:"disabled" toml:"disabled"`
	Upstream string `json:"upstream" yaml:"upstream" toml:"upstream"`
	Model    string `json:"model" yaml:"model" toml:"model"`
}

type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
