package types

// Model is an entry of the model registry: a known identifier plus the
// locations each backend kind loads it from.
type Model struct {
	// Stable identifier for the model. Equality of ids decides whether a
	// loaded engine can be reused.
	// example: TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k
	ID string `json:"id" yaml:"id" toml:"id" example:"TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k"`
	// Human-friendly label.
	// example: TinyLlama — Fast
	Name string `json:"name" yaml:"name" toml:"name" example:"TinyLlama — Fast"`
	// Absolute path to local GGUF weights, used by the accelerated and cpu backends.
	// example: /home/user/models/tinyllama-1.1b-chat.Q4_K_M.gguf
	Path string `json:"path,omitempty" yaml:"path" toml:"path" example:"/home/user/models/tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Model name on the remote streaming server.
	// example: tinyllama
	Remote string `json:"remote,omitempty" yaml:"remote" toml:"remote" example:"tinyllama"`
	// Quantization level or variant string.
	// example: q4f16_1
	Quant string `json:"quant,omitempty" yaml:"quant" toml:"quant" example:"q4f16_1"`
	// Optional family (e.g., llama, mistral, gemma).
	// example: llama
	Family string `json:"family,omitempty" yaml:"family" toml:"family" example:"llama"`
}

// Message is one conversation turn on the wire.
type Message struct {
	// One of system, user, assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// example: Explain goroutines in one sentence.
	Content string `json:"content" example:"Explain goroutines in one sentence."`
}

// GenerationStats are the timings recorded for one completed generation.
type GenerationStats struct {
	// Time from generation start to the first forwarded token, in milliseconds.
	// example: 412
	TTFTMillis int64 `json:"ttft_ms" example:"412"`
	// Number of forwarded fragments.
	// example: 96
	Tokens int `json:"tokens" example:"96"`
	// Total generation time in milliseconds.
	// example: 3150
	TotalMillis int64 `json:"total_ms" example:"3150"`
	// Fragments per second over the whole generation.
	// example: 30.5
	TokensPerSecond float64 `json:"tokens_per_second" example:"30.5"`
}
