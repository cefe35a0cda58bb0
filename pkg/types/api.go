package types

// EnsureRequest is the body of POST /v1/session/ensure.
type EnsureRequest struct {
	// Optional model identifier. If empty, the last selected model (or the server default) is used.
	// example: TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k
	Model string `json:"model,omitempty" example:"TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k"`
}

// ProgressLine is one NDJSON line streamed while a session initializes.
type ProgressLine struct {
	// Fraction of initialization completed, in [0,1].
	// example: 0.4
	Progress float64 `json:"progress" example:"0.4"`
	// Set when initialization failed.
	Error string `json:"error,omitempty"`
}

// EnsureResponse is the final NDJSON line of a successful ensure.
type EnsureResponse struct {
	// Backend kind the session is bound to.
	// example: cpu
	Backend string `json:"backend" example:"cpu"`
	// example: TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k
	Model string `json:"model" example:"TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k"`
}

// GenerateRequest is the body of POST /v1/session/generate.
type GenerateRequest struct {
	// Full conversation context, oldest first. The last message is usually the user's.
	Messages []Message `json:"messages"`
}

// TokenLine is one streamed fragment.
type TokenLine struct {
	// example: Hel
	Token string `json:"token" example:"Hel"`
}

// DoneLine terminates a successful generation stream.
type DoneLine struct {
	// example: true
	Done bool `json:"done" example:"true"`
	// Full accumulated assistant text.
	// example: Hello!
	Content string `json:"content" example:"Hello!"`
	// example: stop
	FinishReason string          `json:"finish_reason,omitempty" example:"stop"`
	Stats        GenerationStats `json:"stats"`
}

// SessionResponse is returned by GET /v1/session.
type SessionResponse struct {
	// One of idle, probing, initializing, ready, generating, failed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Backend kind when ready or generating.
	// example: accelerated
	Backend string `json:"backend,omitempty" example:"accelerated"`
	// Bound model identifier, if any.
	Model string `json:"model,omitempty"`
	// Initialization progress while initializing.
	// example: 0.6
	Progress float64 `json:"progress,omitempty" example:"0.6"`
	// Error message when failed.
	Error string `json:"error,omitempty"`
}

// RelayRequest is the body accepted by POST /api/chat.
type RelayRequest struct {
	// Optional upstream model override.
	// example: llama3.1
	Model    string    `json:"model,omitempty" example:"llama3.1"`
	Messages []Message `json:"messages"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
	// Model used when a request does not name one.
	// example: TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k
	Default string `json:"default,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Current session phase.
	// example: ready
	State string `json:"state" example:"ready"`
	// Active backend kind, if any.
	// example: cpu
	Backend string `json:"backend,omitempty" example:"cpu"`
	// Bound model identifier, if any.
	Model string `json:"model,omitempty"`
	// Initialization progress while initializing.
	Progress float64 `json:"progress,omitempty"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// Backend kinds in probe order for this host.
	// example: ["accelerated","cpu"]
	Probe []string `json:"probe,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of successful model loads.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total number of generations that reached a terminal callback.
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// Load time of the active engine in milliseconds.
	// example: 5400
	LoadMillis int64 `json:"load_ms,omitempty" example:"5400"`
	// Stats of the most recent completed generation.
	LastGeneration *GenerationStats `json:"last_generation,omitempty"`
}

// SwitchResponse is returned by POST /v1/session/switch.
type SwitchResponse struct {
	// Identifier of the background switch operation.
	// example: 3f0c6a52-6f5e-4c55-9d3f-0a1b2c3d4e5f
	Op string `json:"op" example:"3f0c6a52-6f5e-4c55-9d3f-0a1b2c3d4e5f"`
	// Requested model.
	Model string `json:"model"`
}
