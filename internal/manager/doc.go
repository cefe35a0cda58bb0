// Package manager runs one inference session over interchangeable backends.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig; NewWithConfig applies defaults.
//   - types.go: session state, turns, progress events, stream handlers.
//   - errors.go: sentinel errors and IsXxx helpers.
//   - probe.go: CapabilityProbe ranks backends for this host.
//   - ensure.go: EnsureReady, backend fallback and model switching.
//   - admission.go, generate.go: Ready to Generating and back.
//   - evict.go, unload.go, ops.go: teardown, Reset, Cancel, Switch.
//   - stream.go, token.go: the fragment consumption loop and cancellation.
//   - progress.go, telemetry.go: progress normalization, heartbeat, stats.
//   - status_report.go, sanity.go: read-only reporting.
//
// Backends:
//
//   - accelerated: in-process go-llama.cpp with GPU offload. Enabled with
//     `-tags=llama` (adapter_llama.go, llama_cgo.go). Without the tag
//     adapter_llama_stub.go reports the backend unavailable.
//   - cpu: a llama-server subprocess with no offload (spawn.go), streamed
//     through its OpenAI-compatible endpoint (adapter_cpu.go).
//   - remote: an Ollama-compatible server (adapter_remote.go).
//
// External packages should use the exported Manager methods only.
package manager
