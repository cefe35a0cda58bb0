package registry

import "vynel/pkg/types"

// Builtin lists the models the client knows by default. The first entry is
// the default selection. Path holds the expected GGUF file name, resolved
// against the models directory by Merge.
func Builtin() []types.Model {
	return []types.Model{
		{
			ID:     "TinyLlama-1.1B-Chat-v0.4-q4f16_1-MLC-1k",
			Name:   "TinyLlama — Fast",
			Path:   "tinyllama-1.1b-chat-v0.4.Q4_K_M.gguf",
			Remote: "tinyllama",
			Quant:  "q4f16_1",
			Family: "llama",
		},
		{
			ID:     "Llama-3-8B-Instruct-q4f16_1-MLC",
			Name:   "Llama 3 8B — Balanced",
			Path:   "Meta-Llama-3-8B-Instruct.Q4_K_M.gguf",
			Remote: "llama3:8b",
			Quant:  "q4f16_1",
			Family: "llama",
		},
		{
			ID:     "Mistral-7B-Instruct-v0.3-q4f16_1-MLC",
			Name:   "Mistral 7B — Smart",
			Path:   "Mistral-7B-Instruct-v0.3.Q4_K_M.gguf",
			Remote: "mistral:7b",
			Quant:  "q4f16_1",
			Family: "mistral",
		},
		{
			ID:     "gemma-2-2b-it-q4f16_1-MLC",
			Name:   "Gemma 2 2B — Light",
			Path:   "gemma-2-2b-it.Q4_K_M.gguf",
			Remote: "gemma2:2b",
			Quant:  "q4f16_1",
			Family: "gemma",
		},
	}
}

// Build returns the declared models (or Builtin when none are declared)
// merged with the GGUF files found in modelsDir. A missing directory is not
// an error.
func Build(declared []types.Model, modelsDir string) ([]types.Model, error) {
	if len(declared) == 0 {
		declared = Builtin()
	}
	if modelsDir == "" {
		return Merge(declared, nil), nil
	}
	scanned, err := LoadDir(modelsDir)
	if err != nil {
		return Merge(declared, nil), err
	}
	return Merge(declared, scanned), nil
}
