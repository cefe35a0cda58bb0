package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vynel/internal/common/fsutil"
	"vynel/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{ID: name, Name: name, Path: filepath.Join(abs, name), Quant: quantOf(name)})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// quantOf extracts a llama.cpp quantization tag such as Q4_K_M from a filename.
func quantOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, sep := range []string{".", "-", "_"} {
		i := strings.LastIndex(stem, sep)
		if i < 0 {
			continue
		}
		tail := stem[i+1:]
		if len(tail) > 1 && (tail[0] == 'Q' || tail[0] == 'q') && tail[1] >= '0' && tail[1] <= '9' {
			return strings.ToUpper(tail)
		}
	}
	return ""
}

// Merge combines declared models with scanned ones. A scanned file whose
// base name matches a declared entry's Path fills in that entry's Path;
// the rest are appended. Declared order is kept first.
func Merge(declared, scanned []types.Model) []types.Model {
	out := make([]types.Model, len(declared))
	copy(out, declared)
	used := make(map[string]bool, len(scanned))
	for i := range out {
		want := filepath.Base(out[i].Path)
		if out[i].Path == "" || filepath.IsAbs(out[i].Path) || strings.HasPrefix(out[i].Path, "~") {
			continue
		}
		for _, s := range scanned {
			if !used[s.ID] && s.ID == want {
				out[i].Path = s.Path
				if out[i].Quant == "" {
					out[i].Quant = s.Quant
				}
				used[s.ID] = true
				break
			}
		}
	}
	seen := make(map[string]bool, len(out))
	for _, m := range out {
		seen[m.ID] = true
	}
	for _, s := range scanned {
		if used[s.ID] || seen[s.ID] {
			continue
		}
		out = append(out, s)
	}
	return out
}
