package manager

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSanityCheck_MissingBinary(t *testing.T) {
	r := SanityCheck(hostWith(), "/does/not/exist/llama-server", "")
	if r.LlamaServerFound || r.Error == "" {
		t.Fatalf("expected missing binary error, got %+v", r)
	}
	if len(r.Ranking) != 0 {
		t.Fatalf("ranking = %v", r.Ranking)
	}
}

func TestSanityCheck_FullHost(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "llama-server")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := SanityCheck(hostWith("/dev/nvidia0"), bin, "http://localhost:11434")
	if !r.LlamaServerFound || r.LlamaServerPath != bin || r.AcceleratorDevice != "/dev/nvidia0" {
		t.Fatalf("report = %+v", r)
	}
	if !reflect.DeepEqual(r.Ranking, []string{"accelerated", "cpu", "remote"}) || r.Error != "" {
		t.Fatalf("report = %+v", r)
	}
}

func TestSanityCheck_DirectoryIsNotABinary(t *testing.T) {
	r := SanityCheck(hostWith(), t.TempDir(), "")
	if r.LlamaServerFound || r.Error == "" {
		t.Fatalf("report = %+v", r)
	}
}
