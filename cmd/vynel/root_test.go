package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vynel/pkg/types"
)

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vynel.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9000\"\nlog_level: warn\ndefault_model: gemma2:2b\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VYNEL_ADDR", ":9100")
	t.Setenv("VYNEL_LOG_LEVEL", "")

	a := &app{cfgPath: path, logLevel: "debug"}
	if err := a.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.cfg.Addr != ":9100" {
		t.Fatalf("env should override file addr, got %q", a.cfg.Addr)
	}
	if a.cfg.LogLevel != "debug" {
		t.Fatalf("flag should override log level, got %q", a.cfg.LogLevel)
	}
	if a.cfg.DefaultModel != "gemma2:2b" {
		t.Fatalf("file default model lost: %q", a.cfg.DefaultModel)
	}
	if a.cfg.Relay.Model != "llama3.1" {
		t.Fatalf("defaults not applied: %+v", a.cfg.Relay)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	a := &app{cfgPath: filepath.Join(t.TempDir(), "nope.toml")}
	if err := a.load(); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestModelsCmd_JSON(t *testing.T) {
	t.Setenv("VYNEL_MODELS_DIR", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--json", "--log-level", "off"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v (%s)", err, out.String())
	}
	if len(resp.Models) != 4 || resp.Default != resp.Models[0].ID {
		t.Fatalf("unexpected models: %+v", resp)
	}
}

func TestModelsCmd_TableMarksDefault(t *testing.T) {
	t.Setenv("VYNEL_MODELS_DIR", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"models", "--log-level", "off"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], " *") {
		t.Fatalf("table:\n%s", out.String())
	}
}

func TestProbeCmd_PrintsReport(t *testing.T) {
	t.Setenv("VYNEL_REMOTE_ENDPOINT", "http://127.0.0.1:11434")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"probe", "--log-level", "off"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("json: %v", err)
	}
	if rep["remote_endpoint"] != "http://127.0.0.1:11434" {
		t.Fatalf("report %v", rep)
	}
}
