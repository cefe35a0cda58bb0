package manager

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultReadyTimeout = 30 * time.Second
	stopGrace           = 2 * time.Second
	stderrTailBytes     = 4096
)

// SpawnConfig controls how llama-server processes are started.
type SpawnConfig struct {
	Bin          string
	Host         string
	PortStart    int
	PortEnd      int
	CtxSize      int
	Threads      int
	GPULayers    int
	ExtraArgs    []string
	ReadyTimeout time.Duration
}

// llamaServerProcs spawns and supervises one llama-server per model path.
type llamaServerProcs struct {
	cfg        SpawnConfig
	mu         sync.Mutex
	procs      map[string]*procInfo // key: modelPath
	httpClient *http.Client
	publisher  EventPublisher
	log        zerolog.Logger
}

type procInfo struct {
	cmd     *exec.Cmd
	baseURL string
	ready   bool
	pid     int
	exited  chan struct{}
	waitErr error
	stderr  *tailBuffer
}

func newLlamaServerProcs(cfg SpawnConfig, pub EventPublisher, log zerolog.Logger) *llamaServerProcs {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	// Timeout=0: every call carries its own context deadline.
	return &llamaServerProcs{cfg: cfg, procs: make(map[string]*procInfo), httpClient: &http.Client{}, publisher: pub, log: log}
}

// isHealthy checks if the llama-server at baseURL responds OK to /v1/models.
func (a *llamaServerProcs) isHealthy(ctx context.Context, baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ensure starts (or reuses) llama-server for modelPath and waits until it
// answers health checks. Start failures wrap ErrBackendUnavailable; a server
// that dies or never becomes healthy wraps ErrModelLoad.
func (a *llamaServerProcs) ensure(ctx context.Context, modelPath string) (string, error) {
	a.mu.Lock()
	p := a.procs[modelPath]
	a.mu.Unlock()
	if p != nil {
		if p.ready && a.isHealthy(ctx, p.baseURL, time.Second) {
			return p.baseURL, nil
		}
		_ = a.stop(modelPath)
	}

	host := a.cfg.Host
	var port int
	var err error
	if a.cfg.PortStart > 0 && a.cfg.PortEnd >= a.cfg.PortStart {
		port, err = pickPortInRange(host, a.cfg.PortStart, a.cfg.PortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := []string{
		"-m", modelPath,
		"--host", host,
		"--port", strconv.Itoa(port),
		"-ngl", strconv.Itoa(max(0, a.cfg.GPULayers)),
	}
	if a.cfg.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(a.cfg.CtxSize))
	}
	if a.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.cfg.Threads))
	}
	args = append(args, a.cfg.ExtraArgs...)

	cmd := exec.Command(a.cfg.Bin, args...)
	stderr := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: start llama-server: %v", ErrBackendUnavailable, err)
	}
	pid := cmd.Process.Pid
	a.log.Info().Str("model", modelPath).Int("pid", pid).Str("url", baseURL).Msg("llama-server started")
	a.publisher.Publish(Event{Name: "spawn_start", ModelID: modelPath, Fields: map[string]any{"pid": pid, "host": host, "port": port}})

	p = &procInfo{cmd: cmd, baseURL: baseURL, pid: pid, exited: make(chan struct{}), stderr: stderr}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	a.mu.Lock()
	a.procs[modelPath] = p
	a.mu.Unlock()

	deadline := time.NewTimer(a.cfg.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-p.exited:
			a.forget(modelPath, p)
			a.publisher.Publish(Event{Name: "spawn_exit", ModelID: modelPath, Fields: map[string]any{"pid": pid, "before_ready": true}})
			if p.waitErr != nil {
				a.log.Warn().Str("model", modelPath).Int("pid", pid).Err(p.waitErr).Msg("llama-server exited early")
				return "", fmt.Errorf("%w: llama-server exited early: %v; stderr tail: %s", ErrModelLoad, p.waitErr, stderr.String())
			}
			return "", fmt.Errorf("%w: llama-server exited before ready: %s", ErrModelLoad, baseURL)
		case <-deadline.C:
			_ = a.stop(modelPath)
			a.publisher.Publish(Event{Name: "spawn_timeout", ModelID: modelPath, Fields: map[string]any{"pid": pid}})
			return "", fmt.Errorf("%w: llama-server not ready in time: %s", ErrModelLoad, baseURL)
		case <-ctx.Done():
			_ = a.stop(modelPath)
			return "", fmt.Errorf("%w: %v", ErrModelLoad, ctx.Err())
		case <-tick.C:
			if !a.isHealthy(ctx, baseURL, time.Second) {
				continue
			}
			a.mu.Lock()
			p.ready = true
			a.mu.Unlock()
			a.log.Info().Str("model", modelPath).Int("pid", pid).Msg("llama-server ready")
			a.publisher.Publish(Event{Name: "spawn_ready", ModelID: modelPath, Fields: map[string]any{"pid": pid, "url": baseURL}})
			return baseURL, nil
		}
	}
}

func (a *llamaServerProcs) forget(modelPath string, p *procInfo) {
	a.mu.Lock()
	if a.procs[modelPath] == p {
		delete(a.procs, modelPath)
	}
	a.mu.Unlock()
}

// Accessor to safely read proc info under lock and return a snapshot
func (a *llamaServerProcs) getProcInfo(modelPath string) (pid int, baseURL string, ready bool, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p := a.procs[modelPath]; p != nil {
		return p.pid, p.baseURL, p.ready, true
	}
	return 0, "", false, false
}

// stop terminates the llama-server for modelPath, if present: SIGTERM first,
// then kill after a grace period.
func (a *llamaServerProcs) stop(modelPath string) error {
	a.mu.Lock()
	p := a.procs[modelPath]
	delete(a.procs, modelPath)
	a.mu.Unlock()
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(stopGrace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
	a.log.Debug().Str("model", modelPath).Int("pid", p.pid).Msg("llama-server stopped")
	a.publisher.Publish(Event{Name: "spawn_stop", ModelID: modelPath, Fields: map[string]any{"pid": p.pid}})
	return nil
}

// stopAll terminates all managed subprocesses. Best effort.
func (a *llamaServerProcs) stopAll() {
	a.mu.Lock()
	paths := make([]string, 0, len(a.procs))
	for k := range a.procs {
		paths = append(paths, k)
	}
	a.mu.Unlock()
	for _, path := range paths {
		_ = a.stop(path)
	}
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	_, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}

// DiscoverLlamaBin looks for llama-server in common install locations and PATH.
func DiscoverLlamaBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		filepath.Join(home, ".local", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
