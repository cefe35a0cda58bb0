package manager

import (
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPickFreePort_ReturnsPositivePort(t *testing.T) {
	p, err := pickFreePort("127.0.0.1")
	if err != nil || p <= 0 {
		t.Fatalf("pickFreePort error=%v port=%d", err, p)
	}
}

func TestPickPortInRange_SkipsBusy(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	_, ps, _ := net.SplitHostPort(l.Addr().String())
	busy, _ := strconv.Atoi(ps)
	if _, err := pickPortInRange("127.0.0.1", busy, busy); err == nil {
		t.Fatalf("expected error for a busy single-port range")
	}
}

func TestTailBuffer_KeepsTail(t *testing.T) {
	tb := &tailBuffer{max: 8}
	_, _ = tb.Write([]byte("0123456789"))
	_, _ = tb.Write([]byte("ab"))
	if got := tb.String(); got != "456789ab" {
		t.Fatalf("got %q", got)
	}
}

func TestStopAll_NoProcsDoesNotPanic(t *testing.T) {
	p := newLlamaServerProcs(SpawnConfig{}, nil, zerolog.Nop())
	p.stopAll()
	if err := p.stop("missing.gguf"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.cfg.Host != "127.0.0.1" || p.cfg.ReadyTimeout != defaultReadyTimeout {
		t.Fatalf("defaults not applied: %+v", p.cfg)
	}
}

func TestDiscoverLlamaBin_PathLookup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PATH", dir)
	got := DiscoverLlamaBin()
	if got != "" && !strings.HasPrefix(got, "/usr/local") && !strings.HasPrefix(got, "/opt/homebrew") {
		t.Fatalf("unexpected discovery result %q", got)
	}
}
