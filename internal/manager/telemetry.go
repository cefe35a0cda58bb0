package manager

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"vynel/pkg/types"
)

var (
	ttftSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vynel",
		Name:      "generation_ttft_seconds",
		Help:      "Time from generation start to the first token.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"backend"})
	tokensPerSecond = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vynel",
		Name:      "generation_tokens_per_second",
		Help:      "Fragments per second of completed generations.",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"backend"})
	modelLoadSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vynel",
		Name:      "model_load_seconds",
		Help:      "Time to bring a backend to ready.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"backend"})
	backendInitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vynel",
		Name:      "backend_init_total",
		Help:      "Backend initialization attempts by result.",
	}, []string{"backend", "result"})
)

func init() {
	prometheus.MustRegister(ttftSeconds, tokensPerSecond, modelLoadSeconds, backendInitTotal)
}

// GenerationStats are the timings of one generation.
type GenerationStats struct {
	TTFT   time.Duration
	Tokens int
	Total  time.Duration
}

// TokensPerSecond is Tokens over Total, or 0 for an empty generation.
func (s GenerationStats) TokensPerSecond() float64 {
	if s.Tokens == 0 || s.Total <= 0 {
		return 0
	}
	return float64(s.Tokens) / s.Total.Seconds()
}

// Wire converts stats to the JSON shape used by the API.
func (s GenerationStats) Wire() types.GenerationStats {
	return types.GenerationStats{
		TTFTMillis:      s.TTFT.Milliseconds(),
		Tokens:          s.Tokens,
		TotalMillis:     s.Total.Milliseconds(),
		TokensPerSecond: s.TokensPerSecond(),
	}
}

// genTimer measures one generation. Tokens are counted as they are forwarded.
type genTimer struct {
	start time.Time
	first time.Time
	n     int
}

func startGenTimer() *genTimer { return &genTimer{start: time.Now()} }

func (g *genTimer) token() {
	if g.n == 0 {
		g.first = time.Now()
	}
	g.n++
}

func (g *genTimer) stats() GenerationStats {
	s := GenerationStats{Tokens: g.n, Total: time.Since(g.start)}
	if g.n > 0 {
		s.TTFT = g.first.Sub(g.start)
	}
	return s
}

func observeGeneration(kind BackendKind, s GenerationStats) {
	if s.Tokens > 0 {
		ttftSeconds.WithLabelValues(string(kind)).Observe(s.TTFT.Seconds())
		tokensPerSecond.WithLabelValues(string(kind)).Observe(s.TokensPerSecond())
	}
}

func observeInit(kind BackendKind, result string, load time.Duration) {
	backendInitTotal.WithLabelValues(string(kind), result).Inc()
	if result == "ok" {
		modelLoadSeconds.WithLabelValues(string(kind)).Observe(load.Seconds())
	}
}
