package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"vynel/internal/manager"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vynel",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vynel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	// streaming responses stay in flight until their last line
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vynel",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served, including open NDJSON streams",
		},
	)

	sessionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vynel",
			Subsystem: "session",
			Name:      "rejections_total",
			Help:      "Session requests refused before streaming started, by operation and reason (not_ready, unknown_model, bad_request, init_failed, unavailable, timeout)",
		},
		[]string{"op", "reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, sessionRejections)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming handlers working behind the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		next.ServeHTTP(sr, r)

		// the route pattern is only known once chi has routed the request
		path := routePatternOrPath(r)
		statusLabel := strconv.Itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// rejectionReason names the label a refused session request is counted under.
func rejectionReason(status int, err error) string {
	switch {
	case manager.IsNotReady(err):
		return "not_ready"
	case manager.IsModelNotFound(err):
		return "unknown_model"
	case manager.IsInitializationFailed(err):
		return "init_failed"
	case manager.IsUnsupportedPlatform(err), manager.IsBackendUnavailable(err):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case status == http.StatusBadRequest || status == http.StatusUnsupportedMediaType || status == http.StatusRequestEntityTooLarge:
		return "bad_request"
	default:
		return "other"
	}
}

// rejectSession counts a refused session request and writes the JSON error.
// It must run before any stream line has been written.
func rejectSession(w http.ResponseWriter, op string, status int, err error) {
	sessionRejections.WithLabelValues(op, rejectionReason(status, err)).Inc()
	writeJSONError(w, status, err.Error())
}
