package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vynel/internal/manager"
	"vynel/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager implements it.
type Service interface {
	ListModels() []types.Model
	DefaultModel() string
	Status() types.StatusResponse
	Session() types.SessionResponse
	Ready() bool
	EnsureReady(ctx context.Context, modelID string, onProgress manager.ProgressFunc) (manager.BackendKind, error)
	Generate(ctx context.Context, turns []manager.Turn, h manager.StreamHandlers) error
	LastStats() (manager.GenerationStats, bool)
	Cancel()
	Reset()
	Switch(modelID string) string
}

// NewMux builds the router. relay, when non-nil, serves POST /api/chat.
func NewMux(svc Service, relay http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Get("/models", h.models)
	r.Get("/status", h.status)
	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", h.session)
		r.Post("/ensure", h.ensure)
		r.Post("/generate", h.generate)
		r.Post("/cancel", h.cancel)
		r.Post("/reset", h.reset)
		r.Post("/switch", h.switchModel)
	})
	if relay != nil {
		r.Method(http.MethodPost, "/api/chat", relay)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Session().State))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// decodeJSON enforces the content type and body limit shared by all POST
// endpoints. It writes the error response itself and reports false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// models godoc
// @Summary  List registry models
// @Produce  json
// @Success  200 {object} types.ModelsResponse
// @Router   /models [get]
func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ModelsResponse{Models: h.svc.ListModels(), Default: h.svc.DefaultModel()})
}

// status godoc
// @Summary  Session and process status
// @Produce  json
// @Success  200 {object} types.StatusResponse
// @Router   /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// @Summary  Current session state
// @Produce  json
// @Success  200 {object} types.SessionResponse
// @Router   /v1/session [get]
func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Session())
}

// ensure godoc
// @Summary      Bind the session to a model
// @Description  Streams NDJSON progress lines, then the bound backend or an error line.
// @Accept       json
// @Produce      application/x-ndjson
// @Param        body body types.EnsureRequest true "model to load"
// @Success      200 {object} types.ProgressLine
// @Failure      404 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /v1/session/ensure [post]
func (h *handlers) ensure(w http.ResponseWriter, r *http.Request) {
	var req types.EnsureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "ensure", req.Model)

	var tee io.Writer
	if lvl >= LevelDebug {
		tee = &loggingLineWriter{prefix: "ensure"}
	}
	out := newNDJSONStream(w, tee)
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	kind, err := h.svc.EnsureReady(ctx, req.Model, func(ev manager.ProgressEvent) {
		out.emit(types.ProgressLine{Progress: ev.Progress, Error: ev.Err})
	})
	out.seal()
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		status := statusFor(err)
		if out.isStarted() {
			out.final(types.ErrorResponse{Error: err.Error(), Code: status})
		} else {
			rejectSession(w, "ensure", status, err)
		}
		logEnd(r, lvl, "ensure", status, start, err)
		return
	}
	model := req.Model
	if model == "" {
		model = h.svc.Session().Model
	}
	out.final(types.EnsureResponse{Backend: string(kind), Model: model})
	logEnd(r, lvl, "ensure", http.StatusOK, start, nil)
}

// generate godoc
// @Summary      Stream a reply on the ready session
// @Description  Streams NDJSON token lines and a final done line. 409 when the session is not ready.
// @Accept       json
// @Produce      application/x-ndjson
// @Param        body body types.GenerateRequest true "conversation context"
// @Success      200 {object} types.DoneLine
// @Failure      409 {object} types.ErrorResponse
// @Router       /v1/session/generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	turns, err := toTurns(req.Messages)
	if err != nil {
		rejectSession(w, "generate", http.StatusBadRequest, err)
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "generate", h.svc.Session().Model)

	var tee io.Writer
	if lvl >= LevelDebug {
		tee = &loggingLineWriter{prefix: "generate"}
	}
	out := newNDJSONStream(w, tee)
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if generateTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, generateTimeout)
		defer tcancel()
	}

	var genErr error
	err = h.svc.Generate(ctx, turns, manager.StreamHandlers{
		OnToken: func(s string) { out.emit(types.TokenLine{Token: s}) },
		OnDone: func(res manager.FinalResult) {
			line := types.DoneLine{Done: true, Content: res.Content, FinishReason: res.FinishReason}
			if st, ok := h.svc.LastStats(); ok {
				line.Stats = st.Wire()
			}
			out.final(line)
		},
		OnError: func(err error) {
			genErr = err
			out.final(types.ErrorResponse{Error: err.Error(), Code: statusFor(err)})
		},
	})
	out.seal()
	if err != nil {
		status := statusFor(err)
		rejectSession(w, "generate", status, err)
		logEnd(r, lvl, "generate", status, start, err)
		return
	}
	logEnd(r, lvl, "generate", http.StatusOK, start, genErr)
}

func toTurns(msgs []types.Message) ([]manager.Turn, error) {
	if len(msgs) == 0 {
		return nil, errors.New("messages is required")
	}
	turns := make([]manager.Turn, 0, len(msgs))
	for i, m := range msgs {
		role := manager.Role(strings.ToLower(strings.TrimSpace(m.Role)))
		switch role {
		case manager.RoleSystem, manager.RoleUser, manager.RoleAssistant:
		default:
			return nil, fmt.Errorf("messages[%d]: unknown role %q", i, m.Role)
		}
		turns = append(turns, manager.Turn{Role: role, Content: m.Content})
	}
	return turns, nil
}

// @Summary  Stop the in-flight generation
// @Success  204
// @Router   /v1/session/cancel [post]
func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	h.svc.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// @Summary  Tear down the session
// @Success  204
// @Router   /v1/session/reset [post]
func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.svc.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// switchModel godoc
// @Summary  Load another model in the background
// @Accept   json
// @Produce  json
// @Param    body body types.EnsureRequest true "model to load"
// @Success  202 {object} types.SwitchResponse
// @Router   /v1/session/switch [post]
func (h *handlers) switchModel(w http.ResponseWriter, r *http.Request) {
	var req types.EnsureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		rejectSession(w, "switch", http.StatusBadRequest, errors.New("model is required"))
		return
	}
	if !h.knownModel(req.Model) {
		rejectSession(w, "switch", http.StatusNotFound, manager.ErrModelNotFound(req.Model))
		return
	}
	op := h.svc.Switch(req.Model)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(types.SwitchResponse{Op: op, Model: req.Model})
}

func (h *handlers) knownModel(id string) bool {
	models := h.svc.ListModels()
	if len(models) == 0 {
		return true
	}
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
