package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/db"
	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/metrics"
	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/runstore"
	"mapeditor/core-go/internal/settings"
	"mapeditor/core-go/internal/sqlcgen"
)

// Systems is the model store behind the energy system routes.
// *modelstore.Store satisfies this.
type Systems interface {
	Put(es *esdl.EnergySystem)
	Get(id string) (*esdl.EnergySystem, error)
	IDs() []string
}

// Projector is implemented by *projection.Engine.
type Projector interface {
	Project(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error)
	BuildingView(ctx context.Context, esID, buildingID string) (*projection.BuildingInfo, error)
}

// JobQueue is implemented by *projectionworker.Worker.
type JobQueue interface {
	Enqueue(ctx context.Context, esID string, force bool) (sqlcgen.ProjectionJob, error)
}

type Options struct {
	Systems   Systems
	Projector Projector
	Runs      runstore.Store
	Jobs      JobQueue
	Settings  *settings.Store
	Metrics   *metrics.Metrics
}

type Handler struct {
	log       zerolog.Logger
	pool      *db.Pool
	systems   Systems
	projector Projector
	runs      runstore.Store
	jobs      JobQueue
	settings  *settings.Store
	metrics   *metrics.Metrics
}

func NewHandler(log zerolog.Logger, pool *db.Pool, opts Options) *Handler {
	return &Handler{
		log:       log,
		pool:      pool,
		systems:   opts.Systems,
		projector: opts.Projector,
		runs:      opts.Runs,
		jobs:      opts.Jobs,
		settings:  opts.Settings,
		metrics:   opts.Metrics,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Handle("/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/energysystems", func(r chi.Router) {
				r.Get("/", h.handleListEnergySystems)
				r.Post("/", h.handleUploadEnergySystem)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/projection", h.handleGetProjection)
					r.Post("/projection", h.handleProject)
					r.Get("/buildings/{buildingId}", h.handleBuildingView)
					r.Post("/jobs", h.handleEnqueueProjection)
				})
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/system/{category}/{name}", h.handleGetSystemSetting)
				r.Put("/system/{category}/{name}/{key}", h.handlePutSystemSetting)
				r.Get("/users/{user}", h.handleGetUserSettings)
				r.Put("/users/{user}", h.handlePutUserSettings)
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Without a database the service runs on local storage and is ready once
// the model store is wired.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.systems == nil || h.projector == nil {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "projection engine not configured", nil)
		return
	}

	if h.pool == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "database": "not configured"})
		return
	}

	if err := h.pool.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
