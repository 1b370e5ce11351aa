package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/modelstore"
	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/runstore"
)

const maxDocumentBytes = 32 << 20

type energySystem struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Counts map[string]int `json:"counts,omitempty"`
}

type job struct {
	ID     string `json:"id"`
	EsID   string `json:"es_id"`
	Status string `json:"status"`
	Force  bool   `json:"force_refresh"`
}

func toEnergySystem(es *esdl.EnergySystem) energySystem {
	title := es.Name
	if title == "" {
		title = "Untitled Energysystem"
	}
	return energySystem{ID: es.ID, Title: title, Counts: es.Counts()}
}

func (h *Handler) ensureEngine(w http.ResponseWriter) bool {
	if h.systems == nil || h.projector == nil {
		h.writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "projection engine not configured", nil)
		return false
	}
	return true
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func (h *Handler) handleListEnergySystems(w http.ResponseWriter, r *http.Request) {
	if !h.ensureEngine(w) {
		return
	}

	ids := h.systems.IDs()
	resp := make([]energySystem, 0, len(ids))
	for _, id := range ids {
		es, err := h.systems.Get(id)
		if err != nil {
			// removed between IDs and Get
			continue
		}
		resp = append(resp, toEnergySystem(es))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUploadEnergySystem(w http.ResponseWriter, r *http.Request) {
	if !h.ensureEngine(w) {
		return
	}

	es, err := esdl.Decode(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid energy system document", map[string]any{"error": err.Error()})
		return
	}

	h.systems.Put(es)
	if h.runs != nil {
		// A replaced document must be projected again.
		if err := h.runs.Reset(r.Context(), es.ID); err != nil {
			h.log.Warn().Err(err).Str("es_id", es.ID).Msg("failed to reset projection state")
		}
	}

	h.log.Info().Str("es_id", es.ID).Msg("energy system loaded")
	h.writeJSON(w, http.StatusCreated, toEnergySystem(es))
}

func (h *Handler) handleProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	force, err := parseBoolQuery(r, "force")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "force must be a boolean", map[string]any{"force": r.URL.Query().Get("force")})
		return
	}
	editor, err := parseBoolQuery(r, "editor")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "editor must be a boolean", map[string]any{"editor": r.URL.Query().Get("editor")})
		return
	}

	if !h.ensureEngine(w) {
		return
	}

	mode := projection.Mode{EditorView: editor, ForceRefresh: force}
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" && h.settings != nil {
		mode.BoundariesYear = h.settings.BoundariesYear(user, 0)
	}

	batch, err := h.projector.Project(r.Context(), id, mode)
	if err != nil {
		switch {
		case errors.Is(err, modelstore.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "not_found", "energy system not found", map[string]any{"id": id})
		default:
			h.log.Error().Err(err).Str("es_id", id).Msg("projection failed")
			h.writeError(w, http.StatusInternalServerError, "projection_failed", "failed to project energy system", nil)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) handleGetProjection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.runs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "runs_unavailable", "projection store not configured", nil)
		return
	}

	snap, err := h.runs.Latest(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, runstore.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "not_found", "no projection stored", map[string]any{"id": id})
		default:
			h.log.Error().Err(err).Str("es_id", id).Msg("load projection failed")
			h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load projection", nil)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, json.RawMessage(snap.Payload))
}

func (h *Handler) handleBuildingView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	buildingID := chi.URLParam(r, "buildingId")
	if !h.ensureEngine(w) {
		return
	}

	info, err := h.projector.BuildingView(r.Context(), id, buildingID)
	if err != nil {
		switch {
		case errors.Is(err, modelstore.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "not_found", "energy system not found", map[string]any{"id": id})
		case errors.Is(err, projection.ErrNotBuilding):
			h.writeError(w, http.StatusNotFound, "not_found", "building not found", map[string]any{"id": id, "building_id": buildingID})
		default:
			h.log.Error().Err(err).Str("es_id", id).Str("building_id", buildingID).Msg("building view failed")
			h.writeError(w, http.StatusInternalServerError, "projection_failed", "failed to project building", nil)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleEnqueueProjection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	force, err := parseBoolQuery(r, "force")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "force must be a boolean", map[string]any{"force": r.URL.Query().Get("force")})
		return
	}

	if !h.ensureEngine(w) {
		return
	}
	if h.jobs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "jobs_unavailable", "job queue not configured", nil)
		return
	}
	if _, err := h.systems.Get(id); err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", "energy system not found", map[string]any{"id": id})
		return
	}

	row, err := h.jobs.Enqueue(r.Context(), id, force)
	if err != nil {
		h.log.Error().Err(err).Str("es_id", id).Msg("enqueue projection failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to queue projection", nil)
		return
	}

	h.writeJSON(w, http.StatusAccepted, job{ID: row.ID, EsID: row.EsID, Status: row.Status, Force: row.ForceRefresh})
}
