package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/metrics"
	"mapeditor/core-go/internal/modelstore"
	"mapeditor/core-go/internal/projection"
	"mapeditor/core-go/internal/runstore"
	"mapeditor/core-go/internal/settings"
	"mapeditor/core-go/internal/sqlcgen"
)

const demoDocument = `{
  "id": "es-1",
  "name": "Demo",
  "area": {
    "id": "area-1",
    "name": "Town",
    "scope": "UNDEFINED",
    "asset": [
      {"type": "PVPanel", "id": "pv", "geometry": {"type": "Point", "lat": 52.0, "lon": 5.0},
       "port": [{"type": "OutPort", "id": "pv-out", "connectedTo": ["hp-in"]}]},
      {"type": "HeatPump", "id": "hp", "geometry": {"type": "Point", "lat": 52.1, "lon": 5.1},
       "port": [{"type": "InPort", "id": "hp-in", "connectedTo": ["pv-out"]}]}
    ]
  }
}`

type fakeProjector struct {
	projectFn  func(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error)
	buildingFn func(ctx context.Context, esID, buildingID string) (*projection.BuildingInfo, error)
}

func (f fakeProjector) Project(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error) {
	return f.projectFn(ctx, esID, mode)
}

func (f fakeProjector) BuildingView(ctx context.Context, esID, buildingID string) (*projection.BuildingInfo, error) {
	return f.buildingFn(ctx, esID, buildingID)
}

type fakeJobs struct {
	enqueueFn func(ctx context.Context, esID string, force bool) (sqlcgen.ProjectionJob, error)
}

func (f fakeJobs) Enqueue(ctx context.Context, esID string, force bool) (sqlcgen.ProjectionJob, error) {
	return f.enqueueFn(ctx, esID, force)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode body as json: %v\nbody=%s", err, rr.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rr)
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %s", rr.Body.String())
	}
	code, _ := e["code"].(string)
	return code
}

func newEngineHandler(t *testing.T) (*Handler, *modelstore.Store) {
	t.Helper()
	store := modelstore.New()
	runs := runstore.NewMemory()
	m := metrics.New()
	engine := projection.NewEngine(zerolog.Nop(), projection.Options{
		Systems: store,
		Runs:    runs,
		Metrics: m,
	})
	h := NewHandler(NewLogger(LogConfig{Level: "debug"}), nil, Options{
		Systems:   store,
		Projector: engine,
		Runs:      runs,
		Settings:  settings.NewMemory(),
		Metrics:   m,
	})
	return h, store
}

func do(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.Router().ServeHTTP(rr, req)
	return rr
}

func TestReadyz_NoEngine(t *testing.T) {
	h := NewHandler(NewLogger(LogConfig{Level: "debug"}), nil, Options{})
	rr := do(h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}

	h, _ = newEngineHandler(t)
	rr = do(h, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 without database, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEnergySystems_UploadProjectAndFetch(t *testing.T) {
	h, _ := newEngineHandler(t)

	rr := do(h, http.MethodPost, "/api/v1/energysystems", demoDocument)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
		t.Fatalf("expected json content-type, got %q", got)
	}
	if body := decodeBody(t, rr); body["id"] != "es-1" || body["title"] != "Demo" {
		t.Fatalf("unexpected upload response %v", body)
	}

	rr = do(h, http.MethodGet, "/api/v1/energysystems", "")
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one energy system, got %s", rr.Body.String())
	}

	rr = do(h, http.MethodGet, "/api/v1/energysystems/es-1/projection", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before projecting, got %d", rr.Code)
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	batch := decodeBody(t, rr)
	if batch["skipped"] != false {
		t.Fatalf("expected first projection to run, got %v", batch["skipped"])
	}
	if conns, _ := batch["conn_list"].([]any); len(conns) == 0 {
		t.Fatalf("expected connections in batch, got %v", batch["conn_list"])
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection", "")
	if decodeBody(t, rr)["skipped"] != true {
		t.Fatalf("expected second projection to be skipped")
	}

	rr = do(h, http.MethodGet, "/api/v1/energysystems/es-1/projection", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected stored snapshot, got %d: %s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["es_id"] != "es-1" {
		t.Fatalf("unexpected snapshot %s", rr.Body.String())
	}

	// Uploading again clears the processed marker.
	_ = do(h, http.MethodPost, "/api/v1/energysystems", demoDocument)
	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection", "")
	if decodeBody(t, rr)["skipped"] != false {
		t.Fatalf("expected projection to rerun after reupload")
	}

	rr = do(h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "mapeditor_projection_runs_total") {
		t.Fatalf("expected projection metrics, got %d", rr.Code)
	}
}

func TestEnergySystems_UploadRejectsInvalidDocument(t *testing.T) {
	h, _ := newEngineHandler(t)
	rr := do(h, http.MethodPost, "/api/v1/energysystems", `{"id":"x","area":{"id":"a","asset":[{"type":"PVPanel","id":"pv","geometry":{"type":"Circle"}}]}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if code := errorCode(t, rr); code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", code)
	}
}

func TestProject_NotFoundAndBadQuery(t *testing.T) {
	h, _ := newEngineHandler(t)

	rr := do(h, http.MethodPost, "/api/v1/energysystems/missing/projection", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/missing/projection?force=maybe", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProject_PassesModeAndUserYear(t *testing.T) {
	var seen projection.Mode
	st := settings.NewMemory()
	if err := st.SetUser("ann", map[string]any{settings.BoundariesYear: 2021}); err != nil {
		t.Fatalf("set user: %v", err)
	}
	h := NewHandler(NewLogger(LogConfig{Level: "debug"}), nil, Options{
		Systems: modelstore.New(),
		Projector: fakeProjector{projectFn: func(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error) {
			seen = mode
			return &projection.Batch{ESID: esID}, nil
		}},
		Settings: st,
	})

	rr := do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection?force=true&editor=1&user=ann", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !seen.ForceRefresh || !seen.EditorView || seen.BoundariesYear != 2021 {
		t.Fatalf("unexpected mode %+v", seen)
	}
}

func TestProject_InfrastructureErrorIs500(t *testing.T) {
	h := NewHandler(NewLogger(LogConfig{Level: "debug"}), nil, Options{
		Systems: modelstore.New(),
		Projector: fakeProjector{projectFn: func(ctx context.Context, esID string, mode projection.Mode) (*projection.Batch, error) {
			return nil, errors.New("publish failed")
		}},
	})
	rr := do(h, http.MethodPost, "/api/v1/energysystems/es-1/projection", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "projection_failed" {
		t.Fatalf("expected projection_failed, got %q", code)
	}
}

func TestBuildingView_NotBuilding(t *testing.T) {
	h, _ := newEngineHandler(t)
	_ = do(h, http.MethodPost, "/api/v1/energysystems", demoDocument)

	rr := do(h, http.MethodGet, "/api/v1/energysystems/es-1/buildings/pv", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-building, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestEnqueueProjection(t *testing.T) {
	h, _ := newEngineHandler(t)
	_ = do(h, http.MethodPost, "/api/v1/energysystems", demoDocument)

	rr := do(h, http.MethodPost, "/api/v1/energysystems/es-1/jobs", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a queue, got %d", rr.Code)
	}

	var gotForce bool
	h.jobs = fakeJobs{enqueueFn: func(ctx context.Context, esID string, force bool) (sqlcgen.ProjectionJob, error) {
		gotForce = force
		return sqlcgen.ProjectionJob{ID: "job-1", EsID: esID, Status: "queued", ForceRefresh: force}, nil
	}}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/es-1/jobs?force=true", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeBody(t, rr); body["id"] != "job-1" || body["status"] != "queued" || !gotForce {
		t.Fatalf("unexpected job response %v", body)
	}

	rr = do(h, http.MethodPost, "/api/v1/energysystems/other/jobs", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown system, got %d", rr.Code)
	}
}

func TestSettings_SystemAndUser(t *testing.T) {
	h, _ := newEngineHandler(t)

	rr := do(h, http.MethodPut, "/api/v1/settings/system/ui_settings/carrier_colors/heat", `{"value":"#ff0000"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodGet, "/api/v1/settings/system/ui_settings/carrier_colors", "")
	value, _ := decodeBody(t, rr)["value"].(map[string]any)
	if value["heat"] != "#ff0000" {
		t.Fatalf("expected stored color, got %s", rr.Body.String())
	}

	rr = do(h, http.MethodGet, "/api/v1/settings/system/nope/x", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = do(h, http.MethodPut, "/api/v1/settings/system/ui_settings/carrier_colors/heat", `{"value":"x","nope":true}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}

	rr = do(h, http.MethodPut, "/api/v1/settings/users/ann", `{"boundaries_year":2020}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = do(h, http.MethodGet, "/api/v1/settings/users/ann", "")
	if decodeBody(t, rr)["boundaries_year"] != float64(2020) {
		t.Fatalf("expected boundaries year, got %s", rr.Body.String())
	}
}
