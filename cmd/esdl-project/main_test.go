package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/projection"
)

const document = `{
  "id": "es-cli",
  "name": "CLI",
  "area": {
    "id": "area-1",
    "scope": "UNDEFINED",
    "asset": [
      {"type": "Building", "id": "bld", "name": "Office",
       "geometry": {"type": "Polygon", "exterior": {"point": [
         {"lat": 52.0, "lon": 5.0}, {"lat": 52.0, "lon": 5.001}, {"lat": 52.001, "lon": 5.001}, {"lat": 52.001, "lon": 5.0}, {"lat": 52.0, "lon": 5.0}]}},
       "asset": [
         {"type": "HeatPump", "id": "hp", "geometry": {"type": "Point", "lat": 120, "lon": 200},
          "port": [{"type": "InPort", "id": "hp-in"}]}
       ]},
      {"type": "PVPanel", "id": "pv", "geometry": {"type": "Point", "lat": 52.01, "lon": 5.01},
       "port": [{"type": "OutPort", "id": "pv-out"}]}
    ]
  }
}`

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "es.json")
	if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestRunProjectPrintsBatch(t *testing.T) {
	var out bytes.Buffer
	if err := runProject(context.Background(), &out, zerolog.Nop(), writeDocument(t), projectOptions{year: 2019, seed: 1}); err != nil {
		t.Fatalf("project: %v", err)
	}

	var batch projection.Batch
	if err := json.Unmarshal(out.Bytes(), &batch); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if batch.ESID != "es-cli" || batch.Title != "CLI" {
		t.Fatalf("unexpected batch header %+v", batch)
	}
	if len(batch.Buildings) != 1 || batch.Buildings[0].ID != "bld" {
		t.Fatalf("expected the office building, got %+v", batch.Buildings)
	}
	if !batch.Buildings[0].HasAssets {
		t.Fatalf("expected building to report assets")
	}
}

func TestRunProjectPrintsMessages(t *testing.T) {
	var out bytes.Buffer
	if err := runProject(context.Background(), &out, zerolog.Nop(), writeDocument(t), projectOptions{messages: true, seed: 1}); err != nil {
		t.Fatalf("project: %v", err)
	}

	var msgs []struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(out.Bytes(), &msgs); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(msgs) == 0 || msgs[0].Kind != "create_new_esdl_layer" {
		t.Fatalf("expected the layer to be created first, got %+v", msgs)
	}
}

func TestRunBuilding(t *testing.T) {
	path := writeDocument(t)

	var out bytes.Buffer
	if err := runBuilding(context.Background(), &out, zerolog.Nop(), path, "bld", 1); err != nil {
		t.Fatalf("building: %v", err)
	}
	var info projection.BuildingInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if info.ID != "bld" || len(info.Features) != 1 || info.Features[0].ID != "hp" {
		t.Fatalf("expected the heat pump on the building canvas, got %+v", info)
	}

	if err := runBuilding(context.Background(), &out, zerolog.Nop(), path, "pv", 1); !errors.Is(err, projection.ErrNotBuilding) {
		t.Fatalf("expected ErrNotBuilding, got %v", err)
	}
}

func TestRunProjectMissingFile(t *testing.T) {
	err := runProject(context.Background(), &bytes.Buffer{}, zerolog.Nop(), filepath.Join(t.TempDir(), "nope.json"), projectOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
