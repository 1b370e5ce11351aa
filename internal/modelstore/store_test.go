package modelstore

import (
	"errors"
	"testing"

	"mapeditor/core-go/internal/esdl"
)

func TestStorePutGetLocate(t *testing.T) {
	s := New()
	es := esdl.New("es-b", "B")
	if _, err := es.AddArea("", esdl.Area{ID: "root"}); err != nil {
		t.Fatalf("add area: %v", err)
	}
	if _, err := es.AddAsset("root", esdl.Asset{ID: "pv", Type: "PVPark", Kind: esdl.KindEnergyAsset, Geometry: &esdl.Point{Lat: 52, Lon: 5}}); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if _, err := es.AddPort("pv", esdl.Port{ID: "pv-out", Direction: esdl.OutPort}); err != nil {
		t.Fatalf("add port: %v", err)
	}
	s.Put(es)
	s.Put(esdl.New("es-a", "A"))

	if ids := s.IDs(); len(ids) != 2 || ids[0] != "es-a" || ids[1] != "es-b" {
		t.Fatalf("expected sorted ids, got %v", ids)
	}

	loc, err := s.Locate("es-b", "pv-out")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if loc.Asset.ID != "pv" || loc.Coord == nil || loc.Coord.Lat != 52 {
		t.Fatalf("unexpected location %+v", loc)
	}

	if _, err := s.Locate("es-b", "missing"); !errors.Is(err, esdl.ErrPortNotFound) {
		t.Fatalf("expected ErrPortNotFound, got %v", err)
	}
	if _, err := s.Locate("es-x", "pv-out"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.Delete("es-b")
	if _, err := s.Get("es-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
