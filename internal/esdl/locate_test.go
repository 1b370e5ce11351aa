package esdl

import (
	"errors"
	"math"
	"testing"
)

func TestLocate_lineEndsFollowPortDirection(t *testing.T) {
	es := New("es", "")
	mustArea(t, es, "", "a")
	cable, _ := es.AddAsset("a", Asset{ID: "cable", Type: "ElectricityCable", Kind: KindEnergyAsset,
		Geometry: &Line{Points: []Point{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}, {Lat: 5, Lon: 6}}}})
	if cable == nil {
		t.Fatalf("expected cable to be added")
	}
	mustPort(t, es, "cable", "in", InPort)
	mustPort(t, es, "cable", "out", OutPort)

	in, err := es.Locate("in")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Asset.ID != "cable" || in.Coord == nil || in.Coord.Lat != 1 || in.Coord.Lon != 2 {
		t.Fatalf("expected first point for in-port, got %+v", in.Coord)
	}
	out, _ := es.Locate("out")
	if out.Coord == nil || out.Coord.Lat != 5 || out.Coord.Lon != 6 {
		t.Fatalf("expected last point for out-port, got %+v", out.Coord)
	}
}

func TestLocate_polygonCentroidAndMissingGeometry(t *testing.T) {
	es := New("es", "")
	mustArea(t, es, "", "a")
	_, _ = es.AddAsset("a", Asset{ID: "park", Type: "PVPark", Kind: KindEnergyAsset,
		Geometry: &Polygon{Exterior: []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}, {Lat: 0, Lon: 0}}}})
	mustAsset(t, es, "a", "bare", "HeatPump")
	mustPort(t, es, "park", "park-out", OutPort)
	mustPort(t, es, "bare", "bare-in", InPort)

	got, _ := es.Locate("park-out")
	if got.Coord == nil || math.Abs(got.Coord.Lat-1) > 1e-9 || math.Abs(got.Coord.Lon-1) > 1e-9 {
		t.Fatalf("expected centroid (1,1), got %+v", got.Coord)
	}
	bare, _ := es.Locate("bare-in")
	if bare.Coord != nil {
		t.Fatalf("expected no coordinate, got %+v", bare.Coord)
	}
	if _, err := es.Locate("nope"); !errors.Is(err, ErrPortNotFound) {
		t.Fatalf("expected ErrPortNotFound, got %v", err)
	}
}
