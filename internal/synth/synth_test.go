package synth

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
)

type builder struct {
	t  *testing.T
	es *esdl.EnergySystem
}

func newBuilder(t *testing.T) *builder {
	t.Helper()
	es := esdl.New("es", "test")
	if _, err := es.AddArea("", esdl.Area{ID: "root", Scope: esdl.ScopeUndefined}); err != nil {
		t.Fatalf("add root: %v", err)
	}
	return &builder{t: t, es: es}
}

func (b *builder) asset(parent, id, class string, g esdl.Geometry) *esdl.Asset {
	b.t.Helper()
	a, err := b.es.AddAsset(parent, esdl.Asset{ID: id, Type: class, Kind: esdl.KindOf(class), Geometry: g})
	if err != nil {
		b.t.Fatalf("add asset %s: %v", id, err)
	}
	return a
}

func point(es *esdl.EnergySystem, id string) *esdl.Point {
	p, _ := es.Asset(id).Geometry.(*esdl.Point)
	return p
}

func TestInBuilding_columnsSkipEmptyCategories(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "bld", "Building", &esdl.Point{Lat: 52, Lon: 5})
	b.asset("bld", "j1", "Joint", nil)
	b.asset("bld", "j2", "Joint", nil)
	b.asset("bld", "pipe", "Pipe", nil)
	b.asset("bld", "d1", "HeatingDemand", nil)
	b.asset("bld", "d2", "ElectricityDemand", nil)
	b.asset("bld", "d3", "GasDemand", nil)

	s := New(rand.New(rand.NewSource(1)))
	if n := s.InBuilding(b.es, "bld"); n != 6 {
		t.Fatalf("expected 6 placements, got %d", n)
	}

	want := map[string][2]float64{
		"j1":   {125, 500.0 / 3},
		"j2":   {125, 1000.0 / 3},
		"pipe": {250, 250},
		"d1":   {375, 125},
		"d2":   {375, 250},
		"d3":   {375, 375},
	}
	for id, xy := range want {
		p := point(b.es, id)
		if p == nil || p.CRS != esdl.CRSSimple {
			t.Fatalf("%s: expected canvas point, got %+v", id, b.es.Asset(id).Geometry)
		}
		if math.Abs(p.Lon-xy[0]) > 1e-9 || math.Abs(p.Lat-xy[1]) > 1e-9 {
			t.Fatalf("%s: expected (%v,%v), got (%v,%v)", id, xy[0], xy[1], p.Lon, p.Lat)
		}
	}
}

func TestInBuilding_keepsExistingGeometry(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "bld", "Building", nil)
	fixed := &esdl.Point{Lat: 10, Lon: 20, CRS: esdl.CRSSimple}
	b.asset("bld", "hp", "HeatPump", fixed)
	b.asset("bld", "bat", "Battery", nil)

	New(rand.New(rand.NewSource(1))).InBuilding(b.es, "bld")

	if b.es.Asset("hp").Geometry != fixed {
		t.Fatalf("expected existing geometry to be kept")
	}
	// Both still count toward the row spacing.
	if p := point(b.es, "bat"); p == nil || p.Lat != 500.0/3 || p.Lon != 250 {
		t.Fatalf("unexpected battery placement: %+v", p)
	}
}

func TestAreaScope_usesFirstExteriorOfMultiPolygon(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "pv", "PVPanel", nil)
	b.asset("root", "bld", "Building", nil)
	b.asset("bld", "demand", "HeatingDemand", nil)

	boundary := orb.MultiPolygon{
		{{{4, 52}, {6, 52}, {6, 54}, {4, 54}, {4, 52}}},
		{{{100, 10}, {101, 10}, {101, 11}, {100, 10}}},
	}
	s := New(rand.New(rand.NewSource(9)))
	n, err := s.AreaScope(b.es, "root", boundary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 placements, got %d", n)
	}
	for _, id := range []string{"pv", "bld"} {
		p := point(b.es, id)
		if p == nil || p.Lon < 4.5 || p.Lon > 5.5 || p.Lat < 52.5 || p.Lat > 53.5 {
			t.Fatalf("%s: expected point near first polygon, got %+v", id, p)
		}
	}
	if p := point(b.es, "demand"); p == nil || p.CRS != esdl.CRSSimple {
		t.Fatalf("expected in-building layout for demand, got %+v", p)
	}
}

func TestAreaScope_malformedBoundaryStillLaysOutBuildings(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "pv", "PVPanel", nil)
	b.asset("root", "bld", "Building", nil)
	b.asset("bld", "demand", "HeatingDemand", nil)

	_, err := New(rand.New(rand.NewSource(1))).AreaScope(b.es, "root", orb.LineString{{0, 0}, {1, 1}})
	if !errors.Is(err, ErrMalformedPolygon) {
		t.Fatalf("expected ErrMalformedPolygon, got %v", err)
	}
	if b.es.Asset("pv").Geometry != nil {
		t.Fatalf("expected no placement without a usable boundary")
	}
	if point(b.es, "demand") == nil {
		t.Fatalf("expected building layout to run anyway")
	}
}

func TestFallback_quarterScaleAndSkipsCanvasPoints(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "a", "WindTurbine", &esdl.Point{Lat: 52, Lon: 4})
	b.asset("root", "c", "WindTurbine", &esdl.Point{Lat: 54, Lon: 8})
	b.asset("root", "bld", "Building", nil)
	b.asset("bld", "j", "Joint", &esdl.Point{Lat: 400, Lon: 400, CRS: esdl.CRSSimple})
	b.asset("root", "gap", "GasDemand", nil)
	b.asset("root", "other", "Insulation", nil)

	s := New(rand.New(rand.NewSource(4)))
	n, err := s.Fallback(b.es, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected building and demand to be placed, got %d", n)
	}
	for _, id := range []string{"gap", "bld"} {
		p := point(b.es, id)
		if p == nil || math.Abs(p.Lon-6) > 0.5 || math.Abs(p.Lat-53) > 0.25 {
			t.Fatalf("%s: expected point within quarter extents of (53,6), got %+v", id, p)
		}
	}
	if b.es.Asset("other").Geometry != nil {
		t.Fatalf("expected non-energy asset to stay without geometry")
	}
}

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func TestFallback_projectedCoordinatesAreConverted(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "a", "WindTurbine", &esdl.Point{Lat: 458000, Lon: 150000})
	b.asset("root", "c", "WindTurbine", &esdl.Point{Lat: 468000, Lon: 160000})
	b.asset("root", "net", "HeatNetwork", nil)

	n, err := New(fixedRand(0.5)).Fallback(b.es, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the network to be placed, got %d", n)
	}
	p := point(b.es, "net")
	if p == nil {
		t.Fatalf("expected a point geometry")
	}
	// Center of the RD box is the Amersfoort reference.
	if math.Abs(p.Lat-52.1551744) > 1e-6 || math.Abs(p.Lon-5.38720621) > 1e-6 {
		t.Fatalf("expected Amersfoort in degrees, got %+v", p)
	}
}

func TestFallback_unlistedEnergyAssetClassIsPlaced(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "a", "WindTurbine", &esdl.Point{Lat: 52, Lon: 4})
	b.asset("root", "s", "Sensor", nil)

	n, err := New(fixedRand(0.5)).Fallback(b.es, "root")
	if err != nil || n != 1 {
		t.Fatalf("expected sensor to be placed, got n=%d err=%v", n, err)
	}
	if point(b.es, "s") == nil {
		t.Fatalf("expected sensor geometry")
	}
}

func TestFallback_noCoordinates(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "gap", "GasDemand", nil)

	n, err := New(rand.New(rand.NewSource(1))).Fallback(b.es, "root")
	if !errors.Is(err, geometry.ErrEmptyInput) || n != 0 {
		t.Fatalf("expected ErrEmptyInput and no placements, got %d, %v", n, err)
	}
}

func TestSynthesizer_isIdempotent(t *testing.T) {
	b := newBuilder(t)
	b.asset("root", "a", "WindTurbine", &esdl.Point{Lat: 52, Lon: 4})
	b.asset("root", "gap", "GasDemand", nil)
	b.asset("root", "bld", "Building", nil)
	b.asset("bld", "hp", "HeatPump", nil)

	s := New(rand.New(rand.NewSource(2)))
	boundary := orb.Polygon{{{4, 52}, {5, 52}, {5, 53}, {4, 52}}}
	if _, err := s.AreaScope(b.es, "root", boundary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Fallback(b.es, "root"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := map[string]esdl.Point{}
	for _, id := range []string{"a", "gap", "bld", "hp"} {
		before[id] = *point(b.es, id)
	}

	n1, _ := s.AreaScope(b.es, "root", boundary)
	n2, _ := s.Fallback(b.es, "root")
	if n1 != 0 || n2 != 0 {
		t.Fatalf("expected no further placements, got %d and %d", n1, n2)
	}
	for id, want := range before {
		if got := *point(b.es, id); got != want {
			t.Fatalf("%s: geometry changed from %+v to %+v", id, want, got)
		}
	}
}
