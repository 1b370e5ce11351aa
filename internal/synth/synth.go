package synth

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
)

// ErrMalformedPolygon is returned when an area boundary is neither a
// polygon nor a multipolygon.
var ErrMalformedPolygon = errors.New("synth: non supported polygon")

// Synthesizer fills in missing geometry. It only ever writes to nodes whose
// geometry is nil, so running it again on the same model is a no-op.
type Synthesizer struct {
	rng geometry.Rand
}

func New(rng geometry.Rand) *Synthesizer {
	return &Synthesizer{rng: rng}
}

// AreaScope places the direct children of an area that have no geometry
// around the outer ring of boundary, then lays out every building found
// among them. boundary may be nil, in which case only the building layout
// runs. For a multipolygon only the first polygon's exterior is used.
func (s *Synthesizer) AreaScope(es *esdl.EnergySystem, areaID string, boundary orb.Geometry) (int, error) {
	area := es.Area(areaID)
	if area == nil {
		return 0, fmt.Errorf("synth: unknown area %q", areaID)
	}

	var box *geometry.Box
	var boundaryErr error
	if boundary != nil {
		ring, err := outerRing(boundary)
		if err != nil {
			boundaryErr = err
		} else if b, err := geometry.BoundingBox(ring); err == nil {
			box = &b
		} else {
			boundaryErr = err
		}
	}

	placed := 0
	for _, id := range area.Assets {
		a := es.Asset(id)
		if a == nil {
			continue
		}
		if a.Geometry == nil && box != nil {
			p := geometry.RandomPointNear(s.rng, box.Center, box.DeltaX, box.DeltaY, true)
			a.Geometry = &esdl.Point{Lat: p.Lat, Lon: p.Lon}
			placed++
		}
		if a.IsBuilding() {
			placed += s.InBuilding(es, a.ID)
		}
	}
	return placed, boundaryErr
}

func outerRing(g orb.Geometry) ([]orb.Point, error) {
	switch b := g.(type) {
	case orb.Polygon:
		if len(b) == 0 {
			return nil, geometry.ErrEmptyInput
		}
		return b[0], nil
	case orb.MultiPolygon:
		if len(b) == 0 || len(b[0]) == 0 {
			return nil, geometry.ErrEmptyInput
		}
		return b[0][0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMalformedPolygon, g.GeoJSONType())
	}
}

// Fallback places every energy asset, Building and AggregatedBuilding in
// the subtree that still has no geometry, using the bounding box of all
// map coordinates already present at a quarter of its extents. Canvas
// coordinates do not count. With no coordinates at all nothing is placed
// and geometry.ErrEmptyInput is returned.
func (s *Synthesizer) Fallback(es *esdl.EnergySystem, areaID string) (int, error) {
	var points []orb.Point
	for _, g := range es.Geometries(areaID) {
		points = appendMapPoints(points, g)
	}

	box, err := geometry.BoundingBox(points)
	if err != nil {
		return 0, err
	}
	var maxLat, maxLon float64
	for i, p := range points {
		if i == 0 || p.Y() > maxLat {
			maxLat = p.Y()
		}
		if i == 0 || p.X() > maxLon {
			maxLon = p.X()
		}
	}
	projected := maxLat > 180 && maxLon > 180

	placed := 0
	es.WalkAssets(areaID, func(a *esdl.Asset) {
		if a.Geometry != nil {
			return
		}
		switch a.Kind {
		case esdl.KindEnergyAsset, esdl.KindBuilding, esdl.KindAggregatedBuilding:
		default:
			return
		}
		p := geometry.RandomPointNear(s.rng, box.Center, box.DeltaX/4, box.DeltaY/4, projected)
		a.Geometry = &esdl.Point{Lat: p.Lat, Lon: p.Lon}
		placed++
	})
	return placed, nil
}

func appendMapPoints(dst []orb.Point, g esdl.Geometry) []orb.Point {
	switch v := g.(type) {
	case *esdl.Point:
		if !v.IsCanvas() {
			dst = append(dst, v.OrbPoint())
		}
	case *esdl.Line:
		for _, p := range v.Points {
			if !p.IsCanvas() {
				dst = append(dst, p.OrbPoint())
			}
		}
	case *esdl.Polygon:
		if v.CRS != esdl.CRSSimple && len(v.Exterior) > 0 {
			dst = append(dst, v.Exterior[0].OrbPoint())
		}
	case *esdl.MultiPolygon:
		for i := range v.Polygons {
			dst = appendMapPoints(dst, &v.Polygons[i])
		}
	case *esdl.WKT:
	}
	return dst
}
