package geometry

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrEmptyInput is returned when a reduction is asked to work on no points.
var ErrEmptyInput = errors.New("geometry: empty input")

// projectedThreshold is the coordinate magnitude above which a pair is
// assumed to be in a projected reference system instead of degrees.
const projectedThreshold = 180.0

// Rand is the uniform source used for synthesized placements.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// LatLon is a geographic position in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pair returns the position as [lat, lon], the order the map client draws with.
func (p LatLon) Pair() [2]float64 {
	return [2]float64{p.Lat, p.Lon}
}

// Box is the result of a min/max reduction over a point set.
type Box struct {
	Center orb.Point
	DeltaX float64
	DeltaY float64
}

// BoundingBox reduces points (x, y) to their midpoint and axis extents.
func BoundingBox(points []orb.Point) (Box, error) {
	if len(points) == 0 {
		return Box{}, ErrEmptyInput
	}
	b := orb.MultiPoint(points).Bound()
	return Box{
		Center: b.Center(),
		DeltaX: b.Max.X() - b.Min.X(),
		DeltaY: b.Max.Y() - b.Min.Y(),
	}, nil
}

// RandomPointNear draws a point within a quarter of the given extents around
// center. When convertProjected is set and the draw looks projected, the
// pair is converted from RD New to WGS84 and stored as (lat, lon) in the
// converter's output order. Otherwise y becomes lat and x becomes lon.
func RandomPointNear(rng Rand, center orb.Point, dx, dy float64, convertProjected bool) LatLon {
	x := center.X() + (rng.Float64()-0.5)*dx/2
	y := center.Y() + (rng.Float64()-0.5)*dy/2

	if convertProjected && IsProjected(x, y) {
		wgs := RDToWGS84(x, y)
		return LatLon{Lat: wgs[0], Lon: wgs[1]}
	}
	return LatLon{Lat: y, Lon: x}
}

// IsProjected reports whether either coordinate exceeds the range of degrees.
func IsProjected(x, y float64) bool {
	return math.Abs(x) > projectedThreshold || math.Abs(y) > projectedThreshold
}

// PolygonCentroid returns the area centroid of the exterior ring. Holes are
// ignored. Degenerate rings fall back to the mean of their vertices.
func PolygonCentroid(exterior orb.Ring) (orb.Point, error) {
	if len(exterior) == 0 {
		return orb.Point{}, ErrEmptyInput
	}
	c, area := planar.CentroidArea(orb.Polygon{exterior})
	if area != 0 && !math.IsNaN(c.X()) && !math.IsNaN(c.Y()) {
		return c, nil
	}

	var sx, sy float64
	for _, p := range exterior {
		sx += p.X()
		sy += p.Y()
	}
	n := float64(len(exterior))
	return orb.Point{sx / n, sy / n}, nil
}

// ExchangeCoordinates swaps every pair, turning (lon, lat) into (lat, lon)
// and back.
func ExchangeCoordinates(ring orb.Ring) [][2]float64 {
	out := make([][2]float64, 0, len(ring))
	for _, p := range ring {
		out = append(out, [2]float64{p.Y(), p.X()})
	}
	return out
}
