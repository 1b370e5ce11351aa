package esdl

import "github.com/paulmach/orb"

// CRSSimple marks coordinates on the building canvas instead of the map.
const CRSSimple = "Simple"

// Geometry is one of *Point, *Line, *Polygon, *MultiPolygon or *WKT.
type Geometry interface {
	isGeometry()
}

type Point struct {
	Lat float64
	Lon float64
	CRS string
}

type Line struct {
	Points []Point
}

type Polygon struct {
	Exterior []Point
	Interior [][]Point
	CRS      string
}

type MultiPolygon struct {
	Polygons []Polygon
}

// WKT is an opaque well-known-text geometry the map client draws itself.
type WKT struct {
	Value string
	CRS   string
}

func (*Point) isGeometry()        {}
func (*Line) isGeometry()         {}
func (*Polygon) isGeometry()      {}
func (*MultiPolygon) isGeometry() {}
func (*WKT) isGeometry()          {}

// OrbPoint returns the point as (x=lon, y=lat).
func (p Point) OrbPoint() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// IsCanvas reports whether the point lives on a building canvas.
func (p Point) IsCanvas() bool {
	return p.CRS == CRSSimple
}

// ExteriorRing returns the exterior as an orb ring in (lon, lat) order.
func (p *Polygon) ExteriorRing() orb.Ring {
	return toRing(p.Exterior)
}

// Orb converts the polygon, holes included, to an orb polygon.
func (p *Polygon) Orb() orb.Polygon {
	out := orb.Polygon{toRing(p.Exterior)}
	for _, hole := range p.Interior {
		out = append(out, toRing(hole))
	}
	return out
}

// LatLonPairs returns the exterior ring as [lat, lon] pairs.
func (p *Polygon) LatLonPairs() [][2]float64 {
	out := make([][2]float64, 0, len(p.Exterior))
	for _, pt := range p.Exterior {
		out = append(out, [2]float64{pt.Lat, pt.Lon})
	}
	return out
}

func (l *Line) LatLonPairs() [][2]float64 {
	out := make([][2]float64, 0, len(l.Points))
	for _, pt := range l.Points {
		out = append(out, [2]float64{pt.Lat, pt.Lon})
	}
	return out
}

func toRing(points []Point) orb.Ring {
	r := make(orb.Ring, 0, len(points))
	for _, pt := range points {
		r = append(r, pt.OrbPoint())
	}
	return r
}
