package esdl

import (
	"errors"
	"fmt"

	"mapeditor/core-go/internal/geometry"
)

var ErrPortNotFound = errors.New("esdl: port not found")

// Located is the asset owning a port and the coordinate a connection to
// that port is drawn from. Coord is nil when the asset has no usable
// geometry.
type Located struct {
	Asset *Asset
	Coord *geometry.LatLon
}

// Locate resolves a port to its asset and drawing coordinate. Lines use
// their first point for in-ports and their last point for out-ports;
// polygons use the centroid of the exterior ring.
func (es *EnergySystem) Locate(portID string) (Located, error) {
	p := es.ports[portID]
	if p == nil {
		return Located{}, fmt.Errorf("%w: %q", ErrPortNotFound, portID)
	}
	a := es.assets[p.Asset]
	if a == nil {
		return Located{}, fmt.Errorf("%w: %q has no asset", ErrPortNotFound, portID)
	}
	return Located{Asset: a, Coord: portCoord(a.Geometry, p.Direction)}, nil
}

// ReferenceCoord is the single coordinate representing a geometry: the
// point itself or the centroid of a polygon. Other kinds have none.
func ReferenceCoord(g Geometry) *geometry.LatLon {
	switch v := g.(type) {
	case *Point:
		return &geometry.LatLon{Lat: v.Lat, Lon: v.Lon}
	case *Polygon:
		c, err := geometry.PolygonCentroid(v.ExteriorRing())
		if err != nil {
			return nil
		}
		return &geometry.LatLon{Lat: c.Y(), Lon: c.X()}
	}
	return nil
}

func portCoord(g Geometry, dir Direction) *geometry.LatLon {
	switch v := g.(type) {
	case *Line:
		if len(v.Points) == 0 {
			return nil
		}
		pt := v.Points[0]
		if dir == OutPort {
			pt = v.Points[len(v.Points)-1]
		}
		return &geometry.LatLon{Lat: pt.Lat, Lon: pt.Lon}
	default:
		return ReferenceCoord(g)
	}
}
