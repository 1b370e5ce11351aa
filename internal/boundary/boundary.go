package boundary

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Boundary is an administrative area outline. Geometry is always a
// multipolygon; a single polygon boundary has one element.
type Boundary struct {
	Code     string
	Name     string
	Geometry orb.MultiPolygon
}

// Request names one boundary for preloading.
type Request struct {
	Scope string
	Code  string
}

// Service resolves administrative boundaries. A boundary that does not
// exist is not an error: Lookup returns nil, nil.
type Service interface {
	Lookup(ctx context.Context, year int, scope, code string) (*Boundary, error)
	Preload(ctx context.Context, year int, requests []Request) error
}

// FromFeature converts a GeoJSON feature into a Boundary. The name comes
// from the "name" property and falls back to code.
func FromFeature(code string, f *geojson.Feature) (*Boundary, error) {
	if f == nil || f.Geometry == nil {
		return nil, fmt.Errorf("boundary %s: feature has no geometry", code)
	}
	mp, err := asMultiPolygon(f.Geometry)
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w", code, err)
	}
	name := f.Properties.MustString("name", "")
	if name == "" {
		name = code
	}
	return &Boundary{Code: code, Name: name, Geometry: mp}, nil
}

func asMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case orb.MultiPolygon:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}
}

func cacheKey(year int, scope, code string) string {
	return fmt.Sprintf("%d/%s/%s", year, strings.ToUpper(scope), strings.ToUpper(code))
}
