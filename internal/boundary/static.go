package boundary

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Static serves boundaries from a GeoJSON feature collection held in
// memory. Each feature carries "scope", "code" and "name" properties and
// optionally a "year"; features without a year match every year.
type Static struct {
	byKey   map[string]*Boundary
	anyYear map[string]*Boundary
}

// LoadStaticFile reads a feature collection from path.
func LoadStaticFile(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStatic(b)
}

func NewStatic(featureCollection []byte) (*Static, error) {
	fc, err := geojson.UnmarshalFeatureCollection(featureCollection)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries: %w", err)
	}

	s := &Static{
		byKey:   make(map[string]*Boundary),
		anyYear: make(map[string]*Boundary),
	}
	for i, f := range fc.Features {
		code := strings.TrimSpace(f.Properties.MustString("code", ""))
		scope := strings.TrimSpace(f.Properties.MustString("scope", ""))
		if code == "" || scope == "" {
			return nil, fmt.Errorf("parse boundaries: feature %d lacks scope or code", i)
		}
		b, err := FromFeature(strings.ToUpper(code), f)
		if err != nil {
			return nil, err
		}
		if year, ok := featureYear(f); ok {
			s.byKey[cacheKey(year, scope, code)] = b
		} else {
			s.anyYear[cacheKey(0, scope, code)] = b
		}
	}
	return s, nil
}

func featureYear(f *geojson.Feature) (int, bool) {
	switch v := f.Properties["year"].(type) {
	case float64:
		return int(v), true
	case string:
		y, err := strconv.Atoi(v)
		return y, err == nil
	default:
		return 0, false
	}
}

func (s *Static) Lookup(_ context.Context, year int, scope, code string) (*Boundary, error) {
	if b, ok := s.byKey[cacheKey(year, scope, code)]; ok {
		return b, nil
	}
	if b, ok := s.anyYear[cacheKey(0, scope, code)]; ok {
		return b, nil
	}
	return nil, nil
}

func (s *Static) Preload(context.Context, int, []Request) error {
	return nil
}
