package projection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/boundary"
	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/notify"
	"mapeditor/core-go/internal/synth"
)

// maxBoundaryCodeLen separates administrative codes from generated ids.
const maxBoundaryCodeLen = 20

type assembler struct {
	log        zerolog.Logger
	es         *esdl.EnergySystem
	boundaries boundary.Service
	synth      *synth.Synthesizer
	year       int

	areas     *geojson.FeatureCollection
	buildings *geojson.FeatureCollection
	// messages holds boundary and alert messages in encounter order.
	messages []notify.Message
	alerts   int
}

func newAssembler(log zerolog.Logger, es *esdl.EnergySystem, b boundary.Service, s *synth.Synthesizer, year int) *assembler {
	return &assembler{
		log:        log,
		es:         es,
		boundaries: b,
		synth:      s,
		year:       year,
		areas:      geojson.NewFeatureCollection(),
		buildings:  geojson.NewFeatureCollection(),
	}
}

func (a *assembler) alert(msg string) {
	a.alerts++
	a.messages = append(a.messages, notify.Message{Kind: notify.KindAlert, Payload: map[string]any{"message": msg}})
}

// wantsLookup reports whether the area should be resolved through the
// boundary service.
func wantsLookup(area *esdl.Area) bool {
	return area.Geometry == nil &&
		area.Scope != "" && area.Scope != esdl.ScopeUndefined &&
		area.ID != "" && len(area.ID) < maxBoundaryCodeLen
}

// preloadRequests lists the lookups the walk below the area will make.
func preloadRequests(es *esdl.EnergySystem, root *esdl.Area) []boundary.Request {
	var out []boundary.Request
	var visit func(*esdl.Area)
	visit = func(area *esdl.Area) {
		if wantsLookup(area) {
			out = append(out, boundary.Request{Scope: area.Scope, Code: strings.ToUpper(area.ID)})
		}
		for _, id := range area.Areas {
			if sub := es.Area(id); sub != nil {
				visit(sub)
			}
		}
	}
	visit(root)
	return out
}

func (a *assembler) run(ctx context.Context, root *esdl.Area) {
	if a.boundaries != nil {
		if reqs := preloadRequests(a.es, root); len(reqs) > 0 {
			if err := a.boundaries.Preload(ctx, a.year, reqs); err != nil {
				a.log.Warn().Err(err).Int("requests", len(reqs)).Msg("boundary preload failed")
			}
		}
	}
	a.area(ctx, root)
}

func (a *assembler) area(ctx context.Context, area *esdl.Area) {
	kpis := make(map[string]any)
	for _, k := range area.KPIs {
		if !k.Distribution {
			kpis[k.Name] = k.Value
		}
	}

	var bound orb.Geometry
	switch g := area.Geometry.(type) {
	case *esdl.Polygon:
		poly := g.Orb()
		a.addArea(area.ID, area.Name, poly, kpis)
		bound = poly
	case *esdl.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(g.Polygons))
		for i := range g.Polygons {
			mp = append(mp, g.Polygons[i].Orb())
		}
		a.addAreaParts(area.ID, area.Name, mp, kpis)
		bound = mp
	case nil:
		if a.boundaries != nil && wantsLookup(area) {
			code := strings.ToUpper(area.ID)
			b, err := a.boundaries.Lookup(ctx, a.year, area.Scope, code)
			switch {
			case err != nil:
				a.log.Warn().Err(err).Str("area_id", area.ID).Str("scope", area.Scope).Msg("boundary lookup failed")
				a.alert(fmt.Sprintf("Boundary of area %s could not be retrieved", area.ID))
			case b != nil:
				a.addAreaParts(code, b.Name, b.Geometry, kpis)
				bound = b.Geometry
			}
		}
	default:
		bound = orbGeometry(g)
	}

	if _, err := a.synth.AreaScope(a.es, area.ID, bound); err != nil {
		a.log.Warn().Err(err).Str("area_id", area.ID).Msg("area synthesis")
		if errors.Is(err, synth.ErrMalformedPolygon) {
			a.alert("Non supported polygon")
		}
	}

	for _, id := range area.Assets {
		asset := a.es.Asset(id)
		if asset == nil {
			continue
		}
		if asset.IsBuilding() {
			a.addBuilding(asset)
			continue
		}
		if w, ok := asset.Geometry.(*esdl.WKT); ok {
			a.messages = append(a.messages, wktMessage(notify.KindAreaBoundary, w, asset.Name, "asset"))
		}
	}
	for _, id := range area.Potentials {
		p := a.es.Potential(id)
		if p == nil {
			continue
		}
		if w, ok := p.Geometry.(*esdl.WKT); ok {
			a.messages = append(a.messages, wktMessage(notify.KindPotentialBoundary, w, p.Name, "potential"))
		}
	}

	for _, id := range area.Areas {
		if sub := a.es.Area(id); sub != nil {
			a.area(ctx, sub)
		}
	}
}

func (a *assembler) addArea(id, name string, poly orb.Polygon, kpis map[string]any) {
	f := geojson.NewFeature(poly)
	f.Properties["id"] = id
	f.Properties["name"] = name
	f.Properties["KPIs"] = kpis
	a.areas.Append(f)
}

// addAreaParts adds one feature per polygon, numbering the ids when there
// is more than one.
func (a *assembler) addAreaParts(id, name string, mp orb.MultiPolygon, kpis map[string]any) {
	for i, poly := range mp {
		partID := id
		if len(mp) > 1 {
			partID = fmt.Sprintf("%s (%d of %d)", id, i+1, len(mp))
		}
		a.addArea(partID, name, poly, kpis)
	}
}

func (a *assembler) addBuilding(b *esdl.Asset) {
	g, ok := b.Geometry.(*esdl.Polygon)
	if !ok || b.Kind == esdl.KindBuildingUnit {
		return
	}
	f := geojson.NewFeature(g.Orb())
	f.Properties["id"] = b.ID
	f.Properties["name"] = b.Name
	f.Properties["KPIs"] = buildingKPIs(a.es, b)
	a.buildings.Append(f)
}

func wktMessage(kind string, w *esdl.WKT, name, boundaryType string) notify.Message {
	return notify.Message{Kind: kind, Payload: map[string]any{
		"info-type":     "WKT",
		"boundary":      w.Value,
		"crs":           w.CRS,
		"color":         "grey",
		"name":          name,
		"boundary_type": boundaryType,
	}}
}

// orbGeometry converts the non polygonal geometry kinds for the synthesizer,
// which rejects them.
func orbGeometry(g esdl.Geometry) orb.Geometry {
	switch v := g.(type) {
	case *esdl.Point:
		return v.OrbPoint()
	case *esdl.Line:
		ls := make(orb.LineString, 0, len(v.Points))
		for _, p := range v.Points {
			ls = append(ls, p.OrbPoint())
		}
		return ls
	default:
		return orb.Collection{}
	}
}
