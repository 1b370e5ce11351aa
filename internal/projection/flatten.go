package projection

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
)

// LocateFunc resolves a port id to its asset and drawing coordinate.
type LocateFunc func(portID string) (esdl.Located, error)

type flattener struct {
	log        zerolog.Logger
	es         *esdl.EnergySystem
	locate     LocateFunc
	summarizer Summarizer
	res        Result
}

func newFlattener(log zerolog.Logger, es *esdl.EnergySystem, locate LocateFunc, s Summarizer) *flattener {
	if s == nil {
		s = BasicSummarizer{}
	}
	if locate == nil {
		locate = es.Locate
	}
	return &flattener{log: log, es: es, locate: locate, summarizer: s}
}

func (f *flattener) alert(msg string) {
	f.res.Alerts = append(f.res.Alerts, msg)
}

func (f *flattener) crumb(kind, id, name string, level int) {
	f.res.Breadcrumbs = append(f.res.Breadcrumbs, Breadcrumb{Kind: kind, ID: id, Name: name, Level: level})
}

// area visits an area, its sub-areas, its assets and then its potentials.
func (f *flattener) area(a *esdl.Area, editor bool, level int) {
	f.crumb("Area", a.ID, a.Name, level)

	for _, id := range a.Areas {
		if sub := f.es.Area(id); sub != nil {
			f.area(sub, editor, level+1)
		}
	}

	for _, id := range a.Assets {
		asset := f.es.Asset(id)
		switch {
		case asset == nil:
		case asset.IsBuilding():
			f.building(asset, editor, level+1)
		case asset.IsEnergyAsset():
			f.areaAsset(asset)
		}
	}

	for _, id := range a.Potentials {
		if p := f.es.Potential(id); p != nil {
			f.potential(p, true)
		}
	}
}

func (f *flattener) building(b *esdl.Asset, editor bool, level int) {
	f.crumb("Building", b.ID, b.Name, level)

	ref := buildingRef(f.es, b)
	if b.Kind == esdl.KindBuilding || b.Kind == esdl.KindAggregatedBuilding {
		feature := BuildingFeature{
			Name:      b.Name,
			ID:        b.ID,
			Type:      b.Type,
			HasAssets: f.hasEnergyAssets(b),
			KPIs:      buildingKPIs(f.es, b),
		}
		switch g := b.Geometry.(type) {
		case *esdl.Point:
			feature.Shape = ShapePoint
			feature.LatLon = Coord{g.Lat, g.Lon}
			f.res.Buildings = append(f.res.Buildings, feature)
		case *esdl.Polygon:
			feature.Shape = ShapePolygon
			feature.Rings = g.Orb()
			f.res.Buildings = append(f.res.Buildings, feature)
		}
	}

	for _, id := range b.Assets {
		asset := f.es.Asset(id)
		switch {
		case asset == nil:
		case asset.IsBuilding():
			f.building(asset, editor, level+1)
		default:
			f.buildingAsset(asset, b, ref, editor)
		}
	}

	if editor {
		for _, id := range b.Potentials {
			if p := f.es.Potential(id); p != nil {
				f.potential(p, false)
			}
		}
	}
}

func (f *flattener) hasEnergyAssets(b *esdl.Asset) bool {
	for _, id := range b.Assets {
		a := f.es.Asset(id)
		if a == nil {
			continue
		}
		if a.IsEnergyAsset() {
			return true
		}
		if a.IsBuilding() && f.hasEnergyAssets(a) {
			return true
		}
	}
	return false
}

func (f *flattener) buildingAsset(a, b *esdl.Asset, ref *geometry.LatLon, editor bool) {
	ports := make([]PortSummary, 0, len(a.Ports))
	for _, pid := range a.Ports {
		if p := f.es.Port(pid); p != nil {
			ports = append(ports, PortSummary{
				Name:   p.Name,
				ID:     p.ID,
				Type:   p.Direction.String(),
				ConnTo: append([]string{}, p.ConnectedTo...),
			})
		}
	}

	var coord *geometry.LatLon
	switch g := a.Geometry.(type) {
	case nil:
	case *esdl.Point:
		coord = &geometry.LatLon{Lat: g.Lat, Lon: g.Lon}
		if editor {
			f.res.Features = append(f.res.Features, Feature{
				Shape:      ShapePoint,
				Category:   CategoryAsset,
				Name:       a.Name,
				ID:         a.ID,
				Type:       a.Type,
				LatLon:     Coord{g.Lat, g.Lon},
				Ports:      ports,
				Capability: a.Capability(),
			})
		}
	default:
		f.log.Warn().Err(ErrUnsupportedGeometry).Str("asset_id", a.ID).Str("building_id", b.ID).Msg("skipping asset")
		f.alert("Assets within buildings with geometry other than Point are not supported")
	}

	local := endpoint{asset: a, coord: coord, building: b, buildingRef: ref}
	f.connectPorts(a, local, editor)
}

func (f *flattener) areaAsset(a *esdl.Asset) {
	ports := make([]PortSummary, 0, len(a.Ports))
	for _, pid := range a.Ports {
		p := f.es.Port(pid)
		if p == nil {
			continue
		}
		ports = append(ports, PortSummary{
			Name:    p.Name,
			ID:      p.ID,
			Type:    p.Direction.String(),
			ConnTo:  append([]string{}, p.ConnectedTo...),
			Profile: f.summarizer.PortProfile(f.es, p),
			Carrier: carrierOf(p),
		})

		own, err := f.locate(p.ID)
		if err != nil {
			f.log.Warn().Err(err).Str("port_id", p.ID).Msg("locate own port failed")
			f.alert(fmt.Sprintf("port %s of %s could not be located", p.ID, a.ID))
			continue
		}
		f.connectPort(p, endpoint{asset: a, coord: own.Coord}, false)
	}

	feature := Feature{Category: CategoryAsset, Name: a.Name, ID: a.ID, Type: a.Type, Ports: ports}
	switch g := a.Geometry.(type) {
	case *esdl.Point:
		feature.Shape = ShapePoint
		feature.LatLon = Coord{g.Lat, g.Lon}
		feature.Capability = a.Capability()
	case *esdl.Line:
		feature.Shape = ShapeLine
		feature.Path = g.LatLonPairs()
	case *esdl.Polygon:
		feature.Shape = ShapePolygon
		feature.Path = g.LatLonPairs()
		feature.Capability = a.Capability()
	default:
		return
	}
	f.res.Features = append(f.res.Features, feature)
}

// potential renders a potential. Polygons are only drawn at area level.
func (f *flattener) potential(p *esdl.Potential, polygons bool) {
	feature := Feature{Category: CategoryPotential, Name: p.Name, ID: p.ID, Type: p.Type}
	switch g := p.Geometry.(type) {
	case *esdl.Point:
		feature.Shape = ShapePoint
		feature.LatLon = Coord{g.Lat, g.Lon}
	case *esdl.Polygon:
		if !polygons {
			return
		}
		feature.Shape = ShapePolygon
		feature.Path = g.LatLonPairs()
	default:
		return
	}
	f.res.Features = append(f.res.Features, feature)
}

func (f *flattener) connectPorts(a *esdl.Asset, local endpoint, editor bool) {
	for _, pid := range a.Ports {
		if p := f.es.Port(pid); p != nil {
			f.connectPort(p, local, editor)
		}
	}
}

func (f *flattener) connectPort(p *esdl.Port, local endpoint, editor bool) {
	local.port = p
	for _, rid := range p.ConnectedTo {
		remote, err := f.locate(rid)
		if err != nil {
			f.log.Warn().Err(err).Str("port_id", p.ID).Str("remote_port_id", rid).Msg("locate remote port failed")
			f.alert(fmt.Sprintf("connection from %s to %s could not be resolved", p.ID, rid))
			continue
		}
		rp := f.es.Port(rid)
		if rp == nil {
			rp = &esdl.Port{ID: rid}
		}
		conn, emit := resolve(f.es, local, remote, rp, editor)
		if emit {
			f.res.Connections = append(f.res.Connections, conn)
		}
	}
}

// buildingKPIs lists the type of the largest building unit, the building
// year and floor area when set, and the building's own KPIs.
func buildingKPIs(es *esdl.EnergySystem, b *esdl.Asset) map[string]any {
	kpis := make(map[string]any)

	var largest float64
	var largestType string
	for _, id := range b.Assets {
		u := es.Asset(id)
		if u == nil || u.Kind != esdl.KindBuildingUnit {
			continue
		}
		if u.FloorArea > largest {
			largest = u.FloorArea
			largestType = strings.Join(u.BuildingTypes, ", ")
		}
	}
	if largestType != "" {
		kpis["buildingType"] = largestType
	}
	if b.BuildingYear > 0 {
		kpis["buildingYear"] = b.BuildingYear
	}
	if b.FloorArea > 0 {
		kpis["floorArea"] = b.FloorArea
	}
	for _, k := range b.KPIs {
		kpis[k.Name] = k.Value
	}
	return kpis
}
