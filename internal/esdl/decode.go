package esdl

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Document mirrors the nested JSON rendering of an ESDL energy system.
type Document struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Carriers []Carrier `json:"carriers,omitempty"`
	Sectors  []Sector  `json:"sectors,omitempty"`
	Area     *AreaDoc  `json:"area"`
}

type AreaDoc struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	Scope     string         `json:"scope,omitempty"`
	Geometry  *GeometryDoc   `json:"geometry,omitempty"`
	KPIs      []KPIDoc       `json:"KPIs,omitempty"`
	Area      []AreaDoc      `json:"area,omitempty"`
	Asset     []AssetDoc     `json:"asset,omitempty"`
	Potential []PotentialDoc `json:"potential,omitempty"`
}

type AssetDoc struct {
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Geometry     *GeometryDoc   `json:"geometry,omitempty"`
	Port         []PortDoc      `json:"port,omitempty"`
	Asset        []AssetDoc     `json:"asset,omitempty"`
	Potential    []PotentialDoc `json:"potential,omitempty"`
	BuildingYear int            `json:"buildingYear,omitempty"`
	FloorArea    float64        `json:"floorArea,omitempty"`
	BuildingType []string       `json:"buildingType,omitempty"`
	KPIs         []KPIDoc       `json:"KPIs,omitempty"`
}

type PortDoc struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Carrier     string   `json:"carrier,omitempty"`
	Profile     string   `json:"profile,omitempty"`
	ConnectedTo []string `json:"connectedTo,omitempty"`
}

type PotentialDoc struct {
	Type     string       `json:"type,omitempty"`
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Geometry *GeometryDoc `json:"geometry,omitempty"`
}

type KPIDoc struct {
	Type  string  `json:"type,omitempty"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type PointDoc struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	CRS string  `json:"CRS,omitempty"`
}

type SubPolygonDoc struct {
	Point []PointDoc `json:"point"`
}

type GeometryDoc struct {
	Type     string          `json:"type"`
	Lat      float64         `json:"lat,omitempty"`
	Lon      float64         `json:"lon,omitempty"`
	CRS      string          `json:"CRS,omitempty"`
	Point    []PointDoc      `json:"point,omitempty"`
	Exterior *SubPolygonDoc  `json:"exterior,omitempty"`
	Interior []SubPolygonDoc `json:"interior,omitempty"`
	Polygon  []GeometryDoc   `json:"polygon,omitempty"`
	Value    string          `json:"value,omitempty"`
}

// Decode reads a JSON document into an arena. A missing system id is
// replaced by a random UUID.
func Decode(r io.Reader) (*EnergySystem, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode energy system: %w", err)
	}
	return FromDocument(doc)
}

func FromDocument(doc Document) (*EnergySystem, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		id = uuid.NewString()
	}
	es := New(id, doc.Name)
	es.Carriers = append(es.Carriers, doc.Carriers...)
	es.Sectors = append(es.Sectors, doc.Sectors...)

	if doc.Area == nil {
		return es, nil
	}

	d := decoder{es: es}
	if err := d.area("", *doc.Area); err != nil {
		return nil, err
	}
	for _, link := range d.links {
		if es.Port(link[1]) == nil {
			return nil, fmt.Errorf("%w: port %q connected to unknown port %q", ErrInvalidModel, link[0], link[1])
		}
		if err := es.Connect(link[0], link[1]); err != nil {
			return nil, err
		}
	}
	if err := es.Validate(); err != nil {
		return nil, err
	}
	return es, nil
}

type decoder struct {
	es    *EnergySystem
	links [][2]string
}

func (d *decoder) area(parent string, doc AreaDoc) error {
	geom, err := doc.Geometry.toGeometry()
	if err != nil {
		return fmt.Errorf("area %q: %w", doc.ID, err)
	}
	scope := strings.ToUpper(strings.TrimSpace(doc.Scope))
	if scope == "" {
		scope = ScopeUndefined
	}
	if _, err := d.es.AddArea(parent, Area{
		ID:       doc.ID,
		Name:     doc.Name,
		Scope:    scope,
		Geometry: geom,
		KPIs:     toKPIs(doc.KPIs),
	}); err != nil {
		return err
	}

	for _, sub := range doc.Area {
		if err := d.area(doc.ID, sub); err != nil {
			return err
		}
	}
	for _, a := range doc.Asset {
		if err := d.asset(doc.ID, a); err != nil {
			return err
		}
	}
	for _, p := range doc.Potential {
		if err := d.potential(doc.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) asset(parent string, doc AssetDoc) error {
	geom, err := doc.Geometry.toGeometry()
	if err != nil {
		return fmt.Errorf("asset %q: %w", doc.ID, err)
	}
	a, err := d.es.AddAsset(parent, Asset{
		ID:            doc.ID,
		Name:          doc.Name,
		Type:          doc.Type,
		Kind:          KindOf(doc.Type),
		Geometry:      geom,
		BuildingYear:  doc.BuildingYear,
		FloorArea:     doc.FloorArea,
		BuildingTypes: doc.BuildingType,
		KPIs:          toKPIs(doc.KPIs),
	})
	if err != nil {
		return err
	}

	for _, p := range doc.Port {
		dir, err := parseDirection(p.Type)
		if err != nil {
			return fmt.Errorf("port %q: %w", p.ID, err)
		}
		if _, err := d.es.AddPort(a.ID, Port{
			ID:        p.ID,
			Name:      p.Name,
			Direction: dir,
			Carrier:   p.Carrier,
			Profile:   p.Profile,
		}); err != nil {
			return err
		}
		for _, other := range p.ConnectedTo {
			d.links = append(d.links, [2]string{p.ID, other})
		}
	}

	if !a.IsBuilding() {
		if len(doc.Asset) > 0 || len(doc.Potential) > 0 {
			return fmt.Errorf("%w: %s %q cannot contain assets", ErrInvalidModel, doc.Type, doc.ID)
		}
		return nil
	}
	for _, child := range doc.Asset {
		if err := d.asset(a.ID, child); err != nil {
			return err
		}
	}
	for _, p := range doc.Potential {
		if err := d.potential(a.ID, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) potential(parent string, doc PotentialDoc) error {
	geom, err := doc.Geometry.toGeometry()
	if err != nil {
		return fmt.Errorf("potential %q: %w", doc.ID, err)
	}
	_, err = d.es.AddPotential(parent, Potential{
		ID:       doc.ID,
		Name:     doc.Name,
		Type:     doc.Type,
		Geometry: geom,
	})
	return err
}

func parseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inport", "in":
		return InPort, nil
	case "outport", "out":
		return OutPort, nil
	default:
		return 0, fmt.Errorf("%w: unknown port type %q", ErrInvalidModel, s)
	}
}

func toKPIs(docs []KPIDoc) []KPI {
	if len(docs) == 0 {
		return nil
	}
	out := make([]KPI, 0, len(docs))
	for _, k := range docs {
		out = append(out, KPI{
			Name:         k.Name,
			Value:        k.Value,
			Distribution: strings.EqualFold(k.Type, "DistributionKPI"),
		})
	}
	return out
}

func (g *GeometryDoc) toGeometry() (Geometry, error) {
	if g == nil {
		return nil, nil
	}
	switch strings.ToLower(g.Type) {
	case "point":
		return &Point{Lat: g.Lat, Lon: g.Lon, CRS: g.CRS}, nil
	case "line":
		return &Line{Points: toPoints(g.Point)}, nil
	case "polygon":
		return g.toPolygon()
	case "multipolygon":
		mp := &MultiPolygon{}
		for i := range g.Polygon {
			p, err := g.Polygon[i].toPolygon()
			if err != nil {
				return nil, err
			}
			mp.Polygons = append(mp.Polygons, *p)
		}
		return mp, nil
	case "wkt":
		return &WKT{Value: g.Value, CRS: g.CRS}, nil
	default:
		return nil, fmt.Errorf("%w: unknown geometry type %q", ErrInvalidModel, g.Type)
	}
}

func (g *GeometryDoc) toPolygon() (*Polygon, error) {
	if g.Exterior == nil {
		return nil, fmt.Errorf("%w: polygon without exterior", ErrInvalidModel)
	}
	p := &Polygon{Exterior: toPoints(g.Exterior.Point), CRS: g.CRS}
	for _, hole := range g.Interior {
		p.Interior = append(p.Interior, toPoints(hole.Point))
	}
	return p, nil
}

func toPoints(docs []PointDoc) []Point {
	out := make([]Point, 0, len(docs))
	for _, p := range docs {
		out = append(out, Point{Lat: p.Lat, Lon: p.Lon, CRS: p.CRS})
	}
	return out
}
