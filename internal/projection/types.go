package projection

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
)

var (
	ErrUnsupportedGeometry = errors.New("projection: unsupported geometry")
	ErrNotBuilding         = errors.New("projection: not a building")
)

const untitled = "Untitled Energysystem"

// Mode selects how a projection is rendered.
type Mode struct {
	// EditorView renders buildings as their own 500x500 canvas.
	EditorView bool
	// ForceRefresh re-runs a system that was already processed.
	ForceRefresh bool
	// BoundariesYear overrides the engine default for boundary lookups.
	BoundariesYear int
}

// Coord is a [lat, lon] pair, or null when a node has no usable position.
type Coord []float64

func coordOf(p *geometry.LatLon) Coord {
	if p == nil {
		return nil
	}
	return Coord{p.Lat, p.Lon}
}

type Shape string

const (
	ShapePoint   Shape = "point"
	ShapeLine    Shape = "line"
	ShapePolygon Shape = "polygon"
)

type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryPotential Category = "potential"
)

// Connection is one drawable port link.
type Connection struct {
	FromPort    string  `json:"from-port-id"`
	FromCarrier *string `json:"from-port-carrier"`
	FromAsset   string  `json:"from-asset-id"`
	FromCoord   Coord   `json:"from-asset-coord"`
	ToPort      string  `json:"to-port-id"`
	ToCarrier   *string `json:"to-port-carrier"`
	ToAsset     string  `json:"to-asset-id"`
	ToCoord     Coord   `json:"to-asset-coord"`
}

type ProfileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type PortSummary struct {
	Name    string        `json:"name"`
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	ConnTo  []string      `json:"conn_to"`
	Profile []ProfileInfo `json:"profile,omitempty"`
	Carrier *string       `json:"carrier,omitempty"`
}

// Feature is an asset or potential rendered on the map or a building canvas.
// Point shapes use LatLon, lines and polygons use Path.
type Feature struct {
	Shape      Shape         `json:"shape"`
	Category   Category      `json:"category"`
	Name       string        `json:"name"`
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	LatLon     Coord         `json:"latlng,omitempty"`
	Path       [][2]float64  `json:"path,omitempty"`
	Ports      []PortSummary `json:"ports,omitempty"`
	Capability string        `json:"capability,omitempty"`
}

// BuildingFeature is a building marker or outline. Outline rings are in
// GeoJSON [lon, lat] order.
type BuildingFeature struct {
	Shape     Shape          `json:"shape"`
	Name      string         `json:"name"`
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	LatLon    Coord          `json:"latlng,omitempty"`
	Rings     orb.Polygon    `json:"rings,omitempty"`
	HasAssets bool           `json:"hasAssets"`
	KPIs      map[string]any `json:"KPIs"`
}

type Breadcrumb struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// Result holds the flattened records of one traversal.
type Result struct {
	Breadcrumbs []Breadcrumb      `json:"area_bld_list"`
	Buildings   []BuildingFeature `json:"building_list"`
	Features    []Feature         `json:"asset_list"`
	Connections []Connection      `json:"conn_list"`
	Alerts      []string          `json:"alerts,omitempty"`
}

// Batch is the complete projection of one energy system.
type Batch struct {
	ESID          string                     `json:"es_id"`
	Title         string                     `json:"title"`
	Skipped       bool                       `json:"skipped"`
	AreaLayer     *geojson.FeatureCollection `json:"area_layer,omitempty"`
	BuildingLayer *geojson.FeatureCollection `json:"building_layer,omitempty"`
	Result
}

// BuildingInfo is the editor view of a single building.
type BuildingInfo struct {
	ID string `json:"id"`
	Result
}

type KPIEntry struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Distribution bool    `json:"distribution,omitempty"`
}

// Summarizer supplies the profile and KPI content attached to ports and areas.
type Summarizer interface {
	PortProfile(es *esdl.EnergySystem, p *esdl.Port) []ProfileInfo
	AreaKPIs(es *esdl.EnergySystem, a *esdl.Area) []KPIEntry
}

// BasicSummarizer copies the values already present on the model.
type BasicSummarizer struct{}

func (BasicSummarizer) PortProfile(_ *esdl.EnergySystem, p *esdl.Port) []ProfileInfo {
	if p == nil || p.Profile == "" {
		return nil
	}
	return []ProfileInfo{{ID: p.Profile}}
}

func (BasicSummarizer) AreaKPIs(_ *esdl.EnergySystem, a *esdl.Area) []KPIEntry {
	if a == nil || len(a.KPIs) == 0 {
		return nil
	}
	out := make([]KPIEntry, 0, len(a.KPIs))
	for _, k := range a.KPIs {
		out = append(out, KPIEntry{Name: k.Name, Value: k.Value, Distribution: k.Distribution})
	}
	return out
}
