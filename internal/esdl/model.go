package esdl

import (
	"errors"
	"fmt"
)

// ErrInvalidModel wraps every structural problem found while building or
// decoding an energy system.
var ErrInvalidModel = errors.New("esdl: invalid model")

// ScopeUndefined is the area scope that never triggers a boundary lookup.
const ScopeUndefined = "UNDEFINED"

type Kind uint8

const (
	KindAsset Kind = iota
	KindEnergyAsset
	KindBuilding
	KindAggregatedBuilding
	KindBuildingUnit
)

func (k Kind) String() string {
	switch k {
	case KindEnergyAsset:
		return "EnergyAsset"
	case KindBuilding:
		return "Building"
	case KindAggregatedBuilding:
		return "AggregatedBuilding"
	case KindBuildingUnit:
		return "BuildingUnit"
	default:
		return "Asset"
	}
}

type Direction uint8

const (
	InPort Direction = iota + 1
	OutPort
)

func (d Direction) String() string {
	switch d {
	case InPort:
		return "InPort"
	case OutPort:
		return "OutPort"
	default:
		return "unknown"
	}
}

type KPI struct {
	Name         string
	Value        float64
	Distribution bool
}

type Carrier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Sector struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type Area struct {
	ID       string
	Name     string
	Scope    string
	Geometry Geometry
	KPIs     []KPI

	// Parent is the id of the area that lists this one in Areas.
	Parent     string
	Areas      []string
	Assets     []string
	Potentials []string
}

// Asset is any node placed in an area or a building. Buildings are assets
// with a building Kind and use the container fields below.
type Asset struct {
	ID       string
	Name     string
	Type     string
	Kind     Kind
	Geometry Geometry
	Ports    []string

	// Exactly one of Area and Building is set.
	Area     string
	Building string

	Assets        []string
	Potentials    []string
	BuildingYear  int
	FloorArea     float64
	BuildingTypes []string
	KPIs          []KPI
}

func (a *Asset) IsBuilding() bool {
	switch a.Kind {
	case KindBuilding, KindAggregatedBuilding, KindBuildingUnit:
		return true
	}
	return false
}

func (a *Asset) IsEnergyAsset() bool {
	return a.Kind == KindEnergyAsset
}

func (a *Asset) Roles() Role {
	return RolesOf(a.Type)
}

func (a *Asset) Capability() string {
	return a.Roles().Capability()
}

type Port struct {
	ID          string
	Name        string
	Direction   Direction
	Carrier     string
	Profile     string
	ConnectedTo []string
	Asset       string
}

type Potential struct {
	ID       string
	Name     string
	Type     string
	Geometry Geometry
	// Exactly one of Area and Building is set.
	Area     string
	Building string
}

// EnergySystem is an arena of model nodes addressed by id. Containment and
// port links are id lists, so the graph never holds pointer cycles.
type EnergySystem struct {
	ID       string
	Name     string
	Carriers []Carrier
	Sectors  []Sector
	Root     string

	areas      map[string]*Area
	assets     map[string]*Asset
	ports      map[string]*Port
	potentials map[string]*Potential
}

func New(id, name string) *EnergySystem {
	return &EnergySystem{
		ID:         id,
		Name:       name,
		areas:      make(map[string]*Area),
		assets:     make(map[string]*Asset),
		ports:      make(map[string]*Port),
		potentials: make(map[string]*Potential),
	}
}

func (es *EnergySystem) Area(id string) *Area           { return es.areas[id] }
func (es *EnergySystem) Asset(id string) *Asset         { return es.assets[id] }
func (es *EnergySystem) Port(id string) *Port           { return es.ports[id] }
func (es *EnergySystem) Potential(id string) *Potential { return es.potentials[id] }

// RootArea returns the top-level area or nil for an empty system.
func (es *EnergySystem) RootArea() *Area {
	if es.Root == "" {
		return nil
	}
	return es.areas[es.Root]
}

// Counts reports the number of areas, assets, ports and potentials.
func (es *EnergySystem) Counts() map[string]int {
	return map[string]int{
		"areas":      len(es.areas),
		"assets":     len(es.assets),
		"ports":      len(es.ports),
		"potentials": len(es.potentials),
	}
}

func (es *EnergySystem) exists(id string) bool {
	if _, ok := es.areas[id]; ok {
		return true
	}
	if _, ok := es.assets[id]; ok {
		return true
	}
	if _, ok := es.ports[id]; ok {
		return true
	}
	_, ok := es.potentials[id]
	return ok
}

func (es *EnergySystem) checkNewID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidModel)
	}
	if es.exists(id) {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidModel, id)
	}
	return nil
}

// AddArea attaches a to parent. An empty parent makes a the root area.
func (es *EnergySystem) AddArea(parent string, a Area) (*Area, error) {
	if err := es.checkNewID(a.ID); err != nil {
		return nil, err
	}
	a.Parent = parent
	a.Areas, a.Assets, a.Potentials = nil, nil, nil

	if parent == "" {
		if es.Root != "" {
			return nil, fmt.Errorf("%w: second root area %q", ErrInvalidModel, a.ID)
		}
		es.Root = a.ID
	} else {
		p := es.areas[parent]
		if p == nil {
			return nil, fmt.Errorf("%w: unknown parent area %q", ErrInvalidModel, parent)
		}
		p.Areas = append(p.Areas, a.ID)
	}

	node := a
	es.areas[a.ID] = &node
	return &node, nil
}

// AddAsset attaches a to the area or building named by parent.
func (es *EnergySystem) AddAsset(parent string, a Asset) (*Asset, error) {
	if err := es.checkNewID(a.ID); err != nil {
		return nil, err
	}
	a.Area, a.Building = "", ""
	a.Ports, a.Assets, a.Potentials = nil, nil, nil

	switch {
	case es.areas[parent] != nil:
		p := es.areas[parent]
		p.Assets = append(p.Assets, a.ID)
		a.Area = parent
	case es.assets[parent] != nil && es.assets[parent].IsBuilding():
		p := es.assets[parent]
		p.Assets = append(p.Assets, a.ID)
		a.Building = parent
	default:
		return nil, fmt.Errorf("%w: asset %q has no valid container %q", ErrInvalidModel, a.ID, parent)
	}

	node := a
	es.assets[a.ID] = &node
	return &node, nil
}

// AddPotential attaches p to the area or building named by parent.
func (es *EnergySystem) AddPotential(parent string, p Potential) (*Potential, error) {
	if err := es.checkNewID(p.ID); err != nil {
		return nil, err
	}
	p.Area, p.Building = "", ""

	switch {
	case es.areas[parent] != nil:
		a := es.areas[parent]
		a.Potentials = append(a.Potentials, p.ID)
		p.Area = parent
	case es.assets[parent] != nil && es.assets[parent].IsBuilding():
		b := es.assets[parent]
		b.Potentials = append(b.Potentials, p.ID)
		p.Building = parent
	default:
		return nil, fmt.Errorf("%w: potential %q has no valid container %q", ErrInvalidModel, p.ID, parent)
	}

	node := p
	es.potentials[p.ID] = &node
	return &node, nil
}

// AddPort attaches p to asset. Links are added later with Connect.
func (es *EnergySystem) AddPort(asset string, p Port) (*Port, error) {
	if err := es.checkNewID(p.ID); err != nil {
		return nil, err
	}
	owner := es.assets[asset]
	if owner == nil {
		return nil, fmt.Errorf("%w: port %q on unknown asset %q", ErrInvalidModel, p.ID, asset)
	}
	if p.Direction != InPort && p.Direction != OutPort {
		return nil, fmt.Errorf("%w: port %q has no direction", ErrInvalidModel, p.ID)
	}
	p.Asset = asset
	p.ConnectedTo = nil
	owner.Ports = append(owner.Ports, p.ID)

	node := p
	es.ports[p.ID] = &node
	return &node, nil
}

// Connect links two ports in both directions. Linking an already linked
// pair is a no-op.
func (es *EnergySystem) Connect(a, b string) error {
	pa, pb := es.ports[a], es.ports[b]
	if pa == nil || pb == nil {
		return fmt.Errorf("%w: connect %q to %q: unknown port", ErrInvalidModel, a, b)
	}
	if pa.Direction == pb.Direction {
		return fmt.Errorf("%w: connect %q to %q: both are %s", ErrInvalidModel, a, b, pa.Direction)
	}
	if !contains(pa.ConnectedTo, b) {
		pa.ConnectedTo = append(pa.ConnectedTo, b)
	}
	if !contains(pb.ConnectedTo, a) {
		pb.ConnectedTo = append(pb.ConnectedTo, a)
	}
	return nil
}

// Validate checks the containment back-references and link symmetry.
func (es *EnergySystem) Validate() error {
	for id, a := range es.areas {
		if a.Parent == "" {
			if es.Root != id {
				return fmt.Errorf("%w: area %q has no parent", ErrInvalidModel, id)
			}
			continue
		}
		p := es.areas[a.Parent]
		if p == nil || !contains(p.Areas, id) {
			return fmt.Errorf("%w: area %q not listed by parent %q", ErrInvalidModel, id, a.Parent)
		}
	}
	for id, a := range es.assets {
		var listed bool
		switch {
		case a.Area != "" && a.Building == "":
			if p := es.areas[a.Area]; p != nil {
				listed = contains(p.Assets, id)
			}
		case a.Building != "" && a.Area == "":
			if p := es.assets[a.Building]; p != nil {
				listed = contains(p.Assets, id)
			}
		}
		if !listed {
			return fmt.Errorf("%w: asset %q not listed by its container", ErrInvalidModel, id)
		}
	}
	for id, p := range es.ports {
		for _, other := range p.ConnectedTo {
			o := es.ports[other]
			if o == nil || !contains(o.ConnectedTo, id) {
				return fmt.Errorf("%w: link %q -> %q is not symmetric", ErrInvalidModel, id, other)
			}
			if o.Direction == p.Direction {
				return fmt.Errorf("%w: link %q -> %q joins two %s ports", ErrInvalidModel, id, other, p.Direction)
			}
		}
	}
	return nil
}

// ContainingBuilding returns the building that directly holds asset id, or nil.
func (es *EnergySystem) ContainingBuilding(id string) *Asset {
	a := es.assets[id]
	if a == nil || a.Building == "" {
		return nil
	}
	return es.assets[a.Building]
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
