package projection

import (
	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
)

// relation is the containment relationship between the two assets of a link.
type relation int

const (
	areaToArea relation = iota
	areaToBuilding
	sameBuilding
	crossBuilding
	buildingToArea
	numRelations
)

func (r relation) String() string {
	switch r {
	case areaToArea:
		return "area_to_area"
	case areaToBuilding:
		return "area_to_building"
	case sameBuilding:
		return "same_building"
	case crossBuilding:
		return "cross_building"
	case buildingToArea:
		return "building_to_area"
	default:
		return "unknown"
	}
}

// target picks which coordinate stands in for the remote endpoint.
type target int

const (
	remoteCoord target = iota
	remoteBuildingRef
	leftEdge
)

type rule struct {
	target target
	// localBuildingRef moves the local endpoint to its own building's
	// reference coordinate.
	localBuildingRef bool
	emit             bool
}

const (
	mapView = iota
	editorView
)

var decisions = [2][numRelations]rule{
	mapView: {
		areaToArea:     {target: remoteCoord, emit: true},
		areaToBuilding: {target: remoteBuildingRef, emit: true},
		sameBuilding:   {target: remoteCoord},
		crossBuilding:  {target: remoteBuildingRef, localBuildingRef: true, emit: true},
		buildingToArea: {target: remoteCoord},
	},
	editorView: {
		areaToArea:     {target: remoteCoord, emit: true},
		areaToBuilding: {target: remoteBuildingRef, emit: true},
		sameBuilding:   {target: remoteCoord, emit: true},
		crossBuilding:  {target: leftEdge, emit: true},
		buildingToArea: {target: leftEdge, emit: true},
	},
}

func ruleFor(editor bool, rel relation) rule {
	if editor {
		return decisions[editorView][rel]
	}
	return decisions[mapView][rel]
}

func relationOf(local, remote *esdl.Asset) relation {
	switch {
	case local == nil && remote == nil:
		return areaToArea
	case local == nil:
		return areaToBuilding
	case remote == nil:
		return buildingToArea
	case local.ID == remote.ID:
		return sameBuilding
	default:
		return crossBuilding
	}
}

// endpoint is the local side of a link.
type endpoint struct {
	port  *esdl.Port
	asset *esdl.Asset
	coord *geometry.LatLon
	// building is the containing building, nil for area level assets.
	building    *esdl.Asset
	buildingRef *geometry.LatLon
}

// resolve turns the link from local to the remote port into a Connection.
// The bool reports whether the link is drawn from this side.
func resolve(es *esdl.EnergySystem, local endpoint, remote esdl.Located, remotePort *esdl.Port, editor bool) (Connection, bool) {
	remoteBuilding := es.ContainingBuilding(remote.Asset.ID)
	rel := relationOf(local.building, remoteBuilding)
	r := ruleFor(editor, rel)

	from := local.coord
	to := remote.Coord
	switch r.target {
	case remoteBuildingRef:
		if ref := buildingRef(es, remoteBuilding); ref != nil {
			to = ref
			if r.localBuildingRef && local.buildingRef != nil {
				from = local.buildingRef
			}
		}
	case leftEdge:
		to = nil
		if local.coord != nil {
			to = &geometry.LatLon{Lat: local.coord.Lat, Lon: 0}
		}
	}

	return Connection{
		FromPort:    local.port.ID,
		FromCarrier: carrierOf(local.port),
		FromAsset:   local.asset.ID,
		FromCoord:   coordOf(from),
		ToPort:      remotePort.ID,
		ToCarrier:   carrierOf(remotePort),
		ToAsset:     remote.Asset.ID,
		ToCoord:     coordOf(to),
	}, r.emit
}

// buildingRef is the coordinate representing a building as a whole. A
// building unit always takes its containing building's coordinate, even when
// it has geometry of its own.
func buildingRef(es *esdl.EnergySystem, b *esdl.Asset) *geometry.LatLon {
	for b != nil && b.Kind == esdl.KindBuildingUnit {
		b = es.ContainingBuilding(b.ID)
	}
	if b == nil {
		return nil
	}
	return esdl.ReferenceCoord(b.Geometry)
}

func carrierOf(p *esdl.Port) *string {
	if p == nil || p.Carrier == "" {
		return nil
	}
	c := p.Carrier
	return &c
}
