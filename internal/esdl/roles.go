package esdl

import "strings"

// Role is a set of asset categories. One asset class can carry several.
type Role uint8

const (
	RoleProducer Role = 1 << iota
	RoleConsumer
	RoleConversion
	RoleStorage
	RoleTransport
	RoleConnection
)

func (r Role) Has(other Role) bool {
	return r&other != 0
}

// Capability names as the map client knows them.
const (
	CapabilityProducer   = "Producer"
	CapabilityConsumer   = "Consumer"
	CapabilityStorage    = "Storage"
	CapabilityConversion = "Conversion"
	CapabilityTransport  = "Transport"
	CapabilityNone       = "none"
)

// Capability picks the single label used for marker styling.
func (r Role) Capability() string {
	switch {
	case r.Has(RoleProducer):
		return CapabilityProducer
	case r.Has(RoleConsumer):
		return CapabilityConsumer
	case r.Has(RoleStorage):
		return CapabilityStorage
	case r.Has(RoleConversion):
		return CapabilityConversion
	case r.Has(RoleTransport):
		return CapabilityTransport
	default:
		return CapabilityNone
	}
}

const connection = RoleConnection | RoleTransport

var classRoles = map[string]Role{
	// producers
	"producer":           RoleProducer,
	"genericproducer":    RoleProducer,
	"aggregatedproducer": RoleProducer,
	"pvpanel":            RoleProducer,
	"pvinstallation":     RoleProducer,
	"pvpark":             RoleProducer,
	"windturbine":        RoleProducer,
	"windpark":           RoleProducer,
	"geothermalsource":   RoleProducer,
	"residualheatsource": RoleProducer,
	"solarcollector":     RoleProducer,
	"import":             RoleProducer,
	"gasproducer":        RoleProducer,
	"sourceproducer":     RoleProducer,
	"pvtinstallation":    RoleProducer,
	"watertopower":       RoleProducer,

	// consumers
	"consumer":           RoleConsumer,
	"genericconsumer":    RoleConsumer,
	"aggregatedconsumer": RoleConsumer,
	"heatingdemand":      RoleConsumer,
	"electricitydemand":  RoleConsumer,
	"gasdemand":          RoleConsumer,
	"coolingdemand":      RoleConsumer,
	"mobilitydemand":     RoleConsumer,
	"export":             RoleConsumer,
	"losses":             RoleConsumer,
	"evchargingstation":  RoleConsumer,
	"sinkconsumer":       RoleConsumer,

	// conversion
	"conversion":           RoleConversion,
	"genericconversion":    RoleConversion,
	"aggregatedconversion": RoleConversion,
	"heatpump":             RoleConversion,
	"gasheater":            RoleConversion,
	"electricboiler":       RoleConversion,
	"chp":                  RoleConversion,
	"cogeneration":         RoleConversion,
	"powerplant":           RoleConversion,
	"fuelcell":             RoleConversion,
	"electrolyzer":         RoleConversion,
	"powertox":             RoleConversion,
	"xtopower":             RoleConversion,
	"airco":                RoleConversion,
	"fermentationplant":    RoleConversion,
	"gasconversion":        RoleConversion,
	"biomassheater":        RoleConversion,
	"roomheater":           RoleConversion,
	"ccs":                  RoleConversion,

	// storage
	"storage":           RoleStorage,
	"genericstorage":    RoleStorage,
	"aggregatedstorage": RoleStorage,
	"battery":           RoleStorage,
	"heatstorage":       RoleStorage,
	"gasstorage":        RoleStorage,
	"pumpedhydropower":  RoleStorage,
	"utes":              RoleStorage,
	"waterbuffer":       RoleStorage,

	// transport
	"transport":             RoleTransport,
	"generictransport":      RoleTransport,
	"aggregatedtransport":   RoleTransport,
	"electricitycable":      RoleTransport,
	"pipe":                  RoleTransport,
	"pump":                  RoleTransport,
	"valve":                 RoleTransport,
	"checkvalve":            RoleTransport,
	"transformer":           RoleTransport,
	"heatexchange":          RoleTransport,
	"compressor":            RoleTransport,
	"pressurereducingvalve": RoleTransport,
	"switch":                RoleTransport,
	"circuitbreaker":        RoleTransport,
	"energynetwork":         RoleTransport,
	"heatnetwork":           RoleTransport,
	"electricitynetwork":    RoleTransport,
	"gasnetwork":            RoleTransport,

	// connections
	"joint":       connection,
	"bus":         connection,
	"econnection": connection,
	"gconnection": connection,
	"hconnection": connection,
	"connection":  connection,
}

// RolesOf returns the categories of an asset class name, case insensitive.
// Unknown classes have no roles.
func RolesOf(class string) Role {
	return classRoles[strings.ToLower(strings.TrimSpace(class))]
}

// IsBuildingClass reports whether class is one of the building kinds.
func IsBuildingClass(class string) bool {
	_, ok := buildingKinds[strings.ToLower(strings.TrimSpace(class))]
	return ok
}

var buildingKinds = map[string]Kind{
	"building":           KindBuilding,
	"genericbuilding":    KindBuilding,
	"aggregatedbuilding": KindAggregatedBuilding,
	"buildingunit":       KindBuildingUnit,
}

// Asset classes that carry no ports. Everything else that is not a building
// is an energy asset, with or without a known role.
var plainAssets = map[string]struct{}{
	"insulation":    {},
	"glass":         {},
	"compoundasset": {},
}

// KindOf derives the node kind from an asset class name. Unknown classes are
// energy assets without roles.
func KindOf(class string) Kind {
	c := strings.ToLower(strings.TrimSpace(class))
	if k, ok := buildingKinds[c]; ok {
		return k
	}
	if _, ok := plainAssets[c]; ok {
		return KindAsset
	}
	return KindEnergyAsset
}
