package esdl

// WalkAssets calls fn for every asset below the area, depth first in model
// order. Building contents are visited right after their building.
func (es *EnergySystem) WalkAssets(areaID string, fn func(*Asset)) {
	a := es.areas[areaID]
	if a == nil {
		return
	}
	for _, sub := range a.Areas {
		es.WalkAssets(sub, fn)
	}
	for _, id := range a.Assets {
		es.walkAsset(id, fn)
	}
}

func (es *EnergySystem) walkAsset(id string, fn func(*Asset)) {
	a := es.assets[id]
	if a == nil {
		return
	}
	fn(a)
	for _, child := range a.Assets {
		es.walkAsset(child, fn)
	}
}

// Geometries returns every geometry set in the area subtree: the areas
// themselves, their assets and their potentials.
func (es *EnergySystem) Geometries(areaID string) []Geometry {
	var out []Geometry
	var visit func(id string)
	visit = func(id string) {
		a := es.areas[id]
		if a == nil {
			return
		}
		if a.Geometry != nil {
			out = append(out, a.Geometry)
		}
		for _, sub := range a.Areas {
			visit(sub)
		}
		for _, pid := range a.Potentials {
			if p := es.potentials[pid]; p != nil && p.Geometry != nil {
				out = append(out, p.Geometry)
			}
		}
	}
	visit(areaID)

	es.WalkAssets(areaID, func(a *Asset) {
		if a.Geometry != nil {
			out = append(out, a.Geometry)
		}
		for _, pid := range a.Potentials {
			if p := es.potentials[pid]; p != nil && p.Geometry != nil {
				out = append(out, p.Geometry)
			}
		}
	})
	return out
}
