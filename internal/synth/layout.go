package synth

import "mapeditor/core-go/internal/esdl"

// CanvasSize is the width and height of the building editor canvas.
const CanvasSize = 500.0

type category int

const (
	catConnection category = iota
	catTransport
	catProduction
	catConsumption
	numCategories
)

// categories returns the layout columns an asset belongs to. Connections
// never also count as plain transport.
func categories(r esdl.Role) []category {
	var out []category
	switch {
	case r.Has(esdl.RoleConnection):
		out = append(out, catConnection)
	case r.Has(esdl.RoleTransport):
		out = append(out, catTransport)
	}
	if r.Has(esdl.RoleProducer) || r.Has(esdl.RoleConversion) || r.Has(esdl.RoleStorage) {
		out = append(out, catProduction)
	}
	if r.Has(esdl.RoleConsumer) {
		out = append(out, catConsumption)
	}
	return out
}

// InBuilding lays out the assets of a building without geometry on the
// building canvas: one column per non-empty category, in the order
// connections, transport, production/conversion/storage, consumption, and
// evenly spaced rows within a column. An asset in several categories is
// placed once per category and keeps the last placement. Nested buildings
// get their own canvas.
func (s *Synthesizer) InBuilding(es *esdl.EnergySystem, buildingID string) int {
	b := es.Asset(buildingID)
	if b == nil || !b.IsBuilding() {
		return 0
	}

	var counts [numCategories]int
	for _, id := range b.Assets {
		if a := es.Asset(id); a != nil {
			for _, c := range categories(a.Roles()) {
				counts[c]++
			}
		}
	}

	var columns int
	for _, n := range counts {
		if n > 0 {
			columns++
		}
	}

	placed := 0
	if columns > 0 {
		columnWidth := CanvasSize / float64(columns+1)
		var columnX, rowHeight [numCategories]float64
		idx := 1
		for c, n := range counts {
			if n == 0 {
				continue
			}
			columnX[c] = float64(idx) * columnWidth
			rowHeight[c] = CanvasSize / float64(n+1)
			idx++
		}

		var rows [numCategories]int
		for _, id := range b.Assets {
			a := es.Asset(id)
			if a == nil || a.Geometry != nil {
				continue
			}
			var pt *esdl.Point
			for _, c := range categories(a.Roles()) {
				rows[c]++
				pt = &esdl.Point{Lat: float64(rows[c]) * rowHeight[c], Lon: columnX[c], CRS: esdl.CRSSimple}
			}
			if pt != nil {
				a.Geometry = pt
				placed++
			}
		}
	}

	for _, id := range b.Assets {
		if a := es.Asset(id); a != nil && a.IsBuilding() {
			placed += s.InBuilding(es, id)
		}
	}
	return placed
}
