package geometry

import "math"

// RD New (EPSG:28992) reference point: Amersfoort.
const (
	rdX0   = 155000.0
	rdY0   = 463000.0
	wgsPhi = 52.15517440
	wgsLam = 5.38720621
)

var (
	rdKp  = []float64{0, 2, 0, 2, 0, 2, 1, 4, 2, 4, 1}
	rdKq  = []float64{1, 0, 2, 1, 3, 2, 0, 0, 3, 1, 1}
	rdKpq = []float64{3235.65389, -32.58297, -0.24750, -0.84978, -0.06550, -0.01709, -0.00738, 0.00530, -0.00039, 0.00033, -0.00012}

	rdLp  = []float64{1, 1, 1, 3, 1, 3, 0, 3, 1, 0, 2, 5}
	rdLq  = []float64{0, 1, 2, 0, 3, 1, 1, 2, 4, 2, 0, 0}
	rdLpq = []float64{5260.52916, 105.94684, 2.45656, -0.81885, 0.05594, -0.05607, 0.01199, -0.00256, 0.00128, 0.00022, -0.00022, 0.00026}
)

// RDToWGS84 converts Dutch RD New coordinates to WGS84 using the
// Schreutelkamp/Strang van Hees polynomial. The result is [lat, lon].
func RDToWGS84(x, y float64) [2]float64 {
	dX := 1e-5 * (x - rdX0)
	dY := 1e-5 * (y - rdY0)

	var sumN float64
	for i := range rdKpq {
		sumN += rdKpq[i] * math.Pow(dX, rdKp[i]) * math.Pow(dY, rdKq[i])
	}
	var sumE float64
	for i := range rdLpq {
		sumE += rdLpq[i] * math.Pow(dX, rdLp[i]) * math.Pow(dY, rdLq[i])
	}

	return [2]float64{wgsPhi + sumN/3600, wgsLam + sumE/3600}
}
