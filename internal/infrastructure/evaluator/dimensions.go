package evaluator

import (
	"encoding/binary"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// FractalDimension estimates the box-counting dimension of the center
// distribution over nScales logarithmically spaced box sizes in
// [scaleMin, scaleMax]. The estimate is the least-squares slope of log-count
// against log-radius, clamped into [2,3]. Fields with fewer than two centers
// return 0 (undefined).
func FractalDimension(f *field.Field, scaleMin, scaleMax float64, nScales int) float64 {
	centers := f.Centers()
	if len(centers) < 2 || nScales < 2 || scaleMin <= 0 || scaleMax <= scaleMin {
		return 0
	}

	logR := make([]float64, 0, nScales)
	logN := make([]float64, 0, nScales)
	step := (math.Log(scaleMax) - math.Log(scaleMin)) / float64(nScales-1)
	for i := 0; i < nScales; i++ {
		scale := math.Exp(math.Log(scaleMin) + float64(i)*step)
		count := boxCount(centers, f.Dim(), scale)
		logR = append(logR, math.Log(scale))
		logN = append(logN, math.Log(float64(count)))
	}

	_, slope := stat.LinearRegression(logR, logN, nil, false)
	dim := -slope
	if math.IsNaN(dim) {
		return 0
	}
	if dim < 2 {
		dim = 2
	}
	if dim > 3 {
		dim = 3
	}
	return dim
}

// boxCount counts occupied cells of a regular lattice with the given edge.
func boxCount(centers []field.Center, dim int, scale float64) int {
	occupied := make(map[string]struct{}, len(centers))
	key := make([]byte, 4*dim)
	for i := range centers {
		p := centers[i].Position
		for k := 0; k < dim; k++ {
			cell := int32(math.Floor(float64(p[k]) / scale))
			binary.LittleEndian.PutUint32(key[4*k:], uint32(cell))
		}
		occupied[string(key)] = struct{}{}
	}
	return len(occupied)
}

// CorrelationDimension estimates the Grassberger–Procaccia correlation
// dimension from pairwise Euclidean distances between centers: the slope of
// log C(r) against log r over radii spanning the bulk of the distance
// distribution. Fields with fewer than three centers return 0.
func CorrelationDimension(f *field.Field) float64 {
	centers := f.Centers()
	n := len(centers)
	if n < 3 {
		return 0
	}

	dists := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sq, err := centers[i].Position.SquaredEuclidean(centers[j].Position)
			if err != nil {
				return 0
			}
			if sq > 0 {
				dists = append(dists, math.Sqrt(sq))
			}
		}
	}
	if len(dists) < 2 {
		return 0
	}
	sort.Float64s(dists)

	// Radii between the 10th and 90th percentile keep the fit away from the
	// saturated tails of C(r).
	rLo := dists[len(dists)/10]
	rHi := dists[len(dists)*9/10]
	if rLo <= 0 || rHi <= rLo {
		return 0
	}

	const nRadii = 8
	total := float64(len(dists))
	logR := make([]float64, 0, nRadii)
	logC := make([]float64, 0, nRadii)
	step := (math.Log(rHi) - math.Log(rLo)) / float64(nRadii-1)
	for i := 0; i < nRadii; i++ {
		r := math.Exp(math.Log(rLo) + float64(i)*step)
		count := sort.SearchFloat64s(dists, r)
		if count == 0 {
			continue
		}
		logR = append(logR, math.Log(r))
		logC = append(logC, math.Log(float64(count)/total))
	}
	if len(logR) < 2 {
		return 0
	}

	_, slope := stat.LinearRegression(logR, logC, nil, false)
	if math.IsNaN(slope) || slope < 0 {
		return 0
	}
	return slope
}
