package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// torsionNeighbors is the neighbourhood size of the torsion estimate.
const torsionNeighbors = 8

// curvatureStep is the finite-difference step of the curvature estimate.
const curvatureStep = 1e-3

// TorsionMagnitude reports the local phase-rotation drive at p: the magnitude
// of the difference between Φ(p) and the mean weight of the nearest centers.
// An empty field has no torsion.
func (s *Service) TorsionMagnitude(f *field.Field, p field.Point) (float64, error) {
	if f.Len() == 0 {
		return 0, nil
	}
	phi, err := s.eval.Phi(f, p)
	if err != nil {
		return 0, err
	}

	centers := f.Centers()
	metric := f.Metric()
	dists := make([]struct {
		sq  float64
		idx int
	}, len(centers))
	for i := range centers {
		sq, err := metric.SquaredDistance(p, centers[i].Position)
		if err != nil {
			return 0, err
		}
		dists[i].sq = sq
		dists[i].idx = i
	}
	sort.Slice(dists, func(a, b int) bool {
		if dists[a].sq != dists[b].sq {
			return dists[a].sq < dists[b].sq
		}
		return dists[a].idx < dists[b].idx
	})

	k := torsionNeighbors
	if k > len(dists) {
		k = len(dists)
	}
	var sum complex64
	for _, d := range dists[:k] {
		sum += centers[d.idx].Weight
	}
	mean := sum / complex(float32(k), 0)
	return field.Abs(phi - mean), nil
}

// ScalarCurvature estimates the Ricci scalar of the field-adapted metric
// g_ij(p) = g⁰_ij + α·|Φ(p)|²·δ_ij at p, by central finite differences of the
// Christoffel symbols. An empty field is flat.
func (s *Service) ScalarCurvature(f *field.Field, p field.Point) (float64, error) {
	if f.Len() == 0 {
		return 0, nil
	}
	if p.Dim() != f.Dim() {
		return 0, field.ErrDimensionMismatch
	}
	dim := f.Dim()

	gamma, err := s.christoffelAt(f, p)
	if err != nil {
		return 0, err
	}

	// ∂_k Γ at p, one axis at a time.
	dGamma := make([][][][]float64, dim)
	for a := 0; a < dim; a++ {
		plus, err := s.christoffelAt(f, shifted(p, a, curvatureStep))
		if err != nil {
			return 0, err
		}
		minus, err := s.christoffelAt(f, shifted(p, a, -curvatureStep))
		if err != nil {
			return 0, err
		}
		dGamma[a] = make([][][]float64, dim)
		for k := 0; k < dim; k++ {
			dGamma[a][k] = make([][]float64, dim)
			for i := 0; i < dim; i++ {
				dGamma[a][k][i] = make([]float64, dim)
				for j := 0; j < dim; j++ {
					dGamma[a][k][i][j] = (plus[k][i][j] - minus[k][i][j]) / (2 * curvatureStep)
				}
			}
		}
	}

	// R_ij = ∂_k Γ^k_ij − ∂_j Γ^k_ik + Γ^k_kl Γ^l_ij − Γ^k_jl Γ^l_ik.
	ricci := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		ricci[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			var r float64
			for k := 0; k < dim; k++ {
				r += dGamma[k][k][i][j] - dGamma[j][k][i][k]
				for l := 0; l < dim; l++ {
					r += gamma[k][k][l]*gamma[l][i][j] - gamma[k][j][l]*gamma[l][i][k]
				}
			}
			ricci[i][j] = r
		}
	}

	gInv, err := s.inverseMetricAt(f, p)
	if err != nil {
		return 0, err
	}
	var scalar float64
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			scalar += gInv.At(i, j) * ricci[i][j]
		}
	}
	if math.IsNaN(scalar) || math.IsInf(scalar, 0) {
		return 0, field.ErrNumericalBlowup
	}
	return scalar, nil
}

// adaptedMetricAt returns the field-adapted metric at q as a dense matrix.
func (s *Service) adaptedMetricAt(f *field.Field, q field.Point) (*mat.Dense, error) {
	dim := f.Dim()
	phi, err := s.eval.Phi(f, q)
	if err != nil {
		return nil, err
	}
	bump := s.cfg.Params.Alpha * field.AbsSq(phi)
	base := f.Metric()
	g := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			v := base.At(i, j)
			if i == j {
				v += bump
			}
			g.Set(i, j, v)
		}
	}
	return g, nil
}

func (s *Service) inverseMetricAt(f *field.Field, q field.Point) (*mat.Dense, error) {
	g, err := s.adaptedMetricAt(f, q)
	if err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(g); err != nil {
		return nil, field.ErrNumericalBlowup
	}
	return &inv, nil
}

// christoffelAt returns Γ^k_ij of the adapted metric at q, from central
// finite differences of the metric entries.
func (s *Service) christoffelAt(f *field.Field, q field.Point) ([][][]float64, error) {
	dim := f.Dim()
	gInv, err := s.inverseMetricAt(f, q)
	if err != nil {
		return nil, err
	}

	// dg[a][i][j] = ∂_a g_ij.
	dg := make([][][]float64, dim)
	for a := 0; a < dim; a++ {
		plus, err := s.adaptedMetricAt(f, shifted(q, a, curvatureStep))
		if err != nil {
			return nil, err
		}
		minus, err := s.adaptedMetricAt(f, shifted(q, a, -curvatureStep))
		if err != nil {
			return nil, err
		}
		dg[a] = make([][]float64, dim)
		for i := 0; i < dim; i++ {
			dg[a][i] = make([]float64, dim)
			for j := 0; j < dim; j++ {
				dg[a][i][j] = (plus.At(i, j) - minus.At(i, j)) / (2 * curvatureStep)
			}
		}
	}

	gamma := make([][][]float64, dim)
	for k := 0; k < dim; k++ {
		gamma[k] = make([][]float64, dim)
		for i := 0; i < dim; i++ {
			gamma[k][i] = make([]float64, dim)
			for j := 0; j < dim; j++ {
				var sum float64
				for l := 0; l < dim; l++ {
					sum += gInv.At(k, l) * (dg[i][l][j] + dg[j][l][i] - dg[l][i][j])
				}
				gamma[k][i][j] = sum / 2
			}
		}
	}
	return gamma, nil
}

func shifted(p field.Point, axis int, h float64) field.Point {
	q := p.Clone()
	q[axis] += float32(h)
	return q
}
