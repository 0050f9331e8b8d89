package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MetricTensor is a symmetric positive-definite matrix inducing a Riemannian
// distance on the manifold, stored with its precomputed inverse and determinant.
// Entries are kept as float32 (the persistence unit); distance math runs in float64.
type MetricTensor struct {
	dim      int
	g        []float32 // row-major dim×dim
	gInv     []float32
	det      float32
	diagonal bool

	// minEig is the smallest eigenvalue of g, fixed at construction. It sets
	// the covering scale: for a non-diagonal metric the tightest direction can
	// be far below the smallest diagonal entry.
	minEig float64
}

// IdentityMetric returns the identity metric of the given dimension.
func IdentityMetric(dim int) (*MetricTensor, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: metric dimension %d", ErrInvalidParameter, dim)
	}
	m := &MetricTensor{
		dim:      dim,
		g:        make([]float32, dim*dim),
		gInv:     make([]float32, dim*dim),
		det:      1,
		diagonal: true,
		minEig:   1,
	}
	for i := 0; i < dim; i++ {
		m.g[i*dim+i] = 1
		m.gInv[i*dim+i] = 1
	}
	return m, nil
}

// DiagonalMetric returns a diagonal metric with the given positive scales.
func DiagonalMetric(scales []float32) (*MetricTensor, error) {
	dim := len(scales)
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty scale vector", ErrInvalidParameter)
	}
	m := &MetricTensor{
		dim:      dim,
		g:        make([]float32, dim*dim),
		gInv:     make([]float32, dim*dim),
		det:      1,
		diagonal: true,
	}
	det := 1.0
	minEig := math.Inf(1)
	for i, s := range scales {
		if !(s > 0) || !isFinite(s) {
			return nil, fmt.Errorf("%w: metric scale %v at axis %d", ErrInvalidParameter, s, i)
		}
		m.g[i*dim+i] = s
		m.gInv[i*dim+i] = float32(1 / float64(s))
		det *= float64(s)
		if float64(s) < minEig {
			minEig = float64(s)
		}
	}
	m.det = float32(det)
	m.minEig = minEig
	return m, nil
}

// NewMetric builds a metric from a row-major symmetric matrix, computing the
// inverse and determinant with a Cholesky factorization. A matrix that is not
// symmetric positive-definite is rejected.
func NewMetric(dim int, g []float32) (*MetricTensor, error) {
	if dim <= 0 || len(g) != dim*dim {
		return nil, fmt.Errorf("%w: metric of dimension %d needs %d entries, got %d",
			ErrInvalidParameter, dim, dim*dim, len(g))
	}
	diagonal := true
	data := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			v := g[i*dim+j]
			if !isFinite(v) {
				return nil, fmt.Errorf("%w: non-finite metric entry at (%d,%d)", ErrInvalidParameter, i, j)
			}
			if i != j && v != 0 {
				diagonal = false
			}
			if g[i*dim+j] != g[j*dim+i] {
				return nil, fmt.Errorf("%w: metric is not symmetric at (%d,%d)", ErrInvalidParameter, i, j)
			}
			data[i*dim+j] = float64(v)
		}
	}

	sym := mat.NewSymDense(dim, data)
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: metric is not positive-definite", ErrInvalidParameter)
	}
	minEig, ok := smallestEigenvalue(sym)
	if !ok || !(minEig > 0) {
		return nil, fmt.Errorf("%w: metric eigendecomposition", ErrInvalidParameter)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: metric inverse: %v", ErrInvalidParameter, err)
	}

	m := &MetricTensor{
		dim:      dim,
		g:        make([]float32, dim*dim),
		gInv:     make([]float32, dim*dim),
		det:      float32(chol.Det()),
		diagonal: diagonal,
		minEig:   minEig,
	}
	copy(m.g, g)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			m.gInv[i*dim+j] = float32(inv.At(i, j))
		}
	}
	return m, nil
}

// RestoreMetric rebuilds a metric from persisted entries, trusting the stored
// inverse and determinant so a save/load round trip is bitwise exact. Shape
// and finiteness are still validated.
func RestoreMetric(dim int, det float32, g, gInv []float32) (*MetricTensor, error) {
	if dim <= 0 || len(g) != dim*dim || len(gInv) != dim*dim {
		return nil, fmt.Errorf("%w: metric shape", ErrInvalidParameter)
	}
	if !(det > 0) || !isFinite(det) {
		return nil, fmt.Errorf("%w: metric determinant %v", ErrInvalidParameter, det)
	}
	diagonal := true
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			v := g[i*dim+j]
			if !isFinite(v) || !isFinite(gInv[i*dim+j]) {
				return nil, fmt.Errorf("%w: non-finite metric entry", ErrInvalidParameter)
			}
			if i != j && v != 0 {
				diagonal = false
			}
			if v != g[j*dim+i] {
				return nil, fmt.Errorf("%w: metric is not symmetric", ErrInvalidParameter)
			}
		}
	}
	minEig := math.Inf(1)
	if diagonal {
		for i := 0; i < dim; i++ {
			if v := float64(g[i*dim+i]); v < minEig {
				minEig = v
			}
		}
	} else {
		data := make([]float64, dim*dim)
		for i, v := range g {
			data[i] = float64(v)
		}
		var ok bool
		minEig, ok = smallestEigenvalue(mat.NewSymDense(dim, data))
		if !ok {
			return nil, fmt.Errorf("%w: metric eigendecomposition", ErrInvalidParameter)
		}
	}
	if !(minEig > 0) {
		return nil, fmt.Errorf("%w: metric is not positive-definite", ErrInvalidParameter)
	}
	m := &MetricTensor{
		dim:      dim,
		g:        make([]float32, dim*dim),
		gInv:     make([]float32, dim*dim),
		det:      det,
		diagonal: diagonal,
		minEig:   minEig,
	}
	copy(m.g, g)
	copy(m.gInv, gInv)
	return m, nil
}

// smallestEigenvalue returns the smallest eigenvalue of a symmetric matrix.
func smallestEigenvalue(sym *mat.SymDense) (float64, bool) {
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return 0, false
	}
	return eig.Values(nil)[0], true
}

// Dim returns the metric dimension.
func (m *MetricTensor) Dim() int { return m.dim }

// Det returns the precomputed determinant.
func (m *MetricTensor) Det() float64 { return float64(m.det) }

// Diagonal reports whether the metric has no off-diagonal entries.
func (m *MetricTensor) Diagonal() bool { return m.diagonal }

// At returns g[i][j].
func (m *MetricTensor) At(i, j int) float64 {
	return float64(m.g[i*m.dim+j])
}

// InvAt returns g⁻¹[i][j].
func (m *MetricTensor) InvAt(i, j int) float64 {
	return float64(m.gInv[i*m.dim+j])
}

// Entries returns the row-major g entries. Callers must not modify the slice.
func (m *MetricTensor) Entries() []float32 { return m.g }

// InverseEntries returns the row-major g⁻¹ entries. Callers must not modify the slice.
func (m *MetricTensor) InverseEntries() []float32 { return m.gInv }

// Clone returns an independent copy of the metric.
func (m *MetricTensor) Clone() *MetricTensor {
	out := &MetricTensor{
		dim:      m.dim,
		g:        make([]float32, len(m.g)),
		gInv:     make([]float32, len(m.gInv)),
		det:      m.det,
		diagonal: m.diagonal,
		minEig:   m.minEig,
	}
	copy(out.g, m.g)
	copy(out.gInv, m.gInv)
	return out
}

// Valid reports whether the metric passes its structural invariants.
func (m *MetricTensor) Valid() bool {
	if m == nil || m.dim <= 0 || len(m.g) != m.dim*m.dim || len(m.gInv) != m.dim*m.dim {
		return false
	}
	if !(m.det > 0) || !isFinite(m.det) {
		return false
	}
	for _, v := range m.g {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// CoveringScale returns a multiplier that converts a Riemannian radius into a
// Euclidean one that covers the same ball: 1/√λ_min(g), floored at 1.
// Spatial indexes are Euclidean pre-filters; queries pad their radius by this.
func (m *MetricTensor) CoveringScale() float64 {
	if m.minEig <= 0 || m.minEig >= 1 {
		return 1
	}
	return 1 / math.Sqrt(m.minEig)
}

// SquaredDistance returns the squared Riemannian distance dᵀ·g·d between a and b.
func (m *MetricTensor) SquaredDistance(a, b Point) (float64, error) {
	if len(a) != m.dim || len(b) != m.dim {
		return 0, ErrDimensionMismatch
	}
	if m.diagonal {
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += float64(m.g[i*m.dim+i]) * d * d
		}
		return sum, nil
	}
	diff := make([]float64, m.dim)
	for i := range a {
		diff[i] = float64(a[i]) - float64(b[i])
	}
	var sum float64
	for i := 0; i < m.dim; i++ {
		for j := 0; j < m.dim; j++ {
			sum += float64(m.g[i*m.dim+j]) * diff[i] * diff[j]
		}
	}
	return sum, nil
}

// Distance returns the Riemannian distance between a and b.
func (m *MetricTensor) Distance(a, b Point) (float64, error) {
	sq, err := m.SquaredDistance(a, b)
	if err != nil {
		return 0, err
	}
	if sq < 0 {
		sq = 0
	}
	return math.Sqrt(sq), nil
}
