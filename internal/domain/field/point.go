package field

import "math"

// Manifold coordinate slots for the core 6D field.
const (
	AxisX = iota
	AxisY
	AxisZ
	AxisMemory       // τ₁
	AxisAnticipation // τ₂
	AxisModality     // m
)

// ManifoldDim is the dimension of the core cognitive manifold.
const ManifoldDim = 6

// SliceDim is the dimension of the reduced introspection slice (x, y).
const SliceDim = 2

// Point is an owned, fixed-length coordinate vector on the manifold.
type Point []float32

// NewPoint allocates a zero point of the given dimension.
func NewPoint(dim int) Point {
	return make(Point, dim)
}

// NewPoint6 builds a core manifold point from its six semantic coordinates.
func NewPoint6(x, y, z, tau1, tau2, m float32) Point {
	return Point{x, y, z, tau1, tau2, m}
}

// Dim returns the dimension of the point.
func (p Point) Dim() int {
	return len(p)
}

// Clone returns an independent copy of the point.
func (p Point) Clone() Point {
	out := make(Point, len(p))
	copy(out, p)
	return out
}

// Equal reports elementwise equality with another point.
func (p Point) Equal(q Point) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Finite reports whether every coordinate is a finite number.
func (p Point) Finite() bool {
	for _, v := range p {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// SquaredEuclidean returns the squared Euclidean distance to q,
// or an ErrDimensionMismatch if the dimensions differ.
func (p Point) SquaredEuclidean(q Point) (float64, error) {
	if len(p) != len(q) {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range p {
		d := float64(p[i]) - float64(q[i])
		sum += d * d
	}
	return sum, nil
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
