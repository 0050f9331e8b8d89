// Package spatial provides a bulk-loaded KD-tree over the field's centers.
// The tree is a value built from a field snapshot: it copies coordinates and
// stores indices into the center sequence, never references. Any mutation
// that adds, moves, or removes centers invalidates it; staleness is
// detectable through the field's geometry generation counter. Weight-only
// updates keep a tree valid.
package spatial

import (
	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// Neighbor is one query result: a center index and the squared Euclidean
// distance to the query point. Distances are Euclidean, not Riemannian; the
// tree is a heuristic pre-filter for Φ evaluation.
type Neighbor struct {
	Index  int
	SqDist float64
}

type node struct {
	center int32
	left   int32
	right  int32
}

// Tree is an immutable KD-tree over 6D (or any-D) points.
type Tree struct {
	dim        int
	generation uint64
	points     [][]float32 // indexed by center index
	nodes      []node
	root       int32
}

// Build constructs a tree from the field's current centers with median-based
// splitting cycling through coordinate axes. An empty field yields a legal
// empty tree.
func Build(f *field.Field) *Tree {
	centers := f.Centers()
	t := &Tree{
		dim:        f.Dim(),
		generation: f.GeometryGeneration(),
		points:     make([][]float32, len(centers)),
		nodes:      make([]node, 0, len(centers)),
		root:       -1,
	}
	if len(centers) == 0 {
		return t
	}
	idxs := make([]int32, len(centers))
	for i := range centers {
		t.points[i] = centers[i].Position
		idxs[i] = int32(i)
	}
	t.root = t.build(idxs, 0)
	return t
}

// Len returns the number of indexed centers.
func (t *Tree) Len() int { return len(t.points) }

// Generation returns the field geometry generation the tree was built from.
func (t *Tree) Generation() uint64 { return t.generation }

// Stale reports whether the field geometry has changed since the tree was built.
func (t *Tree) Stale(f *field.Field) bool {
	return t.generation != f.GeometryGeneration()
}

func (t *Tree) build(idxs []int32, depth int) int32 {
	if len(idxs) == 0 {
		return -1
	}
	axis := depth % t.dim
	mid := len(idxs) / 2
	t.selectMedian(idxs, mid, axis)

	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{center: idxs[mid]})
	left := t.build(idxs[:mid], depth+1)
	right := t.build(idxs[mid+1:], depth+1)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

// selectMedian partitions idxs so that idxs[k] holds the k-th element by
// (coordinate, index) order. Quickselect with median-of-three pivoting.
func (t *Tree) selectMedian(idxs []int32, k, axis int) {
	lo, hi := 0, len(idxs)-1
	for lo < hi {
		p := t.partition(idxs, lo, hi, axis)
		switch {
		case k == p:
			return
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
}

func (t *Tree) less(a, b int32, axis int) bool {
	va, vb := t.points[a][axis], t.points[b][axis]
	if va != vb {
		return va < vb
	}
	return a < b
}

func (t *Tree) partition(idxs []int32, lo, hi, axis int) int {
	mid := lo + (hi-lo)/2
	if t.less(idxs[mid], idxs[lo], axis) {
		idxs[lo], idxs[mid] = idxs[mid], idxs[lo]
	}
	if t.less(idxs[hi], idxs[lo], axis) {
		idxs[lo], idxs[hi] = idxs[hi], idxs[lo]
	}
	if t.less(idxs[hi], idxs[mid], axis) {
		idxs[mid], idxs[hi] = idxs[hi], idxs[mid]
	}
	idxs[mid], idxs[hi] = idxs[hi], idxs[mid]
	pivot := idxs[hi]

	i := lo
	for j := lo; j < hi; j++ {
		if t.less(idxs[j], pivot, axis) {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
		}
	}
	idxs[i], idxs[hi] = idxs[hi], idxs[i]
	return i
}

func (t *Tree) sqDist(q field.Point, center int32) float64 {
	p := t.points[center]
	var sum float64
	for i := 0; i < t.dim; i++ {
		d := float64(q[i]) - float64(p[i])
		sum += d * d
	}
	return sum
}

// KNN returns the k closest centers and their squared Euclidean distances,
// ordered closest first. Ties are broken by the smaller center index.
func (t *Tree) KNN(q field.Point, k int) ([]Neighbor, error) {
	if len(q) != t.dim {
		return nil, field.ErrDimensionMismatch
	}
	if k <= 0 || t.root < 0 {
		return nil, nil
	}
	if k > len(t.points) {
		k = len(t.points)
	}
	h := &knnHeap{cap: k}
	t.knn(t.root, q, 0, h)
	return h.sorted(), nil
}

func (t *Tree) knn(id int32, q field.Point, depth int, h *knnHeap) {
	n := t.nodes[id]
	h.offer(Neighbor{Index: int(n.center), SqDist: t.sqDist(q, n.center)})

	axis := depth % t.dim
	delta := float64(q[axis]) - float64(t.points[n.center][axis])
	near, far := n.left, n.right
	if delta > 0 {
		near, far = far, near
	}
	if near >= 0 {
		t.knn(near, q, depth+1, h)
	}
	if far >= 0 && (!h.full() || delta*delta <= h.worst().SqDist) {
		t.knn(far, q, depth+1, h)
	}
}

// RadiusQuery returns all centers within radius r of q. Results are unordered.
func (t *Tree) RadiusQuery(q field.Point, r float64) ([]Neighbor, error) {
	if len(q) != t.dim {
		return nil, field.ErrDimensionMismatch
	}
	if r < 0 || t.root < 0 {
		return nil, nil
	}
	var out []Neighbor
	t.radius(t.root, q, 0, r, r*r, &out)
	return out, nil
}

func (t *Tree) radius(id int32, q field.Point, depth int, r, rsq float64, out *[]Neighbor) {
	n := t.nodes[id]
	if d := t.sqDist(q, n.center); d <= rsq {
		*out = append(*out, Neighbor{Index: int(n.center), SqDist: d})
	}
	axis := depth % t.dim
	delta := float64(q[axis]) - float64(t.points[n.center][axis])
	if n.left >= 0 && delta <= r {
		t.radius(n.left, q, depth+1, r, rsq, out)
	}
	if n.right >= 0 && delta >= -r {
		t.radius(n.right, q, depth+1, r, rsq, out)
	}
}
