package field

import "fmt"

// Field owns an ordered, append-only sequence of centers with a declared
// capacity, the kernel tag, the shared manifold metric, the simulation time,
// and a cached energy value. The only deleting mutation is Sweep, used by the
// autopoietic phase of evolution.
//
// Concurrency: single writer per field. Read-only operations may run
// concurrently provided no writer is active.
type Field struct {
	centers     []Center
	capacity    int
	dim         int
	kernel      Kernel
	metric      *MetricTensor
	time        float32
	fractalDim  float32
	temporalDim float32

	energy      float64
	energyValid bool

	// generation increments on every mutation; caches derived from weights
	// key on it. geomGeneration increments only on mutations that add, move,
	// or remove centers; spatial indexes record it to detect staleness, so
	// weight-only updates keep an index valid.
	generation     uint64
	geomGeneration uint64
}

// New creates a field with a preallocated center buffer, an identity manifold
// metric, and an invalid energy cache.
func New(capacity int, kernel Kernel, dim int) (*Field, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidParameter, capacity)
	}
	if dim < 1 {
		return nil, fmt.Errorf("%w: manifold dimension %d", ErrInvalidParameter, dim)
	}
	if !kernel.Valid() {
		return nil, fmt.Errorf("%w: kernel tag %d", ErrInvalidParameter, kernel)
	}
	metric, err := IdentityMetric(dim)
	if err != nil {
		return nil, err
	}
	return &Field{
		centers:     make([]Center, 0, capacity),
		capacity:    capacity,
		dim:         dim,
		kernel:      kernel,
		metric:      metric,
		fractalDim:  2.5,
		temporalDim: 1,
	}, nil
}

// Len returns the number of centers.
func (f *Field) Len() int { return len(f.centers) }

// Capacity returns the declared capacity.
func (f *Field) Capacity() int { return f.capacity }

// Dim returns the manifold dimension.
func (f *Field) Dim() int { return f.dim }

// Kernel returns the kernel tag.
func (f *Field) Kernel() Kernel { return f.kernel }

// Metric returns the shared manifold metric.
func (f *Field) Metric() *MetricTensor { return f.metric }

// SetMetric replaces the manifold metric.
func (f *Field) SetMetric(m *MetricTensor) error {
	if m == nil || !m.Valid() {
		return fmt.Errorf("%w: invalid manifold metric", ErrInvalidParameter)
	}
	if m.Dim() != f.dim {
		return ErrDimensionMismatch
	}
	f.metric = m
	f.generation++
	return nil
}

// Time returns the simulation time.
func (f *Field) Time() float64 { return float64(f.time) }

// SetTime sets the simulation time.
func (f *Field) SetTime(t float64) { f.time = float32(t) }

// AdvanceTime adds dt to the simulation time.
func (f *Field) AdvanceTime(dt float64) {
	f.time = float32(float64(f.time) + dt)
}

// FractalDim returns the nominal fractal-dimension parameter.
func (f *Field) FractalDim() float64 { return float64(f.fractalDim) }

// TemporalDim returns the nominal temporal-dimension parameter.
func (f *Field) TemporalDim() float64 { return float64(f.temporalDim) }

// SetNominalDims sets the nominal fractal and temporal dimension parameters.
func (f *Field) SetNominalDims(fractal, temporal float64) {
	f.fractalDim = float32(fractal)
	f.temporalDim = float32(temporal)
}

// Generation returns the mutation counter.
func (f *Field) Generation() uint64 { return f.generation }

// GeometryGeneration returns the counter of center-adding, -moving, and
// -removing mutations.
func (f *Field) GeometryGeneration() uint64 { return f.geomGeneration }

// CoveringScale returns the loosest Euclidean radius padding over the
// manifold metric and every attached per-center metric.
func (f *Field) CoveringScale() float64 {
	scale := f.metric.CoveringScale()
	for i := range f.centers {
		if m := f.centers[i].Metric; m != nil {
			if s := m.CoveringScale(); s > scale {
				scale = s
			}
		}
	}
	return scale
}

// RequireNonEmpty returns ErrEmptyField when the field holds no centers.
// Evaluation and metrics treat an empty field as zero; callers that consider
// emptiness a usage error opt in through this guard.
func (f *Field) RequireNonEmpty() error {
	if len(f.centers) == 0 {
		return ErrEmptyField
	}
	return nil
}

// Centers returns the center sequence. Callers must treat the slice and its
// elements as read-only; mutations go through the Field methods so cache and
// generation bookkeeping stay correct.
func (f *Field) Centers() []Center { return f.centers }

// Center returns the center at index i.
func (f *Field) Center(i int) (Center, error) {
	if i < 0 || i >= len(f.centers) {
		return Center{}, fmt.Errorf("%w: center index %d of %d", ErrInvalidParameter, i, len(f.centers))
	}
	return f.centers[i], nil
}

// AddCenter appends a center using the manifold metric.
// Returns ErrCapacityExceeded when the field is full.
func (f *Field) AddCenter(p Point, w complex64, width float32) error {
	return f.AddCenterFull(Center{Position: p, Weight: w, Width: width})
}

// AddCenterFull appends a fully specified center.
func (f *Field) AddCenterFull(c Center) error {
	if len(f.centers) >= f.capacity {
		return ErrCapacityExceeded
	}
	if c.Position.Dim() != f.dim {
		return ErrDimensionMismatch
	}
	if !c.Valid(f.dim) {
		return fmt.Errorf("%w: invalid center", ErrInvalidParameter)
	}
	f.centers = append(f.centers, c)
	f.invalidate()
	f.geomGeneration++
	return nil
}

// SetWeight overwrites the weight of center i.
func (f *Field) SetWeight(i int, w complex64) error {
	if i < 0 || i >= len(f.centers) {
		return fmt.Errorf("%w: center index %d of %d", ErrInvalidParameter, i, len(f.centers))
	}
	if !WeightFinite(w) {
		return fmt.Errorf("%w: weight %v", ErrNumericalBlowup, w)
	}
	f.centers[i].Weight = w
	f.invalidate()
	return nil
}

// ReplaceWeights overwrites every weight in O(n). The replacement length must
// equal the center count and every weight must be finite; on any violation
// the field is left unchanged.
func (f *Field) ReplaceWeights(weights []complex64) error {
	if len(weights) != len(f.centers) {
		return fmt.Errorf("%w: %d weights for %d centers", ErrDimensionMismatch, len(weights), len(f.centers))
	}
	for _, w := range weights {
		if !WeightFinite(w) {
			return fmt.Errorf("%w: weight %v", ErrNumericalBlowup, w)
		}
	}
	for i := range f.centers {
		f.centers[i].Weight = weights[i]
	}
	f.invalidate()
	return nil
}

// Weights returns a copy of the current weight vector.
func (f *Field) Weights() []complex64 {
	out := make([]complex64, len(f.centers))
	for i := range f.centers {
		out[i] = f.centers[i].Weight
	}
	return out
}

// SetCoordinate overwrites one coordinate of center i's position.
func (f *Field) SetCoordinate(i, axis int, v float32) error {
	if i < 0 || i >= len(f.centers) {
		return fmt.Errorf("%w: center index %d of %d", ErrInvalidParameter, i, len(f.centers))
	}
	if axis < 0 || axis >= f.dim {
		return fmt.Errorf("%w: axis %d of %d", ErrInvalidParameter, axis, f.dim)
	}
	if !isFinite(v) {
		return fmt.Errorf("%w: coordinate %v", ErrNumericalBlowup, v)
	}
	f.centers[i].Position[axis] = v
	f.generation++
	f.geomGeneration++
	return nil
}

// ScaleWeights multiplies every weight by a real scalar.
func (f *Field) ScaleWeights(s float64) error {
	if !isFinite(float32(s)) {
		return fmt.Errorf("%w: scale %v", ErrInvalidParameter, s)
	}
	for i := range f.centers {
		f.centers[i].Weight = Scale(f.centers[i].Weight, s)
	}
	f.invalidate()
	return nil
}

// Sweep compacts the center sequence, keeping only centers for which keep
// returns true. It returns the number of removed centers. Indices into the
// sequence held by spatial indexes are invalidated.
func (f *Field) Sweep(keep func(i int, c Center) bool) int {
	kept := f.centers[:0]
	for i := range f.centers {
		if keep(i, f.centers[i]) {
			kept = append(kept, f.centers[i])
		}
	}
	removed := len(f.centers) - len(kept)
	// Zero the tail so dropped centers do not pin point slices.
	for i := len(kept); i < len(f.centers); i++ {
		f.centers[i] = Center{}
	}
	f.centers = kept
	if removed > 0 {
		f.invalidate()
		f.geomGeneration++
	}
	return removed
}

// Energy returns Σ|wᵢ|², recomputing the cache when invalid.
func (f *Field) Energy() float64 {
	if !f.energyValid {
		var e float64
		for i := range f.centers {
			e += AbsSq(f.centers[i].Weight)
		}
		f.energy = e
		f.energyValid = true
	}
	return f.energy
}

// EnergyCacheValid reports whether the cached energy is current.
func (f *Field) EnergyCacheValid() bool { return f.energyValid }

// Validate checks the field invariants: matching point dimensions, strictly
// positive widths, finite weights, and a valid manifold metric.
func (f *Field) Validate() error {
	if f.metric == nil || !f.metric.Valid() || f.metric.Dim() != f.dim {
		return fmt.Errorf("%w: manifold metric", ErrInvalidParameter)
	}
	for i := range f.centers {
		if !f.centers[i].Valid(f.dim) {
			return fmt.Errorf("%w: center %d", ErrInvalidParameter, i)
		}
	}
	return nil
}

func (f *Field) invalidate() {
	f.energyValid = false
	f.generation++
}
