package field

// Center is one term of the RBF mixture: a manifold position, a complex
// weight, a width ε, and an optional per-center metric. A nil metric means
// the center uses the owning field's manifold metric; centers never hold a
// back-pointer to the field.
type Center struct {
	Position Point
	Weight   complex64
	Width    float32
	Metric   *MetricTensor
}

// Clone returns a deep copy of the center.
func (c Center) Clone() Center {
	out := Center{
		Position: c.Position.Clone(),
		Weight:   c.Weight,
		Width:    c.Width,
	}
	if c.Metric != nil {
		out.Metric = c.Metric.Clone()
	}
	return out
}

// Modality returns the center's m-coordinate, or 0 for sub-modality dimensions.
func (c Center) Modality() float32 {
	if len(c.Position) > AxisModality {
		return c.Position[AxisModality]
	}
	return 0
}

// Valid reports whether the center satisfies its invariants for the given
// manifold dimension: matching point dimension, strictly positive width,
// finite coordinates and weight.
func (c Center) Valid(dim int) bool {
	if c.Position.Dim() != dim || !c.Position.Finite() {
		return false
	}
	if !(c.Width > 0) || !isFinite(c.Width) {
		return false
	}
	if !WeightFinite(c.Weight) {
		return false
	}
	if c.Metric != nil && (c.Metric.Dim() != dim || !c.Metric.Valid()) {
		return false
	}
	return true
}
