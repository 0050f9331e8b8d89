package ingest

import (
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// rotateTolerance is the m-coordinate band around the source modality whose
// centers participate in a rotation.
const rotateTolerance = 0.2

// RotateModality moves every center within tolerance of src along the m-axis
// toward dst by interpolation factor t, wrapping into [0,1]. When preserve
// is set, all weights are renormalised by √(E_before/E_after) afterwards.
// It returns the number of moved centers.
func RotateModality(f *field.Field, src, dst float32, t float64, preserve bool) (int, error) {
	if f.Dim() != field.ManifoldDim {
		return 0, field.ErrDimensionMismatch
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, field.ErrInvalidParameter
	}

	energyBefore := f.Energy()
	target := float64(src) + t*float64(dst-src)
	target = wrapUnit(target)

	moved := 0
	for i, c := range f.Centers() {
		if math.Abs(float64(c.Modality()-src)) > rotateTolerance {
			continue
		}
		if err := f.SetCoordinate(i, field.AxisModality, float32(target)); err != nil {
			return moved, err
		}
		moved++
	}

	if preserve && moved > 0 {
		if energyAfter := f.Energy(); energyAfter > 0 {
			if err := f.ScaleWeights(math.Sqrt(energyBefore / energyAfter)); err != nil {
				return moved, err
			}
		}
	}
	return moved, nil
}

// wrapUnit maps v into [0,1], leaving in-range values untouched so a
// rotate-there-and-back round trip is exact.
func wrapUnit(v float64) float64 {
	if v >= 0 && v <= 1 {
		return v
	}
	v = math.Mod(v, 1)
	if v < 0 {
		v += 1
	}
	return v
}
