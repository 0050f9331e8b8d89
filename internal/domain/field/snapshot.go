package field

import "fmt"

// Snapshot is a shallow, one-level clone of the transactional field state:
// contiguous weight and position buffers plus the simulation time. It is what
// the evolution engine rolls back to and what the reflexivity metric compares
// against; it does not clone per-center metrics or the kernel.
type Snapshot struct {
	Weights   []complex64
	Positions []Point
	Time      float64
}

// Snapshot captures the current weights, positions, and time.
func (f *Field) Snapshot() *Snapshot {
	s := &Snapshot{
		Weights:   make([]complex64, len(f.centers)),
		Positions: make([]Point, len(f.centers)),
		Time:      f.Time(),
	}
	for i := range f.centers {
		s.Weights[i] = f.centers[i].Weight
		s.Positions[i] = f.centers[i].Position.Clone()
	}
	return s
}

// Restore overwrites the field's weights and time from a snapshot taken on a
// field with the same center count. Positions are not restored; evolution
// without autopoiesis never moves centers.
func (f *Field) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidParameter)
	}
	if len(s.Weights) != len(f.centers) {
		return fmt.Errorf("%w: snapshot of %d weights for %d centers",
			ErrDimensionMismatch, len(s.Weights), len(f.centers))
	}
	if err := f.ReplaceWeights(s.Weights); err != nil {
		return err
	}
	f.SetTime(s.Time)
	return nil
}
