package evolution

import (
	"errors"
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// autopoiesisSweep removes dying centers and probabilistically appends new
// ones near high-energy centers. It runs single-threaded because it mutates
// the center sequence; the compaction invalidates any spatial index, which is
// rebuilt lazily on the next step.
func (e *Engine) autopoiesisSweep(f *field.Field) {
	threshold := e.auto.DeathThreshold
	f.Sweep(func(_ int, c field.Center) bool {
		return field.AbsSq(c.Weight)*float64(c.Width) >= threshold
	})

	if f.Len() == 0 {
		return
	}

	p := e.birthProbability()
	for b := 0; b < e.auto.MaxBirthsPerSweep; b++ {
		if e.rng.Float64() >= p {
			continue
		}
		parent := e.pickHighEnergyCenter(f)
		child := field.Center{
			Position: parent.Position.Clone(),
			Weight:   field.Scale(parent.Weight, 0.5),
			Width:    parent.Width,
		}
		for k := range child.Position {
			child.Position[k] += float32(e.rng.NormFloat64() * float64(parent.Width) * 0.5)
		}
		if err := f.AddCenterFull(child); err != nil {
			// Birth declines silently when the container is full.
			if errors.Is(err, field.ErrCapacityExceeded) {
				return
			}
			return
		}
	}
}

// birthProbability derives the global birth probability from recent energy
// growth: flat or shrinking energy keeps it at the configured base, growth
// raises it proportionally.
func (e *Engine) birthProbability() float64 {
	base := e.auto.BirthBaseProbability
	if len(e.energyHistory) < 2 {
		return base
	}
	first := e.energyHistory[0]
	last := e.energyHistory[len(e.energyHistory)-1]
	if first <= 0 {
		return base
	}
	growth := (last - first) / first
	if growth < 0 {
		growth = 0
	}
	p := base * (1 + growth)
	return math.Min(p, 1)
}

// pickHighEnergyCenter samples a few random centers and keeps the one with
// the largest |w|².
func (e *Engine) pickHighEnergyCenter(f *field.Field) field.Center {
	centers := f.Centers()
	best := centers[e.rng.Intn(len(centers))]
	bestEnergy := field.AbsSq(best.Weight)
	for trial := 0; trial < 2; trial++ {
		c := centers[e.rng.Intn(len(centers))]
		if en := field.AbsSq(c.Weight); en > bestEnergy {
			best, bestEnergy = c, en
		}
	}
	return best
}
