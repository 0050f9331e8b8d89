// Package evolution provides the domain types for the field evolution engine:
// PDE parameters with their declared bounds, the adaptive-parameter
// configuration, and the autopoiesis configuration.
package evolution

import (
	"fmt"
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

// Params are the coefficients of one evolution step of
// ∂Φ/∂t = D·∇²_g Φ − α·|Φ|²·Φ + β·T(Φ) + γ·C(Φ).
// They are immutable within a step; the adaptive manager may rewrite them
// between steps.
type Params struct {
	Dt    float64 // Euler step size, (0, 1]
	D     float64 // diffusion coefficient, [0, 1]
	Alpha float64 // cubic self-saturation, [0, 0.5]
	Beta  float64 // torsion coupling, [0, 0.1]
	Gamma float64 // modality coupling, [0, 0.2]
	Sigma float64 // interaction kernel width, (0, 1]
}

// DefaultParams returns the reference parameter set used by the seeded scenarios.
func DefaultParams() Params {
	return Params{
		Dt:    0.01,
		D:     0.1,
		Alpha: 0.05,
		Beta:  0.02,
		Gamma: 0.03,
		Sigma: 0.15,
	}
}

// Validate checks every coefficient against its declared bounds.
func (p Params) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
		openMin  bool
	}{
		{"dt", p.Dt, 0, 1, true},
		{"D", p.D, 0, 1, false},
		{"alpha", p.Alpha, 0, 0.5, false},
		{"beta", p.Beta, 0, 0.1, false},
		{"gamma", p.Gamma, 0, 0.2, false},
		{"sigma", p.Sigma, 0, 1, true},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s is not finite", field.ErrInvalidParameter, c.name)
		}
		if c.value > c.max || c.value < c.min || (c.openMin && c.value == c.min) {
			return fmt.Errorf("%w: %s = %v out of bounds", field.ErrInvalidParameter, c.name, c.value)
		}
	}
	return nil
}

// Strategy selects how the adaptive manager drives parameters between steps.
type Strategy string

const (
	StrategyOff        Strategy = "off"
	StrategyEnergy     Strategy = "energy"
	StrategyComplexity Strategy = "complexity"
	StrategyGradient   Strategy = "gradient"
	StrategyCombined   Strategy = "combined"
)

// Valid reports whether s is a known strategy. The zero value reads as
// StrategyOff so zero-value configs stay usable.
func (s Strategy) Valid() bool {
	switch s {
	case "", StrategyOff, StrategyEnergy, StrategyComplexity, StrategyGradient, StrategyCombined:
		return true
	}
	return false
}

// Enabled reports whether s actually drives parameters between steps.
func (s Strategy) Enabled() bool {
	return s != "" && s != StrategyOff
}

// Bounds clamp one adaptive parameter.
type Bounds struct {
	Min float64
	Max float64
}

// Clamp returns v clipped into the bounds.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// AdaptiveConfig configures the between-step parameter manager.
type AdaptiveConfig struct {
	Strategy         Strategy
	LearningRate     float64 // [1e-3, 1e-1]
	EnergyTarget     float64
	ComplexityTarget float64
	HistorySize      int

	DBounds     Bounds
	AlphaBounds Bounds
	BetaBounds  Bounds
	GammaBounds Bounds
}

// DefaultAdaptiveConfig returns a disabled manager with the declared
// parameter bounds and a moderate learning rate.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Strategy:         StrategyOff,
		LearningRate:     0.01,
		EnergyTarget:     1.0,
		ComplexityTarget: 0.5,
		HistorySize:      64,
		DBounds:          Bounds{Min: 0, Max: 1},
		AlphaBounds:      Bounds{Min: 0, Max: 0.5},
		BetaBounds:       Bounds{Min: 0, Max: 0.1},
		GammaBounds:      Bounds{Min: 0, Max: 0.2},
	}
}

// Validate checks the adaptive configuration.
func (c AdaptiveConfig) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("%w: adaptive strategy %q", field.ErrInvalidParameter, c.Strategy)
	}
	if !c.Strategy.Enabled() {
		return nil
	}
	if c.LearningRate < 1e-3 || c.LearningRate > 1e-1 {
		return fmt.Errorf("%w: learning rate %v", field.ErrInvalidParameter, c.LearningRate)
	}
	if c.HistorySize < 2 {
		return fmt.Errorf("%w: history size %d", field.ErrInvalidParameter, c.HistorySize)
	}
	return nil
}

// AutopoiesisConfig configures the optional birth/death sweep.
type AutopoiesisConfig struct {
	Enabled bool
	// Period is the number of evolution steps between sweeps.
	Period int
	// DeathThreshold removes centers with |w|²·ε below it.
	DeathThreshold float64
	// BirthBaseProbability scales the energy-growth-driven birth probability.
	BirthBaseProbability float64
	// MaxBirthsPerSweep caps appended centers per sweep.
	MaxBirthsPerSweep int
}

// DefaultAutopoiesisConfig returns a disabled sweep with conservative knobs.
func DefaultAutopoiesisConfig() AutopoiesisConfig {
	return AutopoiesisConfig{
		Enabled:              false,
		Period:               10,
		DeathThreshold:       1e-6,
		BirthBaseProbability: 0.1,
		MaxBirthsPerSweep:    1,
	}
}

// Validate checks the autopoiesis configuration.
func (c AutopoiesisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Period < 1 {
		return fmt.Errorf("%w: autopoiesis period %d", field.ErrInvalidParameter, c.Period)
	}
	if c.DeathThreshold < 0 || math.IsNaN(c.DeathThreshold) {
		return fmt.Errorf("%w: death threshold %v", field.ErrInvalidParameter, c.DeathThreshold)
	}
	if c.BirthBaseProbability < 0 || c.BirthBaseProbability > 1 {
		return fmt.Errorf("%w: birth probability %v", field.ErrInvalidParameter, c.BirthBaseProbability)
	}
	if c.MaxBirthsPerSweep < 0 {
		return fmt.Errorf("%w: max births %d", field.ErrInvalidParameter, c.MaxBirthsPerSweep)
	}
	return nil
}
