package evolution

import (
	"math"

	domain "github.com/selectess/TCDE-sub001/internal/domain/evolution"
)

// AdaptiveManager drives (D, α, β, γ) toward configured energy and
// complexity targets between steps. Every parameter is clamped to its
// configured bounds after each update; Δt and σ are never touched.
type AdaptiveManager struct {
	cfg     domain.AdaptiveConfig
	history []adaptiveSample
	updates int
}

type adaptiveSample struct {
	params    domain.Params
	objective float64
}

// NewAdaptiveManager creates a manager. Validate the config before calling.
func NewAdaptiveManager(cfg domain.AdaptiveConfig) *AdaptiveManager {
	return &AdaptiveManager{cfg: cfg}
}

// Update returns the next parameter set given the observed energy and
// complexity. The off strategy returns the input unchanged.
func (m *AdaptiveManager) Update(p domain.Params, energy, complexity float64) domain.Params {
	if m.cfg.Strategy == domain.StrategyOff {
		return p
	}
	m.updates++

	switch m.cfg.Strategy {
	case domain.StrategyEnergy:
		p = m.energyStep(p, energy)
	case domain.StrategyComplexity:
		p = m.complexityStep(p, complexity)
	case domain.StrategyCombined:
		p = m.energyStep(p, energy)
		p = m.complexityStep(p, complexity)
	case domain.StrategyGradient:
		p = m.gradientStep(p, energy, complexity)
	}

	p.D = m.cfg.DBounds.Clamp(p.D)
	p.Alpha = m.cfg.AlphaBounds.Clamp(p.Alpha)
	p.Beta = m.cfg.BetaBounds.Clamp(p.Beta)
	p.Gamma = m.cfg.GammaBounds.Clamp(p.Gamma)

	m.push(adaptiveSample{params: p, objective: m.objective(energy, complexity)})
	return p
}

// energyStep: energy above target raises the saturation α and lowers
// diffusion; energy below target does the opposite.
func (m *AdaptiveManager) energyStep(p domain.Params, energy float64) domain.Params {
	scale := math.Max(1, math.Abs(m.cfg.EnergyTarget))
	err := (energy - m.cfg.EnergyTarget) / scale
	p.Alpha += m.cfg.LearningRate * err
	p.D -= 0.5 * m.cfg.LearningRate * err
	return p
}

// complexityStep: complexity below target strengthens the torsion and
// coupling terms that generate structure.
func (m *AdaptiveManager) complexityStep(p domain.Params, complexity float64) domain.Params {
	err := m.cfg.ComplexityTarget - complexity
	p.Beta += 0.1 * m.cfg.LearningRate * err
	p.Gamma += 0.2 * m.cfg.LearningRate * err
	return p
}

// gradientStep estimates ∂objective/∂param by finite differences over the
// recorded history and ascends it. Parameters with no usable history get a
// small alternating dither so the finite differences have something to see.
func (m *AdaptiveManager) gradientStep(p domain.Params, energy, complexity float64) domain.Params {
	obj := m.objective(energy, complexity)
	dither := m.cfg.LearningRate * 0.05
	if m.updates%2 == 0 {
		dither = -dither
	}

	read := func(p domain.Params, k int) float64 {
		switch k {
		case 0:
			return p.D
		case 1:
			return p.Alpha
		case 2:
			return p.Beta
		default:
			return p.Gamma
		}
	}
	write := func(p *domain.Params, k int, v float64) {
		switch k {
		case 0:
			p.D = v
		case 1:
			p.Alpha = v
		case 2:
			p.Beta = v
		default:
			p.Gamma = v
		}
	}

	for k := 0; k < 4; k++ {
		grad, ok := m.finiteDifference(k, read, obj, read(p, k))
		if !ok {
			write(&p, k, read(p, k)+dither)
			continue
		}
		write(&p, k, read(p, k)+m.cfg.LearningRate*grad)
	}
	return p
}

// finiteDifference looks back through the history for the most recent sample
// whose k-th parameter differs from the current value.
func (m *AdaptiveManager) finiteDifference(k int, read func(domain.Params, int) float64, obj, current float64) (float64, bool) {
	for i := len(m.history) - 1; i >= 0; i-- {
		prev := read(m.history[i].params, k)
		if prev == current {
			continue
		}
		grad := (obj - m.history[i].objective) / (current - prev)
		if math.IsNaN(grad) || math.IsInf(grad, 0) {
			return 0, false
		}
		return grad, true
	}
	return 0, false
}

// objective is the (negated) squared distance to the targets; larger is better.
func (m *AdaptiveManager) objective(energy, complexity float64) float64 {
	scale := math.Max(1, math.Abs(m.cfg.EnergyTarget))
	de := (energy - m.cfg.EnergyTarget) / scale
	dc := complexity - m.cfg.ComplexityTarget
	return -(de*de + dc*dc)
}

func (m *AdaptiveManager) push(s adaptiveSample) {
	m.history = append(m.history, s)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[1:]
	}
}
