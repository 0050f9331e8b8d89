package evolution

import (
	"testing"

	domain "github.com/selectess/TCDE-sub001/internal/domain/evolution"
)

func adaptiveConfig(strategy domain.Strategy) domain.AdaptiveConfig {
	cfg := domain.DefaultAdaptiveConfig()
	cfg.Strategy = strategy
	return cfg
}

func TestAdaptiveOffLeavesParams(t *testing.T) {
	m := NewAdaptiveManager(adaptiveConfig(domain.StrategyOff))
	p := domain.DefaultParams()
	if got := m.Update(p, 100, 0); got != p {
		t.Errorf("off strategy changed params: %+v != %+v", got, p)
	}
}

func TestAdaptiveEnergyStrategy(t *testing.T) {
	cfg := adaptiveConfig(domain.StrategyEnergy)
	cfg.EnergyTarget = 1.0
	m := NewAdaptiveManager(cfg)
	p := domain.DefaultParams()

	// Energy far above target: α must rise, D must fall.
	got := m.Update(p, 10.0, 0.5)
	if got.Alpha <= p.Alpha {
		t.Errorf("alpha = %v, want > %v when energy exceeds target", got.Alpha, p.Alpha)
	}
	if got.D >= p.D {
		t.Errorf("D = %v, want < %v when energy exceeds target", got.D, p.D)
	}

	// Energy below target: the opposite direction.
	got = m.Update(p, 0.1, 0.5)
	if got.Alpha >= p.Alpha {
		t.Errorf("alpha = %v, want < %v when energy is below target", got.Alpha, p.Alpha)
	}
	if got.D <= p.D {
		t.Errorf("D = %v, want > %v when energy is below target", got.D, p.D)
	}
}

func TestAdaptiveComplexityStrategy(t *testing.T) {
	cfg := adaptiveConfig(domain.StrategyComplexity)
	cfg.ComplexityTarget = 0.5
	m := NewAdaptiveManager(cfg)
	p := domain.DefaultParams()

	got := m.Update(p, 1.0, 0.1)
	if got.Beta <= p.Beta || got.Gamma <= p.Gamma {
		t.Errorf("beta/gamma = %v/%v, want both raised when complexity is below target",
			got.Beta, got.Gamma)
	}
}

func TestAdaptiveClampsToBounds(t *testing.T) {
	cfg := adaptiveConfig(domain.StrategyEnergy)
	cfg.LearningRate = 0.1
	cfg.EnergyTarget = 1.0
	m := NewAdaptiveManager(cfg)
	p := domain.DefaultParams()

	// Hammer the manager with an extreme energy reading; every parameter
	// must stay inside its declared bounds.
	for i := 0; i < 200; i++ {
		p = m.Update(p, 1e6, 0.5)
	}
	if p.Alpha < cfg.AlphaBounds.Min || p.Alpha > cfg.AlphaBounds.Max {
		t.Errorf("alpha = %v escaped bounds [%v, %v]", p.Alpha, cfg.AlphaBounds.Min, cfg.AlphaBounds.Max)
	}
	if p.D < cfg.DBounds.Min || p.D > cfg.DBounds.Max {
		t.Errorf("D = %v escaped bounds [%v, %v]", p.D, cfg.DBounds.Min, cfg.DBounds.Max)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("params invalid after adaptive updates: %v", err)
	}
}

func TestAdaptiveGradientStaysBounded(t *testing.T) {
	cfg := adaptiveConfig(domain.StrategyGradient)
	m := NewAdaptiveManager(cfg)
	p := domain.DefaultParams()

	for i := 0; i < 50; i++ {
		p = m.Update(p, 2.0, 0.3)
		if p.D < 0 || p.D > 1 || p.Alpha < 0 || p.Alpha > 0.5 ||
			p.Beta < 0 || p.Beta > 0.1 || p.Gamma < 0 || p.Gamma > 0.2 {
			t.Fatalf("update %d drove params out of bounds: %+v", i, p)
		}
	}
}
