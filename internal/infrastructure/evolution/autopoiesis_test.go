package evolution

import (
	"context"
	"testing"

	domain "github.com/selectess/TCDE-sub001/internal/domain/evolution"
	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

func autopoieticEngine(t *testing.T, auto domain.AutopoiesisConfig) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Autopoiesis = auto
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func TestAutopoiesisRemovesDyingCenters(t *testing.T) {
	f, err := field.New(16, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	// One strong center, three nearly dead ones.
	if err := f.AddCenter(field.NewPoint6(0.5, 0.5, 0.5, 0, 0, 0), complex(1, 0), 0.2); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	for i := 0; i < 3; i++ {
		p := field.NewPoint6(float32(i)*0.1, 0, 0, 0, 0, 0)
		if err := f.AddCenter(p, complex(1e-6, 0), 0.2); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}

	auto := domain.AutopoiesisConfig{
		Enabled:              true,
		Period:               1,
		DeathThreshold:       1e-8,
		BirthBaseProbability: 0,
		MaxBirthsPerSweep:    0,
	}
	engine := autopoieticEngine(t, auto)
	if err := engine.Step(context.Background(), f); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.Len() != 1 {
		t.Errorf("Len = %d, want 1 (weak centers swept)", f.Len())
	}
}

func TestAutopoiesisBirthsStayWithinCapacity(t *testing.T) {
	f, err := field.New(6, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	for i := 0; i < 5; i++ {
		p := field.NewPoint6(float32(i)*0.2, 0.5, 0.5, 0, 0, 0)
		if err := f.AddCenter(p, complex(1, 0), 0.2); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}

	auto := domain.AutopoiesisConfig{
		Enabled:              true,
		Period:               1,
		DeathThreshold:       0,
		BirthBaseProbability: 1,
		MaxBirthsPerSweep:    4,
	}
	engine := autopoieticEngine(t, auto)
	for s := 0; s < 5; s++ {
		if err := engine.Step(context.Background(), f); err != nil {
			t.Fatalf("Step %d: %v", s, err)
		}
		if f.Len() > f.Capacity() {
			t.Fatalf("step %d: Len %d exceeds capacity %d", s, f.Len(), f.Capacity())
		}
	}
	// With guaranteed birth probability the field fills up to capacity.
	if f.Len() != f.Capacity() {
		t.Errorf("Len = %d, want capacity %d", f.Len(), f.Capacity())
	}
}

func TestAutopoiesisChildrenAreValid(t *testing.T) {
	f, err := field.New(32, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	for i := 0; i < 4; i++ {
		p := field.NewPoint6(float32(i)*0.2, 0.5, 0.5, 0, 0, 0.4)
		if err := f.AddCenter(p, complex(0.8, 0.3), 0.2); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}

	auto := domain.AutopoiesisConfig{
		Enabled:              true,
		Period:               1,
		DeathThreshold:       0,
		BirthBaseProbability: 1,
		MaxBirthsPerSweep:    2,
	}
	engine := autopoieticEngine(t, auto)
	if err := engine.Run(context.Background(), f, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.Len() <= 4 {
		t.Fatalf("Len = %d, want births to have occurred", f.Len())
	}
	if err := f.Validate(); err != nil {
		t.Errorf("field invalid after births: %v", err)
	}
}
