package evolution

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	domain "github.com/selectess/TCDE-sub001/internal/domain/evolution"
	"github.com/selectess/TCDE-sub001/internal/domain/field"
)

func seededField(t *testing.T, n int, seed int64) *field.Field {
	t.Helper()
	f, err := field.New(n+16, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		p := field.NewPoint6(
			rng.Float32(), rng.Float32(), rng.Float32(),
			rng.Float32(), rng.Float32(), rng.Float32()*0.1,
		)
		w := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		if err := f.AddCenter(p, w, 0.1+rng.Float32()*0.2); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}
	return f
}

func TestNewEngineValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.Dt = 0
	if _, err := NewEngine(cfg); !errors.Is(err, field.ErrInvalidParameter) {
		t.Errorf("zero dt: error = %v, want ErrInvalidParameter", err)
	}

	cfg = DefaultConfig()
	cfg.ClipMax = -1
	if _, err := NewEngine(cfg); !errors.Is(err, field.ErrInvalidParameter) {
		t.Errorf("negative clip: error = %v, want ErrInvalidParameter", err)
	}
}

func TestNewEngineZeroValueSubConfigs(t *testing.T) {
	// A config carrying only Params must work: the empty strategy reads as
	// off and the disabled autopoiesis sweep validates vacuously.
	engine, err := NewEngine(Config{Params: domain.DefaultParams(), Seed: 7})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	f := seededField(t, 20, 100)
	if err := engine.Run(context.Background(), f, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.Steps() != 3 {
		t.Errorf("Steps = %d, want 3", engine.Steps())
	}
}

func TestStepKeepsFieldFinite(t *testing.T) {
	f := seededField(t, 60, 101)
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	t0 := f.Time()
	if err := engine.Run(context.Background(), f, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, w := range f.Weights() {
		if !field.WeightFinite(w) {
			t.Fatalf("weight %d = %v after 10 steps, want finite", i, w)
		}
	}
	wantT := t0 + 10*engine.Params().Dt
	if math.Abs(f.Time()-wantT) > 1e-5 {
		t.Errorf("time = %v, want %v", f.Time(), wantT)
	}
	if engine.Steps() != 10 {
		t.Errorf("Steps = %d, want 10", engine.Steps())
	}
}

func TestPureSaturationDecaysEnergy(t *testing.T) {
	// With only the cubic damping active, Σ|w|² is non-increasing.
	f := seededField(t, 40, 102)
	cfg := DefaultConfig()
	cfg.Params = domain.Params{Dt: 0.01, D: 0, Alpha: 0.5, Beta: 0, Gamma: 0, Sigma: 0.15}
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	prev := f.Energy()
	for s := 0; s < 10; s++ {
		if err := engine.Step(context.Background(), f); err != nil {
			t.Fatalf("Step %d: %v", s, err)
		}
		e := f.Energy()
		if e > prev+1e-6 {
			t.Fatalf("step %d: energy rose from %v to %v", s, prev, e)
		}
		prev = e
	}
}

func TestStepEmptyFieldNoOp(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Step(context.Background(), f); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.Time() != 0 {
		t.Errorf("time = %v, want 0 (empty field step is a no-op)", f.Time())
	}
}

func TestClipBoundsWeights(t *testing.T) {
	f := seededField(t, 30, 103)
	cfg := DefaultConfig()
	cfg.ClipMax = 0.5
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Run(context.Background(), f, 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, w := range f.Weights() {
		if field.Abs(w) > 0.5+1e-6 {
			t.Errorf("weight %d magnitude %v exceeds clip 0.5", i, field.Abs(w))
		}
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := seededField(t, 20, 104)
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.Run(ctx, f, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if engine.Steps() != 0 {
		t.Errorf("Steps = %d, want 0 after pre-cancelled run", engine.Steps())
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	run := func() []complex64 {
		f := seededField(t, 30, 105)
		engine, err := NewEngine(DefaultConfig())
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		if err := engine.Run(context.Background(), f, 5); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return f.Weights()
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("weight %d differs between identical runs: %v != %v", i, a[i], b[i])
		}
	}
}

func TestWeightComplexity(t *testing.T) {
	f, err := field.New(8, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	p := field.NewPoint6(0, 0, 0, 0, 0, 0)
	for i := 0; i < 4; i++ {
		if err := f.AddCenter(p.Clone(), complex(1, 0), 0.1); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}
	if c := WeightComplexity(f); c != 0 {
		t.Errorf("uniform magnitudes: complexity = %v, want 0", c)
	}
	if err := f.SetWeight(0, complex(10, 0)); err != nil {
		t.Fatalf("SetWeight: %v", err)
	}
	if c := WeightComplexity(f); c <= 0 || c >= 1 {
		t.Errorf("skewed magnitudes: complexity = %v, want within (0,1)", c)
	}
}
