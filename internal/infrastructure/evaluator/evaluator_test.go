package evaluator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/spatial"
)

func TestPhiSingleCenter(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	p := field.NewPoint6(0.3, 0.1, 0.7, 0, 0, 0.4)
	w := complex(float32(0.8), float32(-0.2))
	if err := f.AddCenter(p, w, 0.2); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}

	eval := New(0)
	got, err := eval.Phi(f, p)
	if err != nil {
		t.Fatalf("Phi: %v", err)
	}
	// ψ(0) = 1, so Φ at the center is the weight itself.
	if field.Abs(got-w) > 1e-6 {
		t.Errorf("Phi at center = %v, want %v", got, w)
	}
}

func TestPhiTwoCenterInterference(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(-0.5, 0, 0, 0, 0, 0), complex(1, 0), 0.3); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(0.5, 0, 0, 0, 0, 0), complex(-1, 0), 0.3); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}

	eval := New(0)
	mid := field.NewPoint6(0, 0, 0, 0, 0, 0)
	got, err := eval.Phi(f, mid)
	if err != nil {
		t.Fatalf("Phi: %v", err)
	}
	if field.Abs(got) > 1e-6 {
		t.Errorf("Phi at midpoint = %v, want destructive cancellation to ~0", got)
	}
	if c := Coherence(f); c > 1e-9 {
		t.Errorf("Coherence = %v, want 0 for opposing weights", c)
	}
	if e := f.Energy(); math.Abs(e-2) > 1e-9 {
		t.Errorf("Energy = %v, want 2", e)
	}
}

func TestPhiBound(t *testing.T) {
	// |Φ| never exceeds ψ_max · Σ|wᵢ| for a decaying kernel.
	f, err := field.New(64, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	var sumAbs float64
	for i := 0; i < 40; i++ {
		p := field.NewPoint6(
			rng.Float32(), rng.Float32(), rng.Float32(),
			rng.Float32(), rng.Float32(), rng.Float32(),
		)
		w := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		if err := f.AddCenter(p, w, 0.1+rng.Float32()); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
		sumAbs += field.Abs(w)
	}

	eval := New(0)
	bound := f.Kernel().PsiMax() * sumAbs
	for trial := 0; trial < 20; trial++ {
		q := field.NewPoint6(
			rng.Float32(), rng.Float32(), rng.Float32(),
			rng.Float32(), rng.Float32(), rng.Float32(),
		)
		got, err := eval.Phi(f, q)
		if err != nil {
			t.Fatalf("Phi: %v", err)
		}
		if field.Abs(got) > bound+1e-6 {
			t.Errorf("|Phi| = %v exceeds bound %v", field.Abs(got), bound)
		}
	}
}

func TestPhiEmptyField(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	eval := New(0)
	got, err := eval.Phi(f, field.NewPoint6(0, 0, 0, 0, 0, 0))
	if err != nil {
		t.Fatalf("Phi: %v", err)
	}
	if got != 0 {
		t.Errorf("Phi on empty field = %v, want 0", got)
	}
}

func TestPhiDimensionMismatch(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	eval := New(0)
	if _, err := eval.Phi(f, field.Point{0, 0}); !errors.Is(err, field.ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestPhiIndexedAgreesWithExact(t *testing.T) {
	f, err := field.New(256, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	rng := rand.New(rand.NewSource(11))
	var sumAbs float64
	for i := 0; i < 200; i++ {
		p := field.NewPoint6(
			rng.Float32()*2, rng.Float32()*2, rng.Float32()*2,
			rng.Float32(), rng.Float32(), rng.Float32(),
		)
		w := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		if err := f.AddCenter(p, w, 0.5+rng.Float32()); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
		sumAbs += field.Abs(w)
	}

	eval := New(1e-4)
	tree := spatial.Build(f)
	tol := eval.Tau()*sumAbs + 1e-5

	for trial := 0; trial < 30; trial++ {
		q := field.NewPoint6(
			rng.Float32()*2, rng.Float32()*2, rng.Float32()*2,
			rng.Float32(), rng.Float32(), rng.Float32(),
		)
		exact, err := eval.Phi(f, q)
		if err != nil {
			t.Fatalf("Phi: %v", err)
		}
		indexed, err := eval.PhiIndexed(f, tree, q)
		if err != nil {
			t.Fatalf("PhiIndexed: %v", err)
		}
		if diff := field.Abs(exact - indexed); diff > tol {
			t.Errorf("trial %d: |exact−indexed| = %v exceeds tolerance %v", trial, diff, tol)
		}
	}
}

func TestPhiIndexedStaleTree(t *testing.T) {
	f, err := field.New(8, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(0, 0, 0, 0, 0, 0), 1, 0.2); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	tree := spatial.Build(f)
	if err := f.SetCoordinate(0, field.AxisX, 0.5); err != nil {
		t.Fatalf("SetCoordinate: %v", err)
	}

	eval := New(0)
	if _, err := eval.PhiIndexed(f, tree, field.NewPoint6(0, 0, 0, 0, 0, 0)); !errors.Is(err, field.ErrIndexStale) {
		t.Errorf("error = %v, want ErrIndexStale", err)
	}
}

func TestPhiIndexedSurvivesWeightUpdate(t *testing.T) {
	f, err := field.New(8, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(0, 0, 0, 0, 0, 0), 1, 0.2); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	tree := spatial.Build(f)
	if err := f.SetWeight(0, complex(2, 0)); err != nil {
		t.Fatalf("SetWeight: %v", err)
	}

	eval := New(0)
	got, err := eval.PhiIndexed(f, tree, field.NewPoint6(0, 0, 0, 0, 0, 0))
	if err != nil {
		t.Fatalf("PhiIndexed after weight update: %v", err)
	}
	if math.Abs(float64(real(got))-2) > 1e-6 {
		t.Errorf("Φ = %v, want the updated weight 2", got)
	}
}

func TestPhiIndexedNonDiagonalMetric(t *testing.T) {
	// g = [[1, 0.99], [0.99, 1]] has λ_min = 0.01, so points along (1, −1)
	// are ten times closer in the metric than in Euclidean space. The cutoff
	// radius must be padded accordingly or distant-looking centers that still
	// contribute get dropped.
	f, err := field.New(64, field.KernelGaussian, 2)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	metric, err := field.NewMetric(2, []float32{1, 0.99, 0.99, 1})
	if err != nil {
		t.Fatalf("NewMetric: %v", err)
	}
	if err := f.SetMetric(metric); err != nil {
		t.Fatalf("SetMetric: %v", err)
	}
	var sumW float64
	for i := 0; i <= 40; i++ {
		d := float32(i) * 0.5
		if err := f.AddCenter(field.Point{d, -d}, 1, 1.0); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
		sumW++
	}

	eval := New(0)
	tree := spatial.Build(f)
	q := field.Point{0, 0}
	exact, err := eval.Phi(f, q)
	if err != nil {
		t.Fatalf("Phi: %v", err)
	}
	indexed, err := eval.PhiIndexed(f, tree, q)
	if err != nil {
		t.Fatalf("PhiIndexed: %v", err)
	}
	tol := eval.Tau()*sumW + 1e-5
	if diff := field.Abs(exact - indexed); diff > tol {
		t.Errorf("|exact−indexed| = %v exceeds the τ·Σ|w| bound %v", diff, tol)
	}
}

func TestPhiIndexedGrowingKernelFallsBack(t *testing.T) {
	f, err := field.New(8, field.KernelMultiquadric, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(0.5, 0, 0, 0, 0, 0), complex(1, 0), 0.3); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	tree := spatial.Build(f)

	eval := New(0)
	q := field.NewPoint6(0, 0, 0, 0, 0, 0)
	exact, err := eval.Phi(f, q)
	if err != nil {
		t.Fatalf("Phi: %v", err)
	}
	indexed, err := eval.PhiIndexed(f, tree, q)
	if err != nil {
		t.Fatalf("PhiIndexed: %v", err)
	}
	if exact != indexed {
		t.Errorf("multiquadric indexed evaluation = %v, want exact %v", indexed, exact)
	}
}

func TestGradientZeroAtLoneCenter(t *testing.T) {
	f, err := field.New(4, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	p := field.NewPoint6(0.2, 0.4, 0.6, 0, 0, 0)
	if err := f.AddCenter(p, complex(1, 1), 0.2); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}

	eval := New(0)
	grad, err := eval.Gradient(f, p)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}
	for k, g := range grad {
		if g != 0 {
			t.Errorf("gradient[%d] = %v, want 0 at the kernel peak", k, g)
		}
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	f, err := field.New(8, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(0.5, 0.5, 0, 0, 0, 0), complex(1, 0), 0.4); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}
	if err := f.AddCenter(field.NewPoint6(-0.3, 0.2, 0.1, 0, 0, 0), complex(0, 1), 0.6); err != nil {
		t.Fatalf("AddCenter: %v", err)
	}

	eval := New(0)
	q := field.NewPoint6(0.1, 0.1, 0.1, 0, 0, 0)
	grad, err := eval.Gradient(f, q)
	if err != nil {
		t.Fatalf("Gradient: %v", err)
	}

	const h = 1e-3
	for axis := 0; axis < field.ManifoldDim; axis++ {
		plus := q.Clone()
		plus[axis] += h
		minus := q.Clone()
		minus[axis] -= h
		fp, err := eval.Phi(f, plus)
		if err != nil {
			t.Fatalf("Phi: %v", err)
		}
		fm, err := eval.Phi(f, minus)
		if err != nil {
			t.Fatalf("Phi: %v", err)
		}
		fdRe := (float64(real(fp)) - float64(real(fm))) / (2 * h)
		fdIm := (float64(imag(fp)) - float64(imag(fm))) / (2 * h)
		if math.Abs(fdRe-float64(real(grad[axis]))) > 5e-3 {
			t.Errorf("axis %d: analytic re %v, finite difference %v", axis, real(grad[axis]), fdRe)
		}
		if math.Abs(fdIm-float64(imag(grad[axis]))) > 5e-3 {
			t.Errorf("axis %d: analytic im %v, finite difference %v", axis, imag(grad[axis]), fdIm)
		}
	}
}

func TestCoherenceAligned(t *testing.T) {
	f, err := field.New(8, field.KernelGaussian, field.ManifoldDim)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	for i := 0; i < 4; i++ {
		p := field.NewPoint6(float32(i)*0.1, 0, 0, 0, 0, 0)
		if err := f.AddCenter(p, complex(0.5, 0.5), 0.2); err != nil {
			t.Fatalf("AddCenter: %v", err)
		}
	}
	if c := Coherence(f); math.Abs(c-1) > 1e-6 {
		t.Errorf("Coherence of aligned weights = %v, want 1", c)
	}
	if c := Coherence(&field.Field{}); c != 0 {
		t.Errorf("Coherence of empty field = %v, want 0", c)
	}
}
