// Package evaluator computes Φ and the quantities derived from it: gradients,
// energy, coherence, and the fractal and correlation dimension estimates.
package evaluator

import (
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/spatial"
)

// DefaultTau is the default cutoff tolerance for indexed evaluation.
const DefaultTau = 1e-4

// Evaluator evaluates a field. The zero value is not usable; construct with New.
type Evaluator struct {
	tau float64
}

// New creates an evaluator with the given cutoff tolerance τ.
// Non-positive values fall back to DefaultTau.
func New(tau float64) *Evaluator {
	if tau <= 0 {
		tau = DefaultTau
	}
	return &Evaluator{tau: tau}
}

// Tau returns the cutoff tolerance.
func (e *Evaluator) Tau() float64 { return e.tau }

// Phi returns Σᵢ wᵢ·ψ(‖p−xᵢ‖_g) with the exact O(n) sum.
// An empty field evaluates to zero.
func (e *Evaluator) Phi(f *field.Field, p field.Point) (complex64, error) {
	if p.Dim() != f.Dim() {
		return 0, field.ErrDimensionMismatch
	}
	kernel := f.Kernel()
	var re, im float64
	for _, c := range f.Centers() {
		metric := c.Metric
		if metric == nil {
			metric = f.Metric()
		}
		r, err := metric.Distance(p, c.Position)
		if err != nil {
			return 0, err
		}
		psi := kernel.Psi(r, float64(c.Width))
		re += float64(real(c.Weight)) * psi
		im += float64(imag(c.Weight)) * psi
	}
	return complex(float32(re), float32(im)), nil
}

// PhiIndexed evaluates Φ summing only centers within a cutoff radius R chosen
// so that ψ(R) < τ·maxᵢ|wᵢ|. Kernels without a finite cutoff (multiquadric,
// thin-plate) fall back to the exact sum. The result agrees with Phi to
// within τ·Σ|wᵢ| in magnitude. A tree built before the last geometry
// mutation is rejected with ErrIndexStale.
func (e *Evaluator) PhiIndexed(f *field.Field, tree *spatial.Tree, p field.Point) (complex64, error) {
	if tree == nil {
		return e.Phi(f, p)
	}
	if tree.Stale(f) {
		return 0, field.ErrIndexStale
	}
	if p.Dim() != f.Dim() {
		return 0, field.ErrDimensionMismatch
	}
	centers := f.Centers()
	if len(centers) == 0 {
		return 0, nil
	}

	var maxW float64
	minEps := math.Inf(1)
	for i := range centers {
		if w := field.Abs(centers[i].Weight); w > maxW {
			maxW = w
		}
		if eps := float64(centers[i].Width); eps < minEps {
			minEps = eps
		}
	}
	if maxW == 0 {
		return 0, nil
	}
	cutoff, ok := f.Kernel().CutoffRadius(minEps, e.tau*maxW)
	if !ok {
		return e.Phi(f, p)
	}

	// The tree is Euclidean; pad the radius by the loosest metric direction
	// (per-center metrics included) so the Riemannian ball stays covered.
	cutoff *= f.CoveringScale()

	neighbors, err := tree.RadiusQuery(p, cutoff)
	if err != nil {
		return 0, err
	}
	kernel := f.Kernel()
	var re, im float64
	for _, nb := range neighbors {
		c := centers[nb.Index]
		metric := c.Metric
		if metric == nil {
			metric = f.Metric()
		}
		r, err := metric.Distance(p, c.Position)
		if err != nil {
			return 0, err
		}
		psi := kernel.Psi(r, float64(c.Width))
		re += float64(real(c.Weight)) * psi
		im += float64(imag(c.Weight)) * psi
	}
	return complex(float32(re), float32(im)), nil
}

// Gradient returns the analytic gradient of Φ at p: per center,
// wᵢ·ψ'(rᵢ)·(g·(p−xᵢ))/rᵢ, with the r=0 contribution defined as zero.
func (e *Evaluator) Gradient(f *field.Field, p field.Point) ([]complex64, error) {
	if p.Dim() != f.Dim() {
		return nil, field.ErrDimensionMismatch
	}
	dim := f.Dim()
	kernel := f.Kernel()
	re := make([]float64, dim)
	im := make([]float64, dim)
	diff := make([]float64, dim)
	gdir := make([]float64, dim)

	for _, c := range f.Centers() {
		metric := c.Metric
		if metric == nil {
			metric = f.Metric()
		}
		r, err := metric.Distance(p, c.Position)
		if err != nil {
			return nil, err
		}
		if r == 0 {
			continue
		}
		for k := 0; k < dim; k++ {
			diff[k] = float64(p[k]) - float64(c.Position[k])
		}
		for k := 0; k < dim; k++ {
			var s float64
			for j := 0; j < dim; j++ {
				s += metric.At(k, j) * diff[j]
			}
			gdir[k] = s / r
		}
		dpsi := kernel.DPsi(r, float64(c.Width))
		wr := float64(real(c.Weight))
		wi := float64(imag(c.Weight))
		for k := 0; k < dim; k++ {
			re[k] += wr * dpsi * gdir[k]
			im[k] += wi * dpsi * gdir[k]
		}
	}

	out := make([]complex64, dim)
	for k := 0; k < dim; k++ {
		out[k] = complex(float32(re[k]), float32(im[k]))
	}
	return out, nil
}

// Energy returns the cached Σ|wᵢ|².
func (e *Evaluator) Energy(f *field.Field) float64 {
	return f.Energy()
}

// Coherence returns |Σwᵢ|/Σ|wᵢ| in [0,1], with 0 for an empty or
// zero-energy field.
func Coherence(f *field.Field) float64 {
	var sumRe, sumIm, sumAbs float64
	for _, c := range f.Centers() {
		sumRe += float64(real(c.Weight))
		sumIm += float64(imag(c.Weight))
		sumAbs += field.Abs(c.Weight)
	}
	if sumAbs == 0 {
		return 0
	}
	coh := math.Hypot(sumRe, sumIm) / sumAbs
	if coh > 1 {
		coh = 1
	}
	return coh
}
