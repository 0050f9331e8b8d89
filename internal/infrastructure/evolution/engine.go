// Package evolution implements the field evolution engine: one Euler step of
// the weight PDE with a diffusion proxy, cubic self-saturation, a torsion
// rotation, and same-modality coupling, plus the optional autopoietic sweep
// and adaptive parameter manager.
package evolution

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	domain "github.com/selectess/TCDE-sub001/internal/domain/evolution"
	"github.com/selectess/TCDE-sub001/internal/domain/field"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/spatial"
)

// interactionFloor is the Gaussian interaction value below which neighbours
// do not participate in the diffusion proxy.
const interactionFloor = 1e-4

// couplingTolerance is the m-coordinate tolerance for the modality coupling term.
const couplingTolerance = 0.05

// DefaultClipMax is the default post-step weight magnitude cap.
const DefaultClipMax = 3.0

// Config configures an engine.
type Config struct {
	Params      domain.Params
	Autopoiesis domain.AutopoiesisConfig
	Adaptive    domain.AdaptiveConfig
	// ClipMax caps the weight magnitude after each step. Zero means DefaultClipMax.
	ClipMax float64
	// Workers bounds the per-step parallelism. Zero means GOMAXPROCS.
	Workers int
	// Seed seeds the autopoiesis RNG.
	Seed int64
}

// DefaultConfig returns the reference engine configuration.
func DefaultConfig() Config {
	return Config{
		Params:      domain.DefaultParams(),
		Autopoiesis: domain.DefaultAutopoiesisConfig(),
		Adaptive:    domain.DefaultAdaptiveConfig(),
		ClipMax:     DefaultClipMax,
		Seed:        42,
	}
}

// Engine advances a field one PDE time-step at a time. An engine drives one
// field; it is not safe for concurrent use.
type Engine struct {
	params   domain.Params
	auto     domain.AutopoiesisConfig
	adaptive *AdaptiveManager
	clipMax  float64
	workers  int
	rng      *rand.Rand

	steps         int
	tree          *spatial.Tree
	energyHistory []float64
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Autopoiesis.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Adaptive.Validate(); err != nil {
		return nil, err
	}
	clip := cfg.ClipMax
	if clip == 0 {
		clip = DefaultClipMax
	}
	if clip < 0 || math.IsNaN(clip) {
		return nil, fmt.Errorf("%w: clip max %v", field.ErrInvalidParameter, cfg.ClipMax)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		params:  cfg.Params,
		auto:    cfg.Autopoiesis,
		clipMax: clip,
		workers: workers,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
	if cfg.Adaptive.Strategy.Enabled() {
		e.adaptive = NewAdaptiveManager(cfg.Adaptive)
	}
	return e, nil
}

// Params returns the engine's current parameters. The adaptive manager may
// change them between steps.
func (e *Engine) Params() domain.Params { return e.params }

// Steps returns the number of committed steps.
func (e *Engine) Steps() int { return e.steps }

// Step advances the field by one Euler step. The step is atomic: on any
// error the field keeps its pre-step state. An empty field is a no-op.
func (e *Engine) Step(ctx context.Context, f *field.Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := f.Len()
	if n == 0 {
		return nil
	}
	if e.tree == nil || e.tree.Stale(f) {
		e.tree = spatial.Build(f)
	}

	oldW := f.Weights()
	newW := make([]complex64, n)
	if err := e.evaluateRHS(ctx, f, oldW, newW); err != nil {
		return err
	}

	// Commit. ReplaceWeights validates finiteness first and applies
	// all-or-nothing, so a blowup leaves the pre-step buffer in place.
	if err := f.ReplaceWeights(newW); err != nil {
		return err
	}
	f.AdvanceTime(e.params.Dt)
	e.steps++
	e.pushEnergy(f.Energy())

	if e.auto.Enabled && e.auto.Period > 0 && e.steps%e.auto.Period == 0 {
		e.autopoiesisSweep(f)
	}
	if e.adaptive != nil {
		e.params = e.adaptive.Update(e.params, f.Energy(), WeightComplexity(f))
	}
	return nil
}

// evaluateRHS fills newW with the post-step weights, reading only the
// pre-step buffer oldW. Centers are processed in parallel chunks; the tree
// and field are read-only during this phase.
func (e *Engine) evaluateRHS(ctx context.Context, f *field.Field, oldW, newW []complex64) error {
	n := len(oldW)
	centers := f.Centers()
	radius := e.interactionRadius() * f.CoveringScale()

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + e.workers - 1) / e.workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, lo+chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				w, err := e.centerRHS(f, centers, oldW, i, radius)
				if err != nil {
					return err
				}
				newW[i] = w
			}
			return nil
		})
	}
	return g.Wait()
}

// centerRHS computes the post-step weight of center i.
func (e *Engine) centerRHS(f *field.Field, centers []field.Center, oldW []complex64, i int, radius float64) (complex64, error) {
	c := centers[i]
	metric := c.Metric
	if metric == nil {
		metric = f.Metric()
	}
	wi := complex(float64(real(oldW[i])), float64(imag(oldW[i])))
	twoSigmaSq := 2 * e.params.Sigma * e.params.Sigma
	mi := float64(c.Modality())

	neighbors, err := e.tree.RadiusQuery(c.Position, radius)
	if err != nil {
		return 0, err
	}

	var diffusion complex128
	var neighborSum complex128
	neighborCount := 0
	var coupled complex128
	bestCoupleDist := math.Inf(1)

	for _, nb := range neighbors {
		if nb.Index == i {
			continue
		}
		d, err := metric.Distance(c.Position, centers[nb.Index].Position)
		if err != nil {
			return 0, err
		}
		k := math.Exp(-d * d / twoSigmaSq)
		if k < interactionFloor {
			continue
		}
		wj := complex(float64(real(oldW[nb.Index])), float64(imag(oldW[nb.Index])))
		diffusion += complex(k, 0) * (wj - wi)
		neighborSum += wj
		neighborCount++
		if math.Abs(float64(centers[nb.Index].Modality())-mi) <= couplingTolerance && d < bestCoupleDist {
			bestCoupleDist = d
			coupled = wj
		}
	}

	neighborMean := wi
	if neighborCount > 0 {
		neighborMean = neighborSum / complex(float64(neighborCount), 0)
	}

	absSq := real(wi)*real(wi) + imag(wi)*imag(wi)
	rhs := complex(e.params.D, 0)*diffusion -
		complex(e.params.Alpha*absSq, 0)*wi +
		complex(0, e.params.Beta)*(wi-neighborMean) +
		complex(e.params.Gamma, 0)*coupled

	next := wi + complex(e.params.Dt, 0)*rhs
	if mag := math.Hypot(real(next), imag(next)); mag > e.clipMax {
		next *= complex(e.clipMax/mag, 0)
	}
	return complex(float32(real(next)), float32(imag(next))), nil
}

// interactionRadius is the geodesic distance beyond which the Gaussian
// interaction kernel falls under interactionFloor.
func (e *Engine) interactionRadius() float64 {
	return e.params.Sigma * math.Sqrt(2*math.Log(1/interactionFloor))
}

// Run advances the field by steps steps, honouring cancellation between
// steps. A cancelled run leaves the field at the last committed step.
func (e *Engine) Run(ctx context.Context, f *field.Field, steps int) error {
	for s := 0; s < steps; s++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := e.Step(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

const energyHistorySize = 16

func (e *Engine) pushEnergy(v float64) {
	e.energyHistory = append(e.energyHistory, v)
	if len(e.energyHistory) > energyHistorySize {
		e.energyHistory = e.energyHistory[1:]
	}
}

// WeightComplexity is the cheap complexity proxy driven by the adaptive
// manager: the coefficient of variation of the weight magnitudes, squashed
// into [0,1). A uniform field scores 0; a heavy-tailed one approaches 1.
func WeightComplexity(f *field.Field) float64 {
	centers := f.Centers()
	if len(centers) < 2 {
		return 0
	}
	var sum float64
	for i := range centers {
		sum += field.Abs(centers[i].Weight)
	}
	mean := sum / float64(len(centers))
	if mean == 0 {
		return 0
	}
	var varsum float64
	for i := range centers {
		d := field.Abs(centers[i].Weight) - mean
		varsum += d * d
	}
	cv := math.Sqrt(varsum/float64(len(centers))) / mean
	return cv / (1 + cv)
}
