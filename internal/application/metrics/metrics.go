// Package metrics exposes the cognitive metrics surface as pure functions
// over a field: reflexivity, prediction, cross-modal similarity, torsion,
// curvature, and the HIS aggregate. Metrics are tolerant by design: an empty
// field reports 0, never an error.
package metrics

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	domainevo "github.com/selectess/TCDE-sub001/internal/domain/evolution"
	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domainingest "github.com/selectess/TCDE-sub001/internal/domain/ingest"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/evaluator"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/evolution"
)

// modalityTolerance is the m-band half-width for modality membership.
const modalityTolerance = 0.1

// Config tunes the metrics service.
type Config struct {
	// PerturbationStrength scales the reflexivity probe.
	PerturbationStrength float64
	// ReflexivitySteps is the number of evolution steps in the probe.
	ReflexivitySteps int
	// PredictionSamples is the number of manifold sample points.
	PredictionSamples int
	// PredictionHorizon is the τ₂ offset used by the HIS aggregate.
	PredictionHorizon float64
	// Sigma is the cross-modal similarity kernel width.
	Sigma float64
	// Params are the fixed evolution parameters of the reflexivity probe and
	// the α of the field-adapted metric.
	Params domainevo.Params
	// Seed seeds the sampling RNG.
	Seed int64
	// HIS are the aggregate weights.
	HIS HISWeights
}

// DefaultConfig returns the reference metrics configuration.
func DefaultConfig() Config {
	return Config{
		PerturbationStrength: 0.1,
		ReflexivitySteps:     5,
		PredictionSamples:    64,
		PredictionHorizon:    0.1,
		Sigma:                0.15,
		Params:               domainevo.DefaultParams(),
		Seed:                 42,
		HIS:                  DefaultHISWeights(),
	}
}

// Service computes metrics over fields. Not safe for concurrent use: the
// reflexivity probe temporarily mutates the field it measures.
type Service struct {
	cfg  Config
	eval *evaluator.Evaluator
	rng  *rand.Rand
}

// New validates the configuration and creates a service.
func New(cfg Config) (*Service, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.PerturbationStrength < 0 || math.IsNaN(cfg.PerturbationStrength) {
		return nil, fmt.Errorf("%w: perturbation strength %v", field.ErrInvalidParameter, cfg.PerturbationStrength)
	}
	if cfg.ReflexivitySteps < 1 || cfg.PredictionSamples < 1 {
		return nil, fmt.Errorf("%w: metrics sample counts", field.ErrInvalidParameter)
	}
	if !(cfg.Sigma > 0) {
		return nil, fmt.Errorf("%w: sigma %v", field.ErrInvalidParameter, cfg.Sigma)
	}
	return &Service{
		cfg:  cfg,
		eval: evaluator.New(0),
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Reflexivity perturbs the weights, evolves the field for a fixed number of
// steps with fixed parameters, and reports how well the field reconstructs
// its pre-perturbation state: 1 − clamp(reconstruction error, 0, 1). The
// field is restored before returning.
func (s *Service) Reflexivity(ctx context.Context, f *field.Field) (float64, error) {
	if f.Len() == 0 {
		return 0, nil
	}
	snap := f.Snapshot()

	perturbed := make([]complex64, len(snap.Weights))
	for i, w := range snap.Weights {
		scale := s.cfg.PerturbationStrength * (field.Abs(w) + 0.1)
		delta := field.Polar(scale*s.rng.Float64(), 2*math.Pi*s.rng.Float64())
		perturbed[i] = w + delta
	}
	if err := f.ReplaceWeights(perturbed); err != nil {
		return 0, err
	}

	engine, err := evolution.NewEngine(evolution.Config{
		Params: s.cfg.Params,
		Seed:   s.cfg.Seed,
	})
	if err != nil {
		f.Restore(snap)
		return 0, err
	}
	if err := engine.Run(ctx, f, s.cfg.ReflexivitySteps); err != nil {
		f.Restore(snap)
		return 0, err
	}

	var total float64
	for i, c := range f.Centers() {
		weightErr := field.Abs(c.Weight-snap.Weights[i]) / (field.Abs(snap.Weights[i]) + 1e-9)
		posErr := positionError(c.Position, snap.Positions[i])
		total += (weightErr + posErr) / 2
	}
	meanErr := total / float64(f.Len())

	if err := f.Restore(snap); err != nil {
		return 0, err
	}
	return 1 - clamp01(meanErr), nil
}

func positionError(now, then field.Point) float64 {
	sq, err := now.SquaredEuclidean(then)
	if err != nil {
		return 1
	}
	var norm float64
	for _, v := range then {
		norm += float64(v) * float64(v)
	}
	return math.Sqrt(sq) / (math.Sqrt(norm) + 1e-9)
}

// Prediction samples points on the manifold and compares Φ at τ₂=0 against
// Φ at τ₂=horizon, returning the mean normalised real-part inner product
// over samples with non-negligible magnitudes, in [-1,1]. Empty fields and
// vanishing fields report 0.
func (s *Service) Prediction(f *field.Field, horizon float64) (float64, error) {
	if f.Len() == 0 {
		return 0, nil
	}
	if math.IsNaN(horizon) || math.IsInf(horizon, 0) {
		return 0, field.ErrInvalidParameter
	}
	centers := f.Centers()

	var sum float64
	count := 0
	for i := 0; i < s.cfg.PredictionSamples; i++ {
		base := centers[s.rng.Intn(len(centers))].Position
		p := base.Clone()
		for k := range p {
			p[k] += float32(s.rng.NormFloat64() * 0.2)
		}
		p[field.AxisAnticipation] = 0
		now, err := s.eval.Phi(f, p)
		if err != nil {
			return 0, err
		}
		p[field.AxisAnticipation] = float32(horizon)
		ahead, err := s.eval.Phi(f, p)
		if err != nil {
			return 0, err
		}

		magNow, magAhead := field.Abs(now), field.Abs(ahead)
		if magNow*magAhead < 1e-12 {
			continue
		}
		inner := float64(real(now))*float64(real(ahead)) + float64(imag(now))*float64(imag(ahead))
		sum += inner / (magNow * magAhead)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

// CrossModalSimilarity reports how similar the geometry and amplitudes of
// two modality bands are, in [0,1]. Empty bands fall back to
// exp(−|m₁−m₂|/0.3). The result is symmetric in its modality arguments.
func (s *Service) CrossModalSimilarity(f *field.Field, m1, m2 float32) (float64, error) {
	if f.Dim() != field.ManifoldDim {
		return 0, field.ErrDimensionMismatch
	}
	a := modalityMembers(f, m1)
	b := modalityMembers(f, m2)
	if len(a) == 0 || len(b) == 0 {
		return math.Exp(-math.Abs(float64(m1)-float64(m2)) / 0.3), nil
	}
	ab, err := s.directedSimilarity(f, a, b)
	if err != nil {
		return 0, err
	}
	ba, err := s.directedSimilarity(f, b, a)
	if err != nil {
		return 0, err
	}
	return (ab + ba) / 2, nil
}

func modalityMembers(f *field.Field, m float32) []int {
	var out []int
	for i, c := range f.Centers() {
		if math.Abs(float64(c.Modality()-m)) <= modalityTolerance {
			out = append(out, i)
		}
	}
	return out
}

// directedSimilarity blends a nearest-neighbour distance term with a
// magnitude-correlation term over spatially close cross-modal pairs.
func (s *Service) directedSimilarity(f *field.Field, from, to []int) (float64, error) {
	centers := f.Centers()
	metric := f.Metric()
	closeRadius := 2 * s.cfg.Sigma

	var sumSq float64
	var magFrom, magTo []float64
	for _, i := range from {
		best := math.Inf(1)
		bestIdx := -1
		for _, j := range to {
			sq, err := metric.SquaredDistance(centers[i].Position, centers[j].Position)
			if err != nil {
				return 0, err
			}
			if sq < best {
				best = sq
				bestIdx = j
			}
		}
		sumSq += best
		if bestIdx >= 0 && math.Sqrt(best) <= closeRadius {
			magFrom = append(magFrom, field.Abs(centers[i].Weight))
			magTo = append(magTo, field.Abs(centers[bestIdx].Weight))
		}
	}

	meanSq := sumSq / float64(len(from))
	geo := math.Exp(-meanSq / (2 * s.cfg.Sigma * s.cfg.Sigma))
	if len(magFrom) < 1 {
		return geo, nil
	}
	corr := pearson(magFrom, magTo)
	return 0.7*geo + 0.3*(corr+1)/2, nil
}

// pearson returns the correlation of two equal-length samples. Degenerate
// (zero-variance) samples compare by their means.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		if mx == my {
			return 1
		}
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// ModalitySimilarityMatrix computes the named-modality similarity matrix
// from the current field geometry. It is recomputed on demand, never stored.
func (s *Service) ModalitySimilarityMatrix(f *field.Field) ([][]float64, error) {
	mods := domainingest.Modalities()
	out := make([][]float64, len(mods))
	for i := range mods {
		out[i] = make([]float64, len(mods))
		for j := range mods {
			sim, err := s.CrossModalSimilarity(f, mods[i].Coordinate(), mods[j].Coordinate())
			if err != nil {
				return nil, err
			}
			out[i][j] = sim
		}
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
