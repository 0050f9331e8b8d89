// Package tcde provides the public API for the TCDE cognitive field simulator.
//
// This package provides a high-level interface for building a complex-valued
// radial basis field on the 6D cognitive manifold, feeding it multimodal
// input, evolving it in time, and measuring its integration metrics.
//
// Example:
//
//	sim, err := tcde.New(tcde.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := sim.IngestText("hello world", 1.0); err != nil {
//	    log.Fatal(err)
//	}
//	if err := sim.Run(context.Background(), 10); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sim.Energy(), tcde.Coherence(sim.Field()))
package tcde

import (
	"context"

	"github.com/selectess/TCDE-sub001/internal/application/metrics"
	domainevo "github.com/selectess/TCDE-sub001/internal/domain/evolution"
	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domainingest "github.com/selectess/TCDE-sub001/internal/domain/ingest"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/evaluator"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/evolution"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/ingest"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/persistence"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/spatial"
)

// Re-export types for the public API.
type (
	// Field types
	Field        = field.Field
	Point        = field.Point
	Center       = field.Center
	Kernel       = field.Kernel
	MetricTensor = field.MetricTensor
	Snapshot     = field.Snapshot

	// Evolution types
	Params            = domainevo.Params
	Strategy          = domainevo.Strategy
	AdaptiveConfig    = domainevo.AdaptiveConfig
	AutopoiesisConfig = domainevo.AutopoiesisConfig
	EvolutionConfig   = evolution.Config

	// Ingestion types
	Modality        = domainingest.Modality
	EmbeddingSource = domainingest.EmbeddingSource
	TextConfig      = domainingest.TextConfig
	ImageConfig     = domainingest.ImageConfig
	AudioConfig     = domainingest.AudioConfig

	// Metrics types
	MetricsConfig = metrics.Config
	HISWeights    = metrics.HISWeights
	HISReport     = metrics.HISReport

	// Spatial types
	SpatialTree = spatial.Tree
	Neighbor    = spatial.Neighbor
)

// Manifold constants.
const (
	ManifoldDim = field.ManifoldDim
	SliceDim    = field.SliceDim

	AxisX            = field.AxisX
	AxisY            = field.AxisY
	AxisZ            = field.AxisZ
	AxisMemory       = field.AxisMemory
	AxisAnticipation = field.AxisAnticipation
	AxisModality     = field.AxisModality
)

// Kernel variants.
const (
	KernelGaussian            = field.KernelGaussian
	KernelMultiquadric        = field.KernelMultiquadric
	KernelInverseMultiquadric = field.KernelInverseMultiquadric
	KernelThinPlate           = field.KernelThinPlate
)

// Named modalities and their m-axis coordinates.
const (
	ModalityVisual    = domainingest.ModalityVisual
	ModalityAuditory  = domainingest.ModalityAuditory
	ModalitySemantic  = domainingest.ModalitySemantic
	ModalityMotor     = domainingest.ModalityMotor
	ModalityEmotional = domainingest.ModalityEmotional
)

// Adaptive strategies.
const (
	StrategyOff        = domainevo.StrategyOff
	StrategyEnergy     = domainevo.StrategyEnergy
	StrategyComplexity = domainevo.StrategyComplexity
	StrategyGradient   = domainevo.StrategyGradient
	StrategyCombined   = domainevo.StrategyCombined
)

// Sentinel errors.
var (
	ErrCapacityExceeded  = field.ErrCapacityExceeded
	ErrDimensionMismatch = field.ErrDimensionMismatch
	ErrInvalidParameter  = field.ErrInvalidParameter
	ErrNumericalBlowup   = field.ErrNumericalBlowup
	ErrEmptyField        = field.ErrEmptyField
	ErrIndexStale        = field.ErrIndexStale
	ErrCorruptFile       = field.ErrCorruptFile
	ErrIO                = field.ErrIO
)

// Re-exported constructors and helpers.
var (
	DefaultParams            = domainevo.DefaultParams
	DefaultAdaptiveConfig    = domainevo.DefaultAdaptiveConfig
	DefaultAutopoiesisConfig = domainevo.DefaultAutopoiesisConfig
	DefaultEvolutionConfig   = evolution.DefaultConfig
	DefaultMetricsConfig     = metrics.DefaultConfig
	NewPoint6                = field.NewPoint6
	IdentityMetric           = field.IdentityMetric
	DiagonalMetric           = field.DiagonalMetric
	NewMetric                = field.NewMetric
	ParseKernel              = field.ParseKernel
	Coherence                = evaluator.Coherence
	FractalDimension         = evaluator.FractalDimension
	CorrelationDimension     = evaluator.CorrelationDimension
	BuildIndex               = spatial.Build
	RotateModality           = ingest.RotateModality
	NewCharLevelSource       = ingest.NewCharLevelSource
	NewTableSource           = ingest.NewTableSource
)

// Config configures a Simulator.
type Config struct {
	// Capacity is the maximum number of centers.
	Capacity int
	// Kernel selects the radial basis variant.
	Kernel Kernel
	// Tau is the indexed-evaluation cutoff tolerance. Zero selects the default.
	Tau float64
	// Evolution configures the PDE engine.
	Evolution EvolutionConfig
	// Metrics configures the metrics surface.
	Metrics MetricsConfig
	// Embeddings maps text fragments to coordinates. Nil selects the
	// character-level fallback.
	Embeddings EmbeddingSource
	// Text, Image, and Audio tune the per-modality ingestion.
	Text  TextConfig
	Image ImageConfig
	Audio AudioConfig
}

// DefaultConfig returns the reference simulator configuration: a Gaussian
// field of 10000 centers with default evolution and metrics settings.
func DefaultConfig() Config {
	return Config{
		Capacity:  10000,
		Kernel:    KernelGaussian,
		Evolution: evolution.DefaultConfig(),
		Metrics:   metrics.DefaultConfig(),
		Text:      domainingest.DefaultTextConfig(),
		Image:     domainingest.DefaultImageConfig(),
		Audio:     domainingest.DefaultAudioConfig(),
	}
}

// Simulator owns a field and the services operating on it. It is the
// high-level entry point; packages under internal/ expose the same
// functionality piecewise. A Simulator is not safe for concurrent use.
type Simulator struct {
	field    *field.Field
	engine   *evolution.Engine
	eval     *evaluator.Evaluator
	ingestor *ingest.Ingestor
	metrics  *metrics.Service

	tree *spatial.Tree

	slice    *field.Field
	sliceGen uint64
}

// New creates a simulator with an empty field.
func New(cfg Config) (*Simulator, error) {
	f, err := field.New(cfg.Capacity, cfg.Kernel, field.ManifoldDim)
	if err != nil {
		return nil, err
	}
	return wrap(cfg, f)
}

// Load creates a simulator around a field loaded from a snapshot file.
func Load(ctx context.Context, cfg Config, path string) (*Simulator, error) {
	f, err := persistence.LoadState(ctx, path)
	if err != nil {
		return nil, err
	}
	return wrap(cfg, f)
}

func wrap(cfg Config, f *field.Field) (*Simulator, error) {
	engine, err := evolution.NewEngine(cfg.Evolution)
	if err != nil {
		return nil, err
	}
	svc, err := metrics.New(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		field:    f,
		engine:   engine,
		eval:     evaluator.New(cfg.Tau),
		ingestor: ingest.NewWithConfig(cfg.Embeddings, cfg.Text, cfg.Image, cfg.Audio),
		metrics:  svc,
	}, nil
}

// Field returns the underlying field. Mutating it directly is allowed; the
// simulator detects staleness through the field's generation counters.
func (s *Simulator) Field() *Field { return s.field }

// Params returns the engine's current evolution parameters.
func (s *Simulator) Params() Params { return s.engine.Params() }

// IngestText feeds text into the semantic band and returns the number of
// appended centers.
func (s *Simulator) IngestText(text string, intensity float64) (int, error) {
	return s.ingestor.IngestText(s.field, text, intensity)
}

// IngestImage feeds interleaved pixel data into the visual band.
func (s *Simulator) IngestImage(pixels []float32, w, h, channels int, intensity float64) (int, error) {
	return s.ingestor.IngestImage(s.field, pixels, w, h, channels, intensity)
}

// IngestAudio feeds mono samples into the auditory band.
func (s *Simulator) IngestAudio(samples []float32, rate int, intensity float64) (int, error) {
	return s.ingestor.IngestAudio(s.field, samples, rate, intensity)
}

// Step advances the field by one evolution step.
func (s *Simulator) Step(ctx context.Context) error {
	return s.engine.Step(ctx, s.field)
}

// Run advances the field by the given number of steps, honouring
// cancellation between steps.
func (s *Simulator) Run(ctx context.Context, steps int) error {
	return s.engine.Run(ctx, s.field, steps)
}

// Phi evaluates the field at p through the spatial index, rebuilding the
// index if the field changed since the last evaluation.
func (s *Simulator) Phi(p Point) (complex64, error) {
	if s.tree == nil || s.tree.Stale(s.field) {
		s.tree = spatial.Build(s.field)
	}
	return s.eval.PhiIndexed(s.field, s.tree, p)
}

// PhiExact evaluates the field at p with the exact O(n) sum.
func (s *Simulator) PhiExact(p Point) (complex64, error) {
	return s.eval.Phi(s.field, p)
}

// Gradient returns the analytic gradient of Φ at p.
func (s *Simulator) Gradient(p Point) ([]complex64, error) {
	return s.eval.Gradient(s.field, p)
}

// Energy returns Σ|wᵢ|².
func (s *Simulator) Energy() float64 { return s.field.Energy() }

// Phi2D evaluates the reduced introspection slice at (x, y): the projection
// of every center onto its first two coordinates. The slice field is cached
// and rebuilt when the main field changes.
func (s *Simulator) Phi2D(x, y float32) (complex64, error) {
	if s.slice == nil || s.sliceGen != s.field.Generation() {
		slice, err := projectSlice(s.field)
		if err != nil {
			return 0, err
		}
		s.slice = slice
		s.sliceGen = s.field.Generation()
	}
	return s.eval.Phi(s.slice, Point{x, y})
}

func projectSlice(f *field.Field) (*field.Field, error) {
	capacity := f.Capacity()
	if capacity < 1 {
		capacity = 1
	}
	slice, err := field.New(capacity, f.Kernel(), field.SliceDim)
	if err != nil {
		return nil, err
	}
	slice.SetTime(f.Time())
	for _, c := range f.Centers() {
		p := Point{c.Position[field.AxisX], c.Position[field.AxisY]}
		if err := slice.AddCenter(p, c.Weight, c.Width); err != nil {
			return nil, err
		}
	}
	return slice, nil
}

// Rotate moves the centers of the src modality band toward dst by factor t.
func (s *Simulator) Rotate(src, dst Modality, t float64, preserveEnergy bool) (int, error) {
	return ingest.RotateModality(s.field, src.Coordinate(), dst.Coordinate(), t, preserveEnergy)
}

// Save writes the field to a snapshot file.
func (s *Simulator) Save(ctx context.Context, path string) error {
	return persistence.SaveState(ctx, s.field, path)
}

// Verify checks a snapshot file without loading it.
func Verify(ctx context.Context, path string) error {
	return persistence.VerifyState(ctx, path)
}

// Reflexivity runs the perturbation probe.
func (s *Simulator) Reflexivity(ctx context.Context) (float64, error) {
	return s.metrics.Reflexivity(ctx, s.field)
}

// Prediction compares the field against its own anticipation horizon.
func (s *Simulator) Prediction(horizon float64) (float64, error) {
	return s.metrics.Prediction(s.field, horizon)
}

// CrossModalSimilarity reports the similarity of two modality bands.
func (s *Simulator) CrossModalSimilarity(m1, m2 Modality) (float64, error) {
	return s.metrics.CrossModalSimilarity(s.field, m1.Coordinate(), m2.Coordinate())
}

// TorsionMagnitude reports the local phase-rotation drive at p.
func (s *Simulator) TorsionMagnitude(p Point) (float64, error) {
	return s.metrics.TorsionMagnitude(s.field, p)
}

// ScalarCurvature estimates the Ricci scalar of the field-adapted metric at p.
func (s *Simulator) ScalarCurvature(p Point) (float64, error) {
	return s.metrics.ScalarCurvature(s.field, p)
}

// HIS computes the holistic integration score.
func (s *Simulator) HIS(ctx context.Context) (HISReport, error) {
	return s.metrics.HIS(ctx, s.field)
}
