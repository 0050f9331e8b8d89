package metrics

import (
	"context"
	"math"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domainingest "github.com/selectess/TCDE-sub001/internal/domain/ingest"
	"github.com/selectess/TCDE-sub001/internal/infrastructure/evaluator"
)

// HISWeights are the relative weights of the holistic integration score
// components. They are normalised at aggregation time; only their ratios
// matter.
type HISWeights struct {
	Reflexivity float64
	Prediction  float64
	CrossModal  float64
	Coherence   float64
	Torsion     float64
}

// DefaultHISWeights returns the reference component weighting.
func DefaultHISWeights() HISWeights {
	return HISWeights{
		Reflexivity: 0.3,
		Prediction:  0.2,
		CrossModal:  0.2,
		Coherence:   0.2,
		Torsion:     0.1,
	}
}

func (w HISWeights) total() float64 {
	return w.Reflexivity + w.Prediction + w.CrossModal + w.Coherence + w.Torsion
}

// HISReport is the holistic integration score with its component values.
// Components are each in [0,1] after mapping; Score is their weighted mean.
type HISReport struct {
	Score       float64
	Reflexivity float64
	Prediction  float64
	CrossModal  float64
	Coherence   float64
	Torsion     float64
}

// HIS computes the holistic integration score of the field. An empty field
// scores zero. The prediction component maps its [-1,1] inner product into
// [0,1]; the torsion component is 1/(1+T) so calmer fields score higher.
func (s *Service) HIS(ctx context.Context, f *field.Field) (HISReport, error) {
	if f.Len() == 0 {
		return HISReport{}, nil
	}
	total := s.cfg.HIS.total()
	if total <= 0 {
		return HISReport{}, field.ErrInvalidParameter
	}

	reflex, err := s.Reflexivity(ctx, f)
	if err != nil {
		return HISReport{}, err
	}
	pred, err := s.Prediction(f, s.cfg.PredictionHorizon)
	if err != nil {
		return HISReport{}, err
	}
	cross, err := s.meanNamedCrossModal(f)
	if err != nil {
		return HISReport{}, err
	}
	coh := evaluator.Coherence(f)
	torsion, err := s.TorsionMagnitude(f, fieldCentroid(f))
	if err != nil {
		return HISReport{}, err
	}

	rep := HISReport{
		Reflexivity: clamp01(reflex),
		Prediction:  clamp01((pred + 1) / 2),
		CrossModal:  clamp01(cross),
		Coherence:   clamp01(coh),
		Torsion:     clamp01(1 / (1 + torsion)),
	}
	rep.Score = (s.cfg.HIS.Reflexivity*rep.Reflexivity +
		s.cfg.HIS.Prediction*rep.Prediction +
		s.cfg.HIS.CrossModal*rep.CrossModal +
		s.cfg.HIS.Coherence*rep.Coherence +
		s.cfg.HIS.Torsion*rep.Torsion) / total
	rep.Score = clamp01(rep.Score)
	return rep, nil
}

// meanNamedCrossModal averages the similarity of adjacent named modality
// bands that actually hold centers; with fewer than two populated bands the
// field is trivially integrated within its single band.
func (s *Service) meanNamedCrossModal(f *field.Field) (float64, error) {
	var populated []float32
	for _, m := range domainingest.Modalities() {
		if len(modalityMembers(f, m.Coordinate())) > 0 {
			populated = append(populated, m.Coordinate())
		}
	}
	if len(populated) < 2 {
		return 1, nil
	}
	var sum float64
	for i := 0; i+1 < len(populated); i++ {
		sim, err := s.CrossModalSimilarity(f, populated[i], populated[i+1])
		if err != nil {
			return 0, err
		}
		sum += sim
	}
	return sum / float64(len(populated)-1), nil
}

// fieldCentroid returns the unweighted mean of the center positions.
func fieldCentroid(f *field.Field) field.Point {
	dim := f.Dim()
	acc := make([]float64, dim)
	centers := f.Centers()
	for i := range centers {
		for k := 0; k < dim; k++ {
			acc[k] += float64(centers[i].Position[k])
		}
	}
	p := field.NewPoint(dim)
	n := float64(len(centers))
	for k := 0; k < dim; k++ {
		p[k] = float32(acc[k] / math.Max(n, 1))
	}
	return p
}
