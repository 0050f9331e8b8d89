// Package ingest provides the domain types for multimodal ingestion: the
// modality table, the embedding source abstraction, and per-modality
// ingestion configuration.
package ingest

// Modality names a region of the m-axis.
type Modality string

const (
	ModalityVisual    Modality = "visual"
	ModalityAuditory  Modality = "auditory"
	ModalitySemantic  Modality = "semantic"
	ModalityMotor     Modality = "motor"
	ModalityEmotional Modality = "emotional"
)

// Canonical m-coordinates of the named modalities.
const (
	CoordVisual    float32 = 0.0
	CoordAuditory  float32 = 0.2
	CoordSemantic  float32 = 0.4
	CoordMotor     float32 = 0.6
	CoordEmotional float32 = 0.8
)

// Modalities returns the named modalities in canonical m-axis order.
func Modalities() []Modality {
	return []Modality{
		ModalityVisual,
		ModalityAuditory,
		ModalitySemantic,
		ModalityMotor,
		ModalityEmotional,
	}
}

// Coordinate returns the canonical m-coordinate of the modality.
// Unknown modalities map to the semantic coordinate.
func (m Modality) Coordinate() float32 {
	switch m {
	case ModalityVisual:
		return CoordVisual
	case ModalityAuditory:
		return CoordAuditory
	case ModalitySemantic:
		return CoordSemantic
	case ModalityMotor:
		return CoordMotor
	case ModalityEmotional:
		return CoordEmotional
	default:
		return CoordSemantic
	}
}

// EmbeddingSource maps a text fragment to a feature vector in [0,1]^dim.
// Ingestion takes the source explicitly; there is no process-wide cache.
// Implementations must be deterministic for a given input.
type EmbeddingSource interface {
	// Embed returns a dim-component descriptor for the fragment.
	Embed(fragment string, dim int) []float32
}

// TextConfig tunes text ingestion.
type TextConfig struct {
	// WindowSize is the n-gram length in characters.
	WindowSize int
	// Stride is the window step in characters.
	Stride int
	// TimeAdvance is added to the field time per ingestion call.
	TimeAdvance float64
}

// DefaultTextConfig returns the 4-character, stride-2 sliding window.
func DefaultTextConfig() TextConfig {
	return TextConfig{WindowSize: 4, Stride: 2, TimeAdvance: 0.1}
}

// ImageConfig tunes image ingestion.
type ImageConfig struct {
	// GridSize is the sampling grid edge; the image is reduced to
	// GridSize×GridSize cells.
	GridSize int
	// TimeAdvance is added to the field time per ingestion call.
	TimeAdvance float64
}

// DefaultImageConfig returns the 8×8 grid sampling.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{GridSize: 8, TimeAdvance: 0.1}
}

// AudioConfig tunes audio ingestion.
type AudioConfig struct {
	// WindowSizes are the STFT window lengths in samples, smallest first.
	WindowSizes []int
	// HopDivisor sets the hop as window/HopDivisor.
	HopDivisor int
	// ModalityStep offsets the m-coordinate per scale so scales remain
	// inside the auditory band but distinguishable.
	ModalityStep float32
}

// DefaultAudioConfig returns the multi-scale {512, 1024, 2048} STFT.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		WindowSizes:  []int{512, 1024, 2048},
		HopDivisor:   4,
		ModalityStep: 0.02,
	}
}
