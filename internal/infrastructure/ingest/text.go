package ingest

import (
	"errors"
	"math"
	"strings"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domain "github.com/selectess/TCDE-sub001/internal/domain/ingest"
)

// Ingestor converts multimodal inputs into field centers. The embedding
// source is passed in explicitly; there is no process-wide cache.
type Ingestor struct {
	source domain.EmbeddingSource
	text   domain.TextConfig
	image  domain.ImageConfig
	audio  domain.AudioConfig
}

// New creates an ingestor with the default per-modality configuration.
// A nil source selects the character-level fallback.
func New(source domain.EmbeddingSource) *Ingestor {
	if source == nil {
		source = NewCharLevelSource()
	}
	return &Ingestor{
		source: source,
		text:   domain.DefaultTextConfig(),
		image:  domain.DefaultImageConfig(),
		audio:  domain.DefaultAudioConfig(),
	}
}

// NewWithConfig creates an ingestor with explicit per-modality configuration.
func NewWithConfig(source domain.EmbeddingSource, text domain.TextConfig, image domain.ImageConfig, audio domain.AudioConfig) *Ingestor {
	in := New(source)
	in.text = text
	in.image = image
	in.audio = audio
	return in
}

// IngestText places each 4-character n-gram of the lowercased text as a
// center in the semantic band (m=0.4) and advances the field time. Short or
// empty input is a no-op; centers past capacity are dropped silently. The
// number of appended centers is returned.
func (in *Ingestor) IngestText(f *field.Field, text string, intensity float64) (int, error) {
	if f.Dim() != field.ManifoldDim {
		return 0, field.ErrDimensionMismatch
	}
	runes := []rune(strings.ToLower(text))
	window, stride := in.text.WindowSize, in.text.Stride
	if window < 1 || stride < 1 || len(runes) < window {
		return 0, nil
	}

	nWindows := (len(runes)-window)/stride + 1
	baseTime := f.Time()
	added := 0
	for w := 0; w < nWindows; w++ {
		gram := runes[w*stride : w*stride+window]
		desc := in.source.Embed(string(gram), 3)
		var x, y, z float32
		if len(desc) >= 3 {
			x, y, z = clamp01(desc[0]), clamp01(desc[1]), clamp01(desc[2])
		}

		progress := float64(w) / float64(nWindows)
		diversity := runeDiversity(gram)
		content := contentRatio(gram)

		p := field.NewPoint6(
			x, y, z,
			float32(baseTime+progress*in.text.TimeAdvance),
			float32(diversity*0.1),
			domain.CoordSemantic,
		)
		mag := intensity * (0.85 - 0.15*progress) * content
		if mag < 0 || math.IsNaN(mag) {
			mag = 0
		}
		weight := field.Polar(mag, 2*math.Pi*float64(y))
		width := float32(0.15 + 0.1*diversity)

		if err := f.AddCenter(p, weight, width); err != nil {
			if errors.Is(err, field.ErrCapacityExceeded) {
				break
			}
			return added, err
		}
		added++
	}

	f.AdvanceTime(in.text.TimeAdvance)
	return added, nil
}

// runeDiversity is the share of distinct characters in the window.
func runeDiversity(gram []rune) float64 {
	seen := make(map[rune]struct{}, len(gram))
	for _, r := range gram {
		seen[r] = struct{}{}
	}
	return float64(len(seen)) / float64(len(gram))
}

// contentRatio is the share of non-whitespace characters in the window.
func contentRatio(gram []rune) float64 {
	n := 0
	for _, r := range gram {
		if r != ' ' && r != '\t' && r != '\n' {
			n++
		}
	}
	return float64(n) / float64(len(gram))
}
