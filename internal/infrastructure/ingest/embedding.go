// Package ingest converts text, image, and audio streams into bursts of RBF
// centers on the manifold, and rotates centers between modality bands.
package ingest

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	domain "github.com/selectess/TCDE-sub001/internal/domain/ingest"
)

// CharLevelSource is the built-in character-level embedding fallback. It is
// deterministic and allocation-light; three-component requests produce the
// semantic descriptor (vowel ratio, bigram hash, length composite), larger
// requests fall back to hash features.
type CharLevelSource struct{}

// NewCharLevelSource returns the character-level fallback source.
func NewCharLevelSource() *CharLevelSource {
	return &CharLevelSource{}
}

// Embed returns a dim-component descriptor in [0,1]^dim.
func (s *CharLevelSource) Embed(fragment string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	if dim == 3 {
		return []float32{
			vowelRatio(fragment),
			bigramFeature(fragment),
			lengthComposite(fragment),
		}
	}
	return hashFeatures(fragment, dim)
}

// vowelRatio is the share of vowels among the letters of the fragment.
func vowelRatio(fragment string) float32 {
	var vowels, letters int
	for _, r := range fragment {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiouAEIOU", r) {
			vowels++
		}
	}
	if letters == 0 {
		return 0
	}
	return float32(vowels) / float32(letters)
}

// bigramFeature hashes consecutive character pairs and reduces modulo 100.
func bigramFeature(fragment string) float32 {
	runes := []rune(fragment)
	if len(runes) < 2 {
		return 0
	}
	h := fnv.New32a()
	for i := 0; i+1 < len(runes); i++ {
		h.Write([]byte(string(runes[i : i+2])))
	}
	return float32(h.Sum32()%100) / 99.0
}

// lengthComposite folds the fragment length with its first and last
// characters into [0,1].
func lengthComposite(fragment string) float32 {
	runes := []rune(fragment)
	if len(runes) == 0 {
		return 0
	}
	first := float64(runes[0]%32) / 32.0
	last := float64(runes[len(runes)-1]%32) / 32.0
	length := float64(len(runes)%16) / 16.0
	return float32((length + first + last) / 3.0)
}

// hashFeatures generates deterministic pseudo-random features in [0,1].
func hashFeatures(fragment string, dim int) []float32 {
	out := make([]float32, dim)
	h := fnv.New64a()
	for i := 0; i < dim; i++ {
		h.Reset()
		h.Write([]byte(fragment))
		h.Write([]byte{byte(i), byte(i >> 8)})
		out[i] = float32(float64(h.Sum64()) / float64(^uint64(0)))
	}
	return out
}

// TableSource serves embeddings from a loaded table with a fallback for
// misses. The caller owns the table's lifetime; ingestion never caches.
type TableSource struct {
	Entries  map[string][]float32
	Fallback domain.EmbeddingSource
}

// NewTableSource creates a table-backed source with the character-level fallback.
func NewTableSource(entries map[string][]float32) *TableSource {
	return &TableSource{Entries: entries, Fallback: NewCharLevelSource()}
}

// Embed returns the table entry when present (truncated or zero-padded to
// dim), the fallback otherwise.
func (s *TableSource) Embed(fragment string, dim int) []float32 {
	if v, ok := s.Entries[fragment]; ok {
		out := make([]float32, dim)
		copy(out, v)
		for i := range out {
			out[i] = clamp01(out[i])
		}
		return out
	}
	if s.Fallback != nil {
		return s.Fallback.Embed(fragment, dim)
	}
	return make([]float32, dim)
}

// clamp01 coerces a derived value into [0,1], mapping non-finite input to 0.
func clamp01(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
