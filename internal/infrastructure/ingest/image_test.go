package ingest

import (
	"math"
	"testing"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domain "github.com/selectess/TCDE-sub001/internal/domain/ingest"
)

// gradientImage returns a w×h single-channel image ramping from 0 to 1.
func gradientImage(w, h int) []float32 {
	px := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px[y*w+x] = float32(x) / float32(w-1)
		}
	}
	return px
}

func TestIngestImagePlacesVisualCenters(t *testing.T) {
	f := newIngestField(t, 128)
	in := New(nil)

	added, err := in.IngestImage(f, gradientImage(16, 16), 16, 16, 1, 1.0)
	if err != nil {
		t.Fatalf("IngestImage: %v", err)
	}
	// 8×8 grid over a 16×16 image: one center per cell.
	if added != 64 {
		t.Errorf("added = %d, want 64", added)
	}
	for i, c := range f.Centers() {
		if c.Modality() != domain.CoordVisual {
			t.Errorf("center %d: modality = %v, want %v", i, c.Modality(), domain.CoordVisual)
		}
		if imag(c.Weight) != 0 {
			t.Errorf("center %d: weight = %v, want real-valued", i, c.Weight)
		}
	}
	if math.Abs(f.Time()-0.1) > 1e-6 {
		t.Errorf("time = %v, want 0.1", f.Time())
	}
}

func TestIngestImageBrightCellsWeighHeavier(t *testing.T) {
	f := newIngestField(t, 128)
	if _, err := New(nil).IngestImage(f, gradientImage(16, 16), 16, 16, 1, 1.0); err != nil {
		t.Fatalf("IngestImage: %v", err)
	}
	centers := f.Centers()
	// First cell of a row is the dark edge, last the bright edge.
	left := field.Abs(centers[0].Weight)
	right := field.Abs(centers[7].Weight)
	if right <= left {
		t.Errorf("bright cell weight %v not above dark cell weight %v", right, left)
	}
}

func TestIngestImageMalformedInputNoOp(t *testing.T) {
	f := newIngestField(t, 128)
	in := New(nil)
	for _, tc := range []struct {
		name          string
		pixels        []float32
		w, h, channel int
	}{
		{"short buffer", make([]float32, 10), 16, 16, 1},
		{"zero width", make([]float32, 256), 0, 16, 1},
		{"zero channels", make([]float32, 256), 16, 16, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			added, err := in.IngestImage(f, tc.pixels, tc.w, tc.h, tc.channel, 1.0)
			if err != nil {
				t.Fatalf("IngestImage: %v", err)
			}
			if added != 0 {
				t.Errorf("added = %d, want 0", added)
			}
		})
	}
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
}
