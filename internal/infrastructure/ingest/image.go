package ingest

import (
	"errors"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domain "github.com/selectess/TCDE-sub001/internal/domain/ingest"
)

// IngestImage samples the image on a GridSize×GridSize grid and places one
// center per cell in the visual band (m=0.0). Pixels are channel-interleaved
// values in [0,1]. Undersized or malformed input is a no-op.
func (in *Ingestor) IngestImage(f *field.Field, pixels []float32, w, h, channels int, intensity float64) (int, error) {
	if f.Dim() != field.ManifoldDim {
		return 0, field.ErrDimensionMismatch
	}
	grid := in.image.GridSize
	if grid < 1 || w < 1 || h < 1 || channels < 1 || len(pixels) < w*h*channels {
		return 0, nil
	}

	baseTime := f.Time()
	added := 0
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			x0, x1 := gx*w/grid, (gx+1)*w/grid
			y0, y1 := gy*h/grid, (gy+1)*h/grid
			if x1 <= x0 || y1 <= y0 {
				continue
			}

			mean, variance := cellStats(pixels, w, channels, x0, x1, y0, y1)

			p := field.NewPoint6(
				float32(gx)/float32(grid),
				float32(gy)/float32(grid),
				clamp01(float32(mean)),
				float32(baseTime),
				0,
				domain.CoordVisual,
			)
			weight := complex(float32(intensity*mean), 0)
			if !field.WeightFinite(weight) {
				weight = 0
			}
			// Sharper cells (higher local variance) get tighter support.
			width := float32(0.05 + 0.25/(1+50*variance))

			if err := f.AddCenter(p, weight, width); err != nil {
				if errors.Is(err, field.ErrCapacityExceeded) {
					f.AdvanceTime(in.image.TimeAdvance)
					return added, nil
				}
				return added, err
			}
			added++
		}
	}

	f.AdvanceTime(in.image.TimeAdvance)
	return added, nil
}

// cellStats returns the mean and variance of per-pixel intensity over a cell.
func cellStats(pixels []float32, w, channels, x0, x1, y0, y1 int) (mean, variance float64) {
	var sum, sumSq float64
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			base := (y*w + x) * channels
			var px float64
			for c := 0; c < channels; c++ {
				px += float64(pixels[base+c])
			}
			px /= float64(channels)
			sum += px
			sumSq += px * px
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	mean = sum / float64(count)
	variance = sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}
