package ingest

import (
	"errors"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/selectess/TCDE-sub001/internal/domain/field"
	domain "github.com/selectess/TCDE-sub001/internal/domain/ingest"
)

// Pitch search band for the autocorrelation estimate, in Hz.
const (
	pitchMinHz = 60
	pitchMaxHz = 800
)

// IngestAudio runs a multi-scale STFT over the samples and places one center
// per analysis window in the auditory band (m=0.2 plus a small per-scale
// offset). The field time advances by the clip duration. Clips shorter than
// the smallest window are a no-op.
func (in *Ingestor) IngestAudio(f *field.Field, samples []float32, rate int, intensity float64) (int, error) {
	if f.Dim() != field.ManifoldDim {
		return 0, field.ErrDimensionMismatch
	}
	if rate <= 0 || len(in.audio.WindowSizes) == 0 {
		return 0, nil
	}
	minWindow := in.audio.WindowSizes[0]
	for _, ws := range in.audio.WindowSizes {
		if ws < minWindow {
			minWindow = ws
		}
	}
	if len(samples) < minWindow {
		return 0, nil
	}

	baseTime := f.Time()
	added := 0
	for scale, windowSize := range in.audio.WindowSizes {
		if windowSize < 2 || len(samples) < windowSize {
			continue
		}
		hop := windowSize / in.audio.HopDivisor
		if hop < 1 {
			hop = 1
		}
		nWindows := (len(samples)-windowSize)/hop + 1
		scaleWeight := 1.0 / float64(scale+1)
		m := domain.CoordAuditory + float32(scale)*in.audio.ModalityStep

		for w := 0; w < nWindows; w++ {
			frame := samples[w*hop : w*hop+windowSize]
			feat := analyzeFrame(frame, rate)

			p := field.NewPoint6(
				float32(w)/float32(nWindows),
				clamp01(float32(feat.pitch/float64(rate))),
				clamp01(float32(feat.energy)),
				float32(baseTime+float64(w*hop)/float64(rate)),
				float32(feat.coherence*0.1),
				m,
			)
			mag := intensity * feat.energy * feat.harmonic * scaleWeight
			if mag < 0 || math.IsNaN(mag) {
				mag = 0
			}
			weight := field.Polar(mag, 2*math.Pi*feat.pitch/float64(rate))
			width := float32(0.1 + 0.2*feat.noisiness)

			if err := f.AddCenter(p, weight, width); err != nil {
				if errors.Is(err, field.ErrCapacityExceeded) {
					f.AdvanceTime(float64(len(samples)) / float64(rate))
					return added, nil
				}
				return added, err
			}
			added++
		}
	}

	f.AdvanceTime(float64(len(samples)) / float64(rate))
	return added, nil
}

type frameFeatures struct {
	energy    float64 // RMS
	pitch     float64 // dominant-lag estimate, Hz; 0 when unvoiced
	harmonic  float64 // normalized autocorrelation peak, [0,1]
	coherence float64 // alias of the autocorrelation peak, scaled by the caller
	noisiness float64 // blend of spectral flatness proxy and zero crossings
}

// analyzeFrame computes the per-window features: RMS energy, zero-crossing
// rate, and a dominant-lag pitch from the FFT-based autocorrelation.
func analyzeFrame(frame []float32, rate int) frameFeatures {
	n := len(frame)
	var sumSq float64
	crossings := 0
	for i, v := range frame {
		f := float64(v)
		sumSq += f * f
		if i > 0 && (frame[i-1] >= 0) != (v >= 0) {
			crossings++
		}
	}
	rms := math.Sqrt(sumSq / float64(n))
	zcr := float64(crossings) / float64(n-1)

	feat := frameFeatures{energy: rms}
	if sumSq == 0 {
		feat.noisiness = zcr
		return feat
	}

	ac := autocorrelate(frame)
	lagMin := rate / pitchMaxHz
	lagMax := rate / pitchMinHz
	if lagMax >= n {
		lagMax = n - 1
	}
	if lagMin < 1 {
		lagMin = 1
	}
	bestLag, bestVal := 0, 0.0
	for lag := lagMin; lag <= lagMax; lag++ {
		if ac[lag] > bestVal {
			bestVal = ac[lag]
			bestLag = lag
		}
	}
	if bestLag > 0 && bestVal > 0 {
		feat.pitch = float64(rate) / float64(bestLag)
		feat.harmonic = math.Min(bestVal, 1)
	}
	feat.coherence = feat.harmonic
	feat.noisiness = math.Min(0.5*(1-feat.harmonic)+0.5*zcr, 1)
	return feat
}

// autocorrelate returns the normalized autocorrelation of the frame computed
// through the FFT (Wiener–Khinchin), with ac[0] == 1.
func autocorrelate(frame []float32) []float64 {
	n := len(frame)
	padded := make([]float64, nextPow2(2*n))
	for i, v := range frame {
		padded[i] = float64(v)
	}
	spectrum := fft.FFTReal(padded)
	for i, s := range spectrum {
		re := real(s)
		im := imag(s)
		spectrum[i] = complex(re*re+im*im, 0)
	}
	inverse := fft.IFFT(spectrum)

	ac := make([]float64, n)
	norm := real(inverse[0])
	if norm == 0 {
		return ac
	}
	for i := 0; i < n; i++ {
		ac[i] = real(inverse[i]) / norm
	}
	return ac
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
