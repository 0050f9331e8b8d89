package field

import "math"

// Weight is the complex amplitude carried by a center.
// The field stores weights as pairs of 32-bit floats; helpers below do the
// float64 math that complex64 lacks in the standard library.
type Weight = complex64

// Abs returns the magnitude |w|.
func Abs(w complex64) float64 {
	return math.Hypot(float64(real(w)), float64(imag(w)))
}

// AbsSq returns the squared magnitude |w|².
func AbsSq(w complex64) float64 {
	re := float64(real(w))
	im := float64(imag(w))
	return re*re + im*im
}

// Phase returns the argument of w in (-π, π].
func Phase(w complex64) float64 {
	return math.Atan2(float64(imag(w)), float64(real(w)))
}

// Conj returns the complex conjugate of w.
func Conj(w complex64) complex64 {
	return complex(real(w), -imag(w))
}

// Scale multiplies w by a real scalar.
func Scale(w complex64, s float64) complex64 {
	return complex(float32(float64(real(w))*s), float32(float64(imag(w))*s))
}

// Polar builds a complex weight from magnitude and phase.
func Polar(mag, phase float64) complex64 {
	return complex(float32(mag*math.Cos(phase)), float32(mag*math.Sin(phase)))
}

// WeightFinite reports whether both components of w are finite.
func WeightFinite(w complex64) bool {
	return isFinite(real(w)) && isFinite(imag(w))
}
