// Package field provides the core domain types for the cognitive field:
// manifold points, metric tensors, RBF kernels, centers, and the field container.
package field

import "errors"

// Field errors.
var (
	ErrCapacityExceeded  = errors.New("field capacity exceeded")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNumericalBlowup   = errors.New("numerical blowup detected")
	ErrEmptyField        = errors.New("field has no centers")
	ErrIndexStale        = errors.New("spatial index is stale")
)

// Persistence errors.
var (
	ErrCorruptFile = errors.New("corrupt state file")
	ErrIO          = errors.New("i/o error")
)
