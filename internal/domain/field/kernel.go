package field

import "math"

// Kernel tags the radial basis function used by a field. It is chosen at
// construction and immutable thereafter; evaluation dispatches on the tag so
// the hot path stays a plain switch.
type Kernel uint8

const (
	// KernelGaussian is ψ(r) = exp(−ε²r²).
	KernelGaussian Kernel = iota
	// KernelMultiquadric is ψ(r) = √(1+ε²r²).
	KernelMultiquadric
	// KernelInverseMultiquadric is ψ(r) = 1/√(1+ε²r²).
	KernelInverseMultiquadric
	// KernelThinPlate is ψ(r) = r²·ln(r) with ψ(0) = 0.
	KernelThinPlate
)

// Valid reports whether k is a known kernel tag.
func (k Kernel) Valid() bool {
	return k <= KernelThinPlate
}

// String returns the kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelGaussian:
		return "gaussian"
	case KernelMultiquadric:
		return "multiquadric"
	case KernelInverseMultiquadric:
		return "inverse-multiquadric"
	case KernelThinPlate:
		return "thin-plate"
	default:
		return "unknown"
	}
}

// ParseKernel resolves a kernel name to its tag.
func ParseKernel(name string) (Kernel, error) {
	for k := KernelGaussian; k <= KernelThinPlate; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, ErrInvalidParameter
}

// Psi evaluates the kernel at radius r with shape parameter eps.
func (k Kernel) Psi(r, eps float64) float64 {
	switch k {
	case KernelGaussian:
		return math.Exp(-eps * eps * r * r)
	case KernelMultiquadric:
		return math.Sqrt(1 + eps*eps*r*r)
	case KernelInverseMultiquadric:
		return 1 / math.Sqrt(1+eps*eps*r*r)
	case KernelThinPlate:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	default:
		return 0
	}
}

// DPsi evaluates dψ/dr at radius r with shape parameter eps.
func (k Kernel) DPsi(r, eps float64) float64 {
	switch k {
	case KernelGaussian:
		return -2 * eps * eps * r * math.Exp(-eps*eps*r*r)
	case KernelMultiquadric:
		return eps * eps * r / math.Sqrt(1+eps*eps*r*r)
	case KernelInverseMultiquadric:
		u := 1 + eps*eps*r*r
		return -eps * eps * r / (u * math.Sqrt(u))
	case KernelThinPlate:
		if r == 0 {
			return 0
		}
		return 2*r*math.Log(r) + r
	default:
		return 0
	}
}

// PsiMax returns ψ(0), the peak contribution of a unit-weight center.
func (k Kernel) PsiMax() float64 {
	return k.Psi(0, 1)
}

// CutoffRadius returns the radius beyond which ψ(r) < threshold, when one
// exists. Multiquadric and thin-plate kernels grow with r, so no finite
// cutoff applies and ok is false.
func (k Kernel) CutoffRadius(eps, threshold float64) (r float64, ok bool) {
	if threshold <= 0 || eps <= 0 {
		return 0, false
	}
	switch k {
	case KernelGaussian:
		if threshold >= 1 {
			return 0, true
		}
		return math.Sqrt(-math.Log(threshold)) / eps, true
	case KernelInverseMultiquadric:
		if threshold >= 1 {
			return 0, true
		}
		return math.Sqrt(1/(threshold*threshold)-1) / eps, true
	default:
		return 0, false
	}
}
