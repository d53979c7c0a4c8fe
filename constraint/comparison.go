// Package constraint represents geometric relations as differentiable residuals
// with per-row comparison kinds, and provides the explicit specialization whose
// output variables are computed in closed form from a disjoint input subset.
package constraint

// ComparisonType defines what "satisfied" means for one derivative row of a
// residual.
type ComparisonType uint8

const (
	// Equality drives the row to a caller-settable right-hand side.
	Equality ComparisonType = iota
	// EqualToZero drives the row to the identity element; its right-hand side
	// is forced to neutral.
	EqualToZero
	// Superior is the lower-bound inequality: value ≥ rhs.
	Superior
	// Inferior is the upper-bound inequality: value ≤ rhs.
	Inferior
)

func (c ComparisonType) String() string {
	switch c {
	case Equality:
		return "Equality"
	case EqualToZero:
		return "EqualToZero"
	case Superior:
		return "Superior"
	case Inferior:
		return "Inferior"
	}
	return "Unknown"
}

// ComparisonTypes holds one comparison kind per output-derivative row.
type ComparisonTypes []ComparisonType

// NTimes returns n copies of the same comparison kind.
func NTimes(n int, t ComparisonType) ComparisonTypes {
	out := make(ComparisonTypes, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// Equal reports whether two comparison vectors are identical.
func (c ComparisonTypes) Equal(o ComparisonTypes) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}

// applyComparison zeroes the rows of err whose inequality is already satisfied.
// Equality rows are left untouched.
func applyComparison(comp ComparisonTypes, err []float64) {
	for i, c := range comp {
		switch c {
		case Superior:
			if err[i] > 0 {
				err[i] = 0
			}
		case Inferior:
			if err[i] < 0 {
				err[i] = 0
			}
		}
	}
}
