package solver

import (
	"gonum.org/v1/gonum/mat"
)

const machineEpsilon = 2.220446049250313e-16

// pseudoInverse is a rank-revealing decomposition used as a Moore-Penrose
// inverse. Small singular values are thresholded relative to the largest one,
// tol = max(m,n)·eps·σmax, so a rank-deficient Jacobian degrades to a zero step
// along unidentifiable directions instead of failing.
type pseudoInverse struct {
	svd    mat.SVD
	u      mat.Dense
	v      mat.Dense
	values []float64
	rank   int
}

// factorize decomposes a. Returns false when the decomposition itself fails,
// which gonum only reports for non-finite input.
func (p *pseudoInverse) factorize(a *mat.Dense) bool {
	if !p.svd.Factorize(a, mat.SVDThin) {
		return false
	}
	// UTo/VTo require an empty dst or one matching the new factorization's
	// dimensions; the previous factorization may have had different ones
	p.u.Reset()
	p.v.Reset()
	p.svd.UTo(&p.u)
	p.svd.VTo(&p.v)

	// Values requires a slice of exactly min(m,n) (or nil); the previous
	// factorization may have had different dimensions
	m, n := a.Dims()
	if k := min(m, n); len(p.values) != k {
		p.values = make([]float64, k)
	}
	p.values = p.svd.Values(p.values)

	tol := 0.0
	if len(p.values) > 0 {
		tol = float64(max(m, n)) * machineEpsilon * p.values[0]
	}
	p.rank = 0
	for _, s := range p.values {
		if s > tol {
			p.rank++
		}
	}
	return true
}

// smallestSingularValue returns σmin of the last factorized matrix (0 for an
// empty decomposition).
func (p *pseudoInverse) smallestSingularValue() float64 {
	if len(p.values) == 0 {
		return 0
	}
	return p.values[len(p.values)-1]
}

// solveAdd accumulates dst += A⁺·b using the truncated factorization.
func (p *pseudoInverse) solveAdd(dst, b []float64) {
	for k := 0; k < p.rank; k++ {
		c := 0.0
		for i := range b {
			c += p.u.At(i, k) * b[i]
		}
		c /= p.values[k]
		for j := range dst {
			dst[j] += c * p.v.At(j, k)
		}
	}
}

// subtractRangeProjection updates proj ← proj − V₁·V₁ᵀ, removing the row space
// of the factorized matrix. Applied to an orthogonal projector it yields the
// projector onto the intersection with the matrix's null space.
func (p *pseudoInverse) subtractRangeProjection(proj *mat.Dense) {
	n, _ := proj.Dims()
	for k := 0; k < p.rank; k++ {
		for i := 0; i < n; i++ {
			vi := p.v.At(i, k)
			if vi == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				proj.Set(i, j, proj.At(i, j)-vi*p.v.At(j, k))
			}
		}
	}
}

func squaredNorm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
