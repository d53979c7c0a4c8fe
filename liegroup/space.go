// Package liegroup models configuration spaces of articulated mechanisms as
// products of elementary manifolds.
//
// A Space is an ordered product of blocks: flat vector blocks R^n, planar
// rotations SO(2) stored as (cos, sin) and spatial rotations SO(3) stored as unit
// quaternions (x, y, z, w). Configuration vectors live in the chart of dimension
// Size(); velocity vectors live in the tangent space of dimension TangentSize().
// The two differ on rotation blocks, which are over-parameterized.
package liegroup

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/debug"
)

type blockKind uint8

const (
	blockVector blockKind = iota
	blockSO2
	blockSO3
)

type block struct {
	kind blockKind
	nq   int
	nv   int
}

// Space is an ordered product of elementary manifolds. Immutable once built.
type Space struct {
	blocks []block
	nq     int
	nv     int
}

// Rn returns the flat vector space of dimension n.
func Rn(n int) *Space {
	if n < 0 {
		panic(fmt.Sprintf("liegroup: negative dimension %d", n))
	}
	if n == 0 {
		return &Space{}
	}
	return &Space{blocks: []block{{kind: blockVector, nq: n, nv: n}}, nq: n, nv: n}
}

// SO2 returns the space of planar rotations, stored as (cos, sin).
func SO2() *Space {
	return &Space{blocks: []block{{kind: blockSO2, nq: 2, nv: 1}}, nq: 2, nv: 1}
}

// SO3 returns the space of spatial rotations, stored as unit quaternions (x, y, z, w).
func SO3() *Space {
	return &Space{blocks: []block{{kind: blockSO3, nq: 4, nv: 3}}, nq: 4, nv: 3}
}

// Product concatenates spaces into one product space. Adjacent flat blocks are
// merged so that two spaces selecting the same coordinates compare equal.
func Product(spaces ...*Space) *Space {
	out := &Space{}
	for _, s := range spaces {
		for _, b := range s.blocks {
			if n := len(out.blocks); n > 0 && b.kind == blockVector && out.blocks[n-1].kind == blockVector {
				out.blocks[n-1].nq += b.nq
				out.blocks[n-1].nv += b.nv
			} else {
				out.blocks = append(out.blocks, b)
			}
			out.nq += b.nq
			out.nv += b.nv
		}
	}
	return out
}

// Size returns the dimension of configuration vectors.
func (s *Space) Size() int { return s.nq }

// TangentSize returns the dimension of velocity vectors.
func (s *Space) TangentSize() int { return s.nv }

// Name returns a human readable description, e.g. "R^3*SO(3)".
func (s *Space) Name() string {
	if len(s.blocks) == 0 {
		return "R^0"
	}
	parts := make([]string, len(s.blocks))
	for i, b := range s.blocks {
		switch b.kind {
		case blockVector:
			parts[i] = fmt.Sprintf("R^%d", b.nq)
		case blockSO2:
			parts[i] = "SO(2)"
		case blockSO3:
			parts[i] = "SO(3)"
		}
	}
	return strings.Join(parts, "*")
}

// Range locates one block of the product in configuration and velocity
// coordinates. Flat blocks have QLen == VLen.
type Range struct {
	QStart, QLen int
	VStart, VLen int
	Flat         bool
}

// Ranges returns the block layout of the space.
func (s *Space) Ranges() []Range {
	out := make([]Range, len(s.blocks))
	iq, iv := 0, 0
	for i, b := range s.blocks {
		out[i] = Range{QStart: iq, QLen: b.nq, VStart: iv, VLen: b.nv, Flat: b.kind == blockVector}
		iq += b.nq
		iv += b.nv
	}
	return out
}

// Neutral returns the identity element of the space: zero on flat blocks,
// identity rotation on curved blocks.
func (s *Space) Neutral() []float64 {
	q := make([]float64, s.nq)
	iq := 0
	for _, b := range s.blocks {
		switch b.kind {
		case blockSO2:
			q[iq] = 1 // (cos, sin) = (1, 0)
		case blockSO3:
			q[iq+3] = 1 // (x, y, z, w) = (0, 0, 0, 1)
		}
		iq += b.nq
	}
	return q
}

// Integrate computes the retraction out = q ⊕ v: vector addition on flat blocks,
// group composition with exp(v) on rotation blocks. out may alias q.
func (s *Space) Integrate(q, v, out []float64) {
	debug.Assert(len(q) == s.nq, "liegroup: integrate configuration size %d, expected %d", len(q), s.nq)
	debug.Assert(len(v) == s.nv, "liegroup: integrate velocity size %d, expected %d", len(v), s.nv)
	debug.Assert(len(out) == s.nq, "liegroup: integrate result size %d, expected %d", len(out), s.nq)
	iq, iv := 0, 0
	for _, b := range s.blocks {
		switch b.kind {
		case blockVector:
			for i := 0; i < b.nq; i++ {
				out[iq+i] = q[iq+i] + v[iv+i]
			}
		case blockSO2:
			c, sn := q[iq], q[iq+1]
			dc, ds := cosSin(v[iv])
			out[iq] = c*dc - sn*ds
			out[iq+1] = sn*dc + c*ds
		case blockSO3:
			var dq quat
			expSO3(v[iv:iv+3], &dq)
			mul := quatMul(quatOf(q[iq:iq+4]), dq)
			mul.normalize()
			mul.copyTo(out[iq : iq+4])
		}
		iq += b.nq
		iv += b.nv
	}
}

// Difference computes out = q1 ⊖ q0, the velocity that integrates q0 onto q1:
// subtraction on flat blocks, log(q0⁻¹ ∘ q1) on rotation blocks.
func (s *Space) Difference(q1, q0, out []float64) {
	debug.Assert(len(q1) == s.nq && len(q0) == s.nq, "liegroup: difference configuration sizes %d, %d, expected %d", len(q1), len(q0), s.nq)
	debug.Assert(len(out) == s.nv, "liegroup: difference result size %d, expected %d", len(out), s.nv)
	iq, iv := 0, 0
	for _, b := range s.blocks {
		switch b.kind {
		case blockVector:
			for i := 0; i < b.nq; i++ {
				out[iv+i] = q1[iq+i] - q0[iq+i]
			}
		case blockSO2:
			// angle of q0⁻¹ ∘ q1
			c0, s0 := q0[iq], q0[iq+1]
			c1, s1 := q1[iq], q1[iq+1]
			out[iv] = angleOf(c0*c1+s0*s1, c0*s1-s0*c1)
		case blockSO3:
			rel := quatMul(quatOf(q0[iq:iq+4]).conj(), quatOf(q1[iq:iq+4]))
			logSO3(rel, out[iv:iv+3])
		}
		iq += b.nq
		iv += b.nv
	}
}

// DIntegrate multiplies the rows of j, blockwise, by the derivative of the map
// q ↦ Integrate(q, v) with respect to a tangent perturbation of q. On flat blocks
// the derivative is the identity; on SO(3) it is R(exp(v))ᵀ. This is the chain
// rule factor through the retraction needed when a non-trivial offset is
// integrated onto a function value on a curved space.
func (s *Space) DIntegrate(v []float64, j *mat.Dense) {
	r, _ := j.Dims()
	debug.Assert(len(v) == s.nv, "liegroup: dIntegrate velocity size %d, expected %d", len(v), s.nv)
	debug.Assert(r == s.nv, "liegroup: dIntegrate jacobian has %d rows, expected %d", r, s.nv)
	iv := 0
	for _, b := range s.blocks {
		if b.kind == blockSO3 {
			var dq quat
			expSO3(v[iv:iv+3], &dq)
			var rot [9]float64
			dq.rotation(&rot)
			leftMulRows3(j, iv, rot, true)
		}
		// flat and SO(2) blocks: identity
		iv += b.nv
	}
}

// DDifferenceLeft multiplies the rows of j, blockwise, by the derivative of
// d = Difference(q1, q0) with respect to a tangent perturbation of q1, evaluated
// at d. Identity on flat and SO(2) blocks, inverse right Jacobian of the SO(3)
// logarithm on quaternion blocks.
func (s *Space) DDifferenceLeft(d []float64, j *mat.Dense) {
	r, _ := j.Dims()
	debug.Assert(len(d) == s.nv, "liegroup: dDifference tangent size %d, expected %d", len(d), s.nv)
	debug.Assert(r == s.nv, "liegroup: dDifference jacobian has %d rows, expected %d", r, s.nv)
	iv := 0
	for _, b := range s.blocks {
		if b.kind == blockSO3 {
			var jr [9]float64
			jlogInvSO3(d[iv:iv+3], 1, &jr)
			leftMulRows3(j, iv, jr, false)
		}
		iv += b.nv
	}
}

// DDifferenceRight multiplies the rows of j, blockwise, by the derivative of
// d = Difference(q1, q0) with respect to a tangent perturbation of q0, evaluated
// at d. Negated identity on flat and SO(2) blocks, negated inverse left Jacobian
// of the SO(3) logarithm on quaternion blocks.
func (s *Space) DDifferenceRight(d []float64, j *mat.Dense) {
	r, c := j.Dims()
	debug.Assert(len(d) == s.nv, "liegroup: dDifference tangent size %d, expected %d", len(d), s.nv)
	debug.Assert(r == s.nv, "liegroup: dDifference jacobian has %d rows, expected %d", r, s.nv)
	iv := 0
	for _, b := range s.blocks {
		switch b.kind {
		case blockSO3:
			var jl [9]float64
			jlogInvSO3(d[iv:iv+3], -1, &jl)
			for k := range jl {
				jl[k] = -jl[k]
			}
			leftMulRows3(j, iv, jl, false)
		default:
			for i := iv; i < iv+b.nv; i++ {
				for k := 0; k < c; k++ {
					j.Set(i, k, -j.At(i, k))
				}
			}
		}
		iv += b.nv
	}
}

// IsFlat reports whether the space has no rotation block.
func (s *Space) IsFlat() bool {
	for _, b := range s.blocks {
		if b.kind != blockVector {
			return false
		}
	}
	return true
}

// leftMulRows3 replaces the three rows of j starting at row0 with m · rows,
// where m is a 3×3 matrix in row-major order. When transpose is set, mᵀ is
// applied instead.
func leftMulRows3(j *mat.Dense, row0 int, m [9]float64, transpose bool) {
	_, c := j.Dims()
	var tmp [3]float64
	for col := 0; col < c; col++ {
		for i := 0; i < 3; i++ {
			tmp[i] = j.At(row0+i, col)
		}
		for i := 0; i < 3; i++ {
			var v float64
			for k := 0; k < 3; k++ {
				if transpose {
					v += m[3*k+i] * tmp[k]
				} else {
					v += m[3*i+k] * tmp[k]
				}
			}
			j.Set(row0+i, col, v)
		}
	}
}
