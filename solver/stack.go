package solver

import (
	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/constraint"
	"github.com/motionkit/kinet/fn"
	"github.com/motionkit/kinet/liegroup"
)

// stack gathers the constraints of one priority level into a combined residual
// and Jacobian block.
type stack struct {
	priority    int
	constraints []constraint.Constraint

	// row layout of the combined block
	offsets []int
	rows    int

	// evaluation buffers, one value element per constraint
	values []*liegroup.Element
	err    []float64
	errTmp []float64

	jacobian *mat.Dense // rows × full velocity dimension
	reducedJ *mat.Dense // rows × reduced dimension
	projJ    *mat.Dense // rows × reduced dimension, after null-space projection

	dec pseudoInverse
}

func (st *stack) add(c constraint.Constraint) {
	st.offsets = append(st.offsets, st.rows)
	st.rows += fn.OutputDerivativeSize(c.Function())
	st.constraints = append(st.constraints, c)
	st.values = append(st.values, liegroup.NewElement(c.Function().OutputSpace()))
}

// allocate sizes the evaluation buffers for the given full and reduced velocity
// dimensions. Called at the beginning of every solve: the reduced dimension may
// change when explicit constraints are registered between solves.
func (st *stack) allocate(nv, nvReduced int) {
	if st.rows == 0 {
		return
	}
	st.err = make([]float64, st.rows)
	st.errTmp = make([]float64, st.rows)
	st.jacobian = mat.NewDense(st.rows, nv, nil)
	if nvReduced > 0 {
		st.reducedJ = mat.NewDense(st.rows, nvReduced, nil)
		st.projJ = mat.NewDense(st.rows, nvReduced, nil)
	}
}

// update evaluates the stacked residual error (value ⊖ rhs, inequalities
// clamped) and, when requested, the stacked Jacobian at q.
func (st *stack) update(q []float64, withJacobian bool) {
	for i, c := range st.constraints {
		f := c.Function()
		f.Value(st.values[i], q)
		end := st.rows
		if i+1 < len(st.offsets) {
			end = st.offsets[i+1]
		}
		c.ResidualError(st.values[i], st.err[st.offsets[i]:end])
		if withJacobian {
			block := st.jacobian.Slice(st.offsets[i], end, 0, st.jacobian.RawMatrix().Cols).(*mat.Dense)
			f.Jacobian(block, q)
		}
	}
}

// squaredError returns the squared norm of the stacked residual.
func (st *stack) squaredError() float64 {
	return squaredNorm(st.err)
}
