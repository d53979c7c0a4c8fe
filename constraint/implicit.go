package constraint

import (
	"fmt"

	"github.com/motionkit/kinet/fn"
	"github.com/motionkit/kinet/liegroup"
)

// Constraint is the common surface of implicit and explicit constraints, as
// consumed by the solvers and the codec.
type Constraint interface {
	// Function returns the wrapped residual.
	Function() fn.DifferentiableFunction
	// ComparisonType returns the per-row comparison kinds.
	ComparisonType() ComparisonTypes
	// RightHandSide returns a copy of the rhs, in the residual's output space
	// coordinates.
	RightHandSide() []float64
	// SetRightHandSide sets the rhs. Coordinates of non-Equality rows are
	// forced back to the neutral element.
	SetRightHandSide(rhs []float64) error
	// RightHandSideFromConfig sets the rhs so that q satisfies every Equality
	// row exactly.
	RightHandSideFromConfig(q []float64)
	// ResidualError computes err = value ⊖ rhs in the output tangent space,
	// zeroing inequality rows that are satisfied.
	ResidualError(value *liegroup.Element, err []float64)
	// Copy returns a deep functional copy sharing the function but no mutable
	// state.
	Copy() Constraint
}

// Implicit wraps a differentiable residual with comparison kinds and a
// right-hand side. Immutable besides the rhs.
type Implicit struct {
	function   fn.DifferentiableFunction
	comparison ComparisonTypes
	rhs        *liegroup.Element
}

// NewImplicit builds an implicit constraint. An empty comparison vector
// defaults every output row to EqualToZero when the function has at least one
// active output row; a non-empty vector must match the output-derivative
// dimension.
func NewImplicit(f fn.DifferentiableFunction, comp ComparisonTypes) (*Implicit, error) {
	nv := fn.OutputDerivativeSize(f)
	if len(comp) == 0 && nv > 0 {
		comp = NTimes(nv, EqualToZero)
	}
	if len(comp) != nv {
		return nil, fmt.Errorf("constraint %q: %d comparison kinds for %d output rows", f.Name(), len(comp), nv)
	}
	c := &Implicit{
		function:   f,
		comparison: append(ComparisonTypes(nil), comp...),
		rhs:        liegroup.NewElement(f.OutputSpace()),
	}
	return c, nil
}

func (c *Implicit) Function() fn.DifferentiableFunction { return c.function }

func (c *Implicit) ComparisonType() ComparisonTypes {
	return append(ComparisonTypes(nil), c.comparison...)
}

func (c *Implicit) RightHandSide() []float64 {
	return append([]float64(nil), c.rhs.Coordinates()...)
}

func (c *Implicit) SetRightHandSide(rhs []float64) error {
	if len(rhs) != c.function.OutputSpace().Size() {
		return fmt.Errorf("constraint %q: rhs size %d, output space has size %d",
			c.function.Name(), len(rhs), c.function.OutputSpace().Size())
	}
	c.rhs.Set(rhs)
	c.neutralizeRHS()
	return nil
}

func (c *Implicit) RightHandSideFromConfig(q []float64) {
	c.function.Value(c.rhs, q)
	c.neutralizeRHS()
}

func (c *Implicit) Copy() Constraint {
	return &Implicit{
		function:   c.function,
		comparison: append(ComparisonTypes(nil), c.comparison...),
		rhs:        c.rhs.Clone(),
	}
}

// ResidualError computes err = value ⊖ rhs in the output tangent space, then
// zeroes inequality rows that are satisfied. err has the output-derivative size.
func (c *Implicit) ResidualError(value *liegroup.Element, err []float64) {
	value.Minus(c.rhs, err)
	applyComparison(c.comparison, err)
}

// neutralizeRHS forces rhs coordinates of non-Equality rows to the identity
// element. On flat blocks rows map one to one onto coordinates; a rotation
// block is neutralized as a whole when any of its rows is not Equality, since
// per-coordinate neutralization is not chart independent.
func (c *Implicit) neutralizeRHS() {
	space := c.function.OutputSpace()
	neutral := space.Neutral()
	coords := c.rhs.Coordinates()
	for _, r := range space.Ranges() {
		if r.Flat {
			for i := 0; i < r.VLen; i++ {
				if c.comparison[r.VStart+i] != Equality {
					coords[r.QStart+i] = neutral[r.QStart+i]
				}
			}
			continue
		}
		for i := 0; i < r.VLen; i++ {
			if c.comparison[r.VStart+i] != Equality {
				copy(coords[r.QStart:r.QStart+r.QLen], neutral[r.QStart:r.QStart+r.QLen])
				break
			}
		}
	}
}
