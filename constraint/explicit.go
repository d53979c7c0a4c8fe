package constraint

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/fn"
	"github.com/motionkit/kinet/liegroup"
	"github.com/motionkit/kinet/segment"
)

// Explicit is a constraint whose output configuration variables are obtained in
// closed form from a disjoint input subset through a map g. Generic consumers
// see it as the implicit residual conf(out) ⊖ g(conf(in)); the by-substitution
// solver bypasses the residual and evaluates g directly.
type Explicit struct {
	Implicit
	g fn.DifferentiableFunction

	inConf  segment.Set
	outConf segment.Set
	inVel   segment.Set
	outVel  segment.Set
}

// NewExplicit builds an explicit constraint over the full configuration space.
// inConf/outConf (resp. inVel/outVel) select the configuration (resp. velocity)
// variables the map reads and writes; the configuration ranges must be disjoint
// and all cardinals must match g's dimensions. An empty comparison vector
// defaults to EqualToZero.
func NewExplicit(space *liegroup.Space, g fn.DifferentiableFunction,
	inConf, outConf, inVel, outVel segment.Set, comp ComparisonTypes) (*Explicit, error) {

	if !segment.Disjoint(inConf, outConf) {
		return nil, fmt.Errorf("explicit constraint %q: input %v and output %v configuration ranges overlap",
			g.Name(), inConf, outConf)
	}
	if n := inConf.Cardinal(); n != g.InputSize() {
		return nil, fmt.Errorf("explicit constraint %q: input range selects %d variables, map reads %d", g.Name(), n, g.InputSize())
	}
	if n := outConf.Cardinal(); n != g.OutputSpace().Size() {
		return nil, fmt.Errorf("explicit constraint %q: output range selects %d variables, map writes %d", g.Name(), n, g.OutputSpace().Size())
	}
	if n := inVel.Cardinal(); n != g.InputDerivativeSize() {
		return nil, fmt.Errorf("explicit constraint %q: input velocity range selects %d variables, map reads %d", g.Name(), n, g.InputDerivativeSize())
	}
	if n := outVel.Cardinal(); n != g.OutputSpace().TangentSize() {
		return nil, fmt.Errorf("explicit constraint %q: output velocity range selects %d variables, map writes %d", g.Name(), n, g.OutputSpace().TangentSize())
	}
	if len(comp) == 0 && outVel.Cardinal() > 0 {
		comp = NTimes(outVel.Cardinal(), EqualToZero)
	}

	residual := newExplicitResidual(space, g, inConf, outConf, inVel, outVel)
	impl, err := NewImplicit(residual, comp)
	if err != nil {
		return nil, err
	}
	return &Explicit{
		Implicit: *impl,
		g:        g,
		inConf:   segment.Shrink(inConf),
		outConf:  segment.Shrink(outConf),
		inVel:    segment.Shrink(inVel),
		outVel:   segment.Shrink(outVel),
	}, nil
}

// ExplicitFunction returns the closed-form map g.
func (c *Explicit) ExplicitFunction() fn.DifferentiableFunction { return c.g }

// InputConf returns the configuration variables the map reads.
func (c *Explicit) InputConf() segment.Set { return c.inConf }

// OutputConf returns the configuration variables the map writes.
func (c *Explicit) OutputConf() segment.Set { return c.outConf }

// InputVelocity returns the velocity variables the map reads.
func (c *Explicit) InputVelocity() segment.Set { return c.inVel }

// OutputVelocity returns the velocity variables the map writes.
func (c *Explicit) OutputVelocity() segment.Set { return c.outVel }

// OutputValue evaluates g(qin) ⊕ rhs into result. qin is the gathered input
// vector, of size g.InputSize(); rhs is a tangent offset of the output space
// (nil means zero). One function evaluation, no iteration.
func (c *Explicit) OutputValue(result *liegroup.Element, qin, rhs []float64) {
	c.g.Value(result, qin)
	if rhs != nil && !allZero(rhs) {
		result.Integrate(rhs)
	}
}

// JacobianOutputValue evaluates ∂g/∂qin into j, then, only for a non-trivial
// rhs, corrects it by the derivative of the output-space retraction at gValue:
// adding rhs on a curved space is not a plain vector addition. On a flat
// output space the retraction is a translation and the correction is the
// identity.
func (c *Explicit) JacobianOutputValue(qin []float64, gValue *liegroup.Element, rhs []float64, j *mat.Dense) {
	c.g.Jacobian(j, qin)
	if rhs != nil && !allZero(rhs) && !c.g.OutputSpace().IsFlat() {
		c.g.OutputSpace().DIntegrate(rhs, j)
	}
}

// RightHandSideTangent returns the rhs as a tangent vector of g's output space.
// The residual's output space is flat, so its coordinates are that vector.
func (c *Explicit) RightHandSideTangent() []float64 {
	return c.RightHandSide()
}

func (c *Explicit) Copy() Constraint {
	return &Explicit{
		Implicit: *(c.Implicit.Copy().(*Implicit)),
		g:        c.g,
		inConf:   c.inConf,
		outConf:  c.outConf,
		inVel:    c.inVel,
		outVel:   c.outVel,
	}
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// explicitResidual is the implicit view of an explicit constraint:
// f(q) = conf(out) ⊖ g(conf(in)), a difference on the output chart. Its output
// space is flat (the tangent of g's output space), so the rhs of the wrapping
// constraint is a plain tangent vector.
type explicitResidual struct {
	fn.Base
	g       fn.DifferentiableFunction
	inConf  segment.Set
	outConf segment.Set
	inVel   segment.Set
	outVel  segment.Set

	// scratch, reused across calls on one goroutine
	qin  []float64
	qout []float64
	gval *liegroup.Element
	d    []float64
	jg   *mat.Dense
	jout *mat.Dense
}

func newExplicitResidual(space *liegroup.Space, g fn.DifferentiableFunction,
	inConf, outConf, inVel, outVel segment.Set) *explicitResidual {

	nvOut := g.OutputSpace().TangentSize()
	nvIn := g.InputDerivativeSize()
	if nvIn < 1 {
		nvIn = 1
	}
	return &explicitResidual{
		Base: fn.NewBase(space.Size(), space.TangentSize(), liegroup.Rn(nvOut),
			fmt.Sprintf("%s (implicit)", g.Name())),
		g:       g,
		inConf:  segment.Shrink(inConf),
		outConf: segment.Shrink(outConf),
		inVel:   segment.Shrink(inVel),
		outVel:  segment.Shrink(outVel),
		qin:     make([]float64, g.InputSize()),
		qout:    make([]float64, g.OutputSpace().Size()),
		gval:    liegroup.NewElement(g.OutputSpace()),
		d:       make([]float64, nvOut),
		jg:      mat.NewDense(nvOut, nvIn, nil),
		jout:    mat.NewDense(nvOut, nvOut, nil),
	}
}

func (r *explicitResidual) Value(result *liegroup.Element, q []float64) {
	r.inConf.Gather(r.qin, q)
	r.outConf.Gather(r.qout, q)
	r.g.Value(r.gval, r.qin)
	r.g.OutputSpace().Difference(r.qout, r.gval.Coordinates(), result.Coordinates())
}

func (r *explicitResidual) Jacobian(j *mat.Dense, q []float64) {
	r.inConf.Gather(r.qin, q)
	r.outConf.Gather(r.qout, q)
	r.g.Value(r.gval, r.qin)
	out := r.g.OutputSpace()
	out.Difference(r.qout, r.gval.Coordinates(), r.d)

	j.Zero()

	// columns of the output variables: ∂(qout ⊖ g)/∂v_out
	r.jout.Zero()
	for i := 0; i < out.TangentSize(); i++ {
		r.jout.Set(i, i, 1)
	}
	out.DDifferenceLeft(r.d, r.jout)
	scatterColumns(j, r.jout, r.outVel)

	// columns of the input variables: ∂(qout ⊖ g)/∂v_g · ∂g/∂v_in
	if r.g.InputDerivativeSize() > 0 {
		r.g.Jacobian(r.jg, r.qin)
		out.DDifferenceRight(r.d, r.jg)
		scatterColumns(j, r.jg, r.inVel)
	}
}

// scatterColumns copies the columns of sub into the columns of j selected by the
// set, in order.
func scatterColumns(j, sub *mat.Dense, cols segment.Set) {
	rows, _ := sub.Dims()
	k := 0
	for _, seg := range cols {
		for c := seg.Start; c < seg.End(); c++ {
			for rw := 0; rw < rows; rw++ {
				j.Set(rw, c, sub.At(rw, k))
			}
			k++
		}
	}
}
