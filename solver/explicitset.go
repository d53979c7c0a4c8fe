package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/constraint"
	"github.com/motionkit/kinet/liegroup"
	"github.com/motionkit/kinet/segment"
)

// ExplicitSet owns the explicit constraints eliminated by the by-substitution
// solver. Output configuration ranges of the members are pairwise disjoint, and
// members are kept in a topological order of their input/output dependencies so
// outputs can be computed in one pass; a dependency cycle is rejected when the
// constraint is added, never during iteration.
type ExplicitSet struct {
	space       *liegroup.Space
	constraints []*constraint.Explicit
	order       []int

	outConf segment.Set
	outVel  segment.Set

	// per-constraint evaluation buffers
	qin    [][]float64
	values []*liegroup.Element
	jg     []*mat.Dense
}

// NewExplicitSet builds an empty set over the given configuration space.
func NewExplicitSet(space *liegroup.Space) *ExplicitSet {
	return &ExplicitSet{space: space}
}

// Size returns the number of constraints in the set.
func (e *ExplicitSet) Size() int { return len(e.constraints) }

// Constraints returns the members of the set, in insertion order.
func (e *ExplicitSet) Constraints() []*constraint.Explicit {
	return append([]*constraint.Explicit(nil), e.constraints...)
}

// OutputConf returns the union of the members' output configuration ranges.
func (e *ExplicitSet) OutputConf() segment.Set { return e.outConf }

// OutputVelocity returns the union of the members' output velocity ranges.
func (e *ExplicitSet) OutputVelocity() segment.Set { return e.outVel }

// FreeVelocity returns the velocity variables not produced by any member.
func (e *ExplicitSet) FreeVelocity() segment.Set {
	free, err := segment.Complement(e.space.TangentSize(), e.outVel)
	if err != nil {
		// members are validated against the space on Add
		panic(err)
	}
	return free
}

// Add registers an explicit constraint. It fails when the constraint's output
// range overlaps an already registered output, or when the insertion would
// create a dependency cycle among the members' input/output ranges.
func (e *ExplicitSet) Add(c *constraint.Explicit) error {
	if !segment.Disjoint(c.OutputConf(), e.outConf) {
		return fmt.Errorf("explicit constraint %q: output %v overlaps an already registered output %v",
			c.ExplicitFunction().Name(), c.OutputConf(), e.outConf)
	}
	if last := lastIndex(c.OutputConf()); last > e.space.Size() {
		return fmt.Errorf("explicit constraint %q: output %v exceeds configuration space of size %d",
			c.ExplicitFunction().Name(), c.OutputConf(), e.space.Size())
	}

	candidates := append(append([]*constraint.Explicit(nil), e.constraints...), c)
	order, err := dependencyOrder(candidates)
	if err != nil {
		return err
	}

	g := c.ExplicitFunction()
	e.constraints = candidates
	e.order = order
	e.outConf = segment.Union(e.outConf, c.OutputConf())
	e.outVel = segment.Union(e.outVel, c.OutputVelocity())
	e.qin = append(e.qin, make([]float64, g.InputSize()))
	e.values = append(e.values, liegroup.NewElement(g.OutputSpace()))
	cols := g.InputDerivativeSize()
	if cols < 1 {
		cols = 1
	}
	e.jg = append(e.jg, mat.NewDense(g.OutputSpace().TangentSize(), cols, nil))
	return nil
}

// Solve overwrites the output coordinates of q with the values of the explicit
// maps, in dependency order. Exact to function-evaluation precision.
func (e *ExplicitSet) Solve(q []float64) {
	for _, i := range e.order {
		c := e.constraints[i]
		c.InputConf().Gather(e.qin[i], q)
		c.OutputValue(e.values[i], e.qin[i], c.RightHandSideTangent())
		c.OutputConf().Scatter(q, e.values[i].Coordinates())
	}
}

// PropagationJacobian fills the nv × nvFree matrix mapping increments of the
// free velocity variables to increments of the full velocity vector: identity
// rows for free variables, chained explicit-map Jacobians for output variables.
// q must already satisfy the set (Solve applied).
func (e *ExplicitSet) PropagationJacobian(prop *mat.Dense, q []float64, free segment.Set) {
	_, nf := prop.Dims()
	prop.Zero()
	for k, i := range free.Indices() {
		prop.Set(i, k, 1)
	}
	for _, ci := range e.order {
		c := e.constraints[ci]
		c.InputConf().Gather(e.qin[ci], q)
		c.ExplicitFunction().Value(e.values[ci], e.qin[ci])
		c.JacobianOutputValue(e.qin[ci], e.values[ci], c.RightHandSideTangent(), e.jg[ci])

		inIdx := c.InputVelocity().Indices()
		outIdx := c.OutputVelocity().Indices()
		for r, ri := range outIdx {
			for col := 0; col < nf; col++ {
				v := 0.0
				for k, ki := range inIdx {
					v += e.jg[ci].At(r, k) * prop.At(ki, col)
				}
				prop.Set(ri, col, v)
			}
		}
	}
}

// RightHandSideFromConfig freezes every member's rhs at q.
func (e *ExplicitSet) RightHandSideFromConfig(q []float64) {
	for _, c := range e.constraints {
		c.RightHandSideFromConfig(q)
	}
}

// dependencyOrder topologically sorts constraints so that a constraint reading
// variables produced by another one is evaluated after it.
func dependencyOrder(cs []*constraint.Explicit) ([]int, error) {
	n := len(cs)
	succ := make([][]int, n)
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			// i produces variables that j consumes: i before j
			if !segment.Disjoint(cs[i].OutputConf(), cs[j].InputConf()) {
				succ[i] = append(succ[i], j)
				indeg[j]++
			}
		}
	}
	queue := make([]int, 0, n)
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	order := make([]int, 0, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, j := range succ[i] {
			indeg[j]--
			if indeg[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if len(order) != n {
		return nil, fmt.Errorf("explicit constraints have a cyclic dependency among their input/output ranges")
	}
	return order, nil
}

func lastIndex(s segment.Set) int {
	end := 0
	for _, seg := range s {
		if seg.End() > end {
			end = seg.End()
		}
	}
	return end
}
