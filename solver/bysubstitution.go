package solver

import (
	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/constraint"
	"github.com/motionkit/kinet/liegroup"
	"github.com/motionkit/kinet/logger"
	"github.com/motionkit/kinet/segment"
)

// BySubstitution extends the hierarchical solver by eliminating explicit
// constraints: variables they produce are substituted in closed form before
// every residual evaluation, and the Newton iteration searches only the
// remaining free variables, with Jacobians chained through the explicit maps.
type BySubstitution struct {
	HierarchicalIterative
	explicit *ExplicitSet
	sub      *substitutionReducer
}

// NewBySubstitution builds a by-substitution solver over the given
// configuration space.
func NewBySubstitution(space *liegroup.Space) *BySubstitution {
	s := &BySubstitution{
		HierarchicalIterative: *NewHierarchicalIterative(space),
		explicit:              NewExplicitSet(space),
	}
	s.sub = newSubstitutionReducer(space, s.explicit)
	s.red = s.sub
	return s
}

// ExplicitConstraints returns the set of constraints handled by substitution.
func (s *BySubstitution) ExplicitConstraints() *ExplicitSet { return s.explicit }

// FreeVelocity returns the velocity variables the iteration searches.
func (s *BySubstitution) FreeVelocity() segment.Set { return s.sub.free }

// ReducedDimension returns the dimension of the searched velocity space.
func (s *BySubstitution) ReducedDimension() int { return s.sub.dimension() }

// Add registers a constraint. An explicit constraint is routed into the
// substitution set when its output range does not overlap an already
// substituted output and does not create a dependency cycle; otherwise it
// degrades to its implicit form at the given priority level.
func (s *BySubstitution) Add(c constraint.Constraint, priority int) error {
	if ec, ok := c.(*constraint.Explicit); ok {
		err := s.explicit.Add(ec)
		if err == nil {
			s.sub.rebuild()
			return nil
		}
		log := logger.Logger()
		log.Debug().Err(err).
			Str("constraint", ec.ExplicitFunction().Name()).
			Msg("explicit constraint kept in implicit form")
	}
	return s.HierarchicalIterative.Add(c, priority)
}

// RightHandSideFromConfig freezes the rhs of every constraint, substituted or
// implicit, at q.
func (s *BySubstitution) RightHandSideFromConfig(q []float64) {
	s.HierarchicalIterative.RightHandSideFromConfig(q)
	s.explicit.RightHandSideFromConfig(q)
}

// ResidualError evaluates the implicit stacks after substitution on a copy of
// q, appends the residuals of the substituted constraints at q itself, and
// reports whether all of them pass the error threshold. q is not mutated.
func (s *BySubstitution) ResidualError(q []float64) ([]float64, bool) {
	errs, ok := s.HierarchicalIterative.ResidualError(q)
	for _, c := range s.explicit.Constraints() {
		f := c.Function()
		value := liegroup.NewElement(f.OutputSpace())
		res := make([]float64, f.OutputSpace().TangentSize())
		f.Value(value, q)
		c.ResidualError(value, res)
		errs = append(errs, res...)
		if squaredNorm(res) >= s.squaredErrorThreshold {
			ok = false
		}
	}
	return errs, ok
}

// IsSatisfied re-evaluates every constraint at q, without mutating q.
func (s *BySubstitution) IsSatisfied(q []float64) bool {
	_, ok := s.ResidualError(q)
	return ok
}

// substitutionReducer implements the reduced search space of BySubstitution:
// the free variables are the complement of the explicit outputs, and the
// propagation matrix maps free velocity increments to full ones.
type substitutionReducer struct {
	space *liegroup.Space
	set   *ExplicitSet

	free      segment.Set
	toReduced []int
	prop      *mat.Dense // nv × nvFree
}

func newSubstitutionReducer(space *liegroup.Space, set *ExplicitSet) *substitutionReducer {
	r := &substitutionReducer{space: space, set: set}
	r.rebuild()
	return r
}

// rebuild recomputes the free variables and resizes the propagation matrix;
// called whenever a constraint enters the explicit set.
func (r *substitutionReducer) rebuild() {
	nv := r.space.TangentSize()
	r.free = r.set.FreeVelocity()
	r.toReduced = make([]int, nv)
	for i := range r.toReduced {
		r.toReduced[i] = -1
	}
	for k, i := range r.free.Indices() {
		r.toReduced[i] = k
	}
	if nf := r.free.Cardinal(); nf > 0 {
		r.prop = mat.NewDense(nv, nf, nil)
		for k, i := range r.free.Indices() {
			r.prop.Set(i, k, 1)
		}
	} else {
		r.prop = nil
	}
}

func (r *substitutionReducer) prepare(q []float64) { r.set.Solve(q) }

func (r *substitutionReducer) refresh(q []float64) {
	if r.prop != nil {
		r.set.PropagationJacobian(r.prop, q, r.free)
	}
}

func (r *substitutionReducer) dimension() int { return r.free.Cardinal() }

func (r *substitutionReducer) reducedIndex(i int) int { return r.toReduced[i] }

func (r *substitutionReducer) reduce(full, reduced *mat.Dense) {
	reduced.Mul(full, r.prop)
}

func (r *substitutionReducer) expand(reducedStep, fullStep []float64) {
	if r.prop == nil {
		for i := range fullStep {
			fullStep[i] = 0
		}
		return
	}
	nv, nf := r.prop.Dims()
	for i := 0; i < nv; i++ {
		v := 0.0
		for k := 0; k < nf; k++ {
			v += r.prop.At(i, k) * reducedStep[k]
		}
		fullStep[i] = v
	}
}
