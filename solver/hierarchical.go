package solver

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/constraint"
	"github.com/motionkit/kinet/liegroup"
	"github.com/motionkit/kinet/logger"
	"github.com/motionkit/kinet/solver/linesearch"
	"github.com/motionkit/kinet/solver/saturation"
)

// a step whose squared norm falls below this while the error is above the
// threshold indicates a stationary point
const dqMinSquaredNorm = 1e-24

// HierarchicalIterative solves a prioritized collection of constraints by a
// Newton-type fixed-point iteration: each priority level computes a velocity
// step through an SVD generalized inverse of its stacked Jacobian, and lower
// levels are projected into the null space of higher ones so they never trade
// away higher-priority accuracy.
//
// Configuration (Add, MaxIterations, ErrorThreshold, Saturation,
// LastIsOptional) must complete before concurrent use; Solve mutates the
// caller's configuration in place and is synchronous.
type HierarchicalIterative struct {
	space  *liegroup.Space
	stacks []*stack

	maxIterations         int
	squaredErrorThreshold float64
	lastIsOptional        bool
	sat                   saturation.Saturation

	red reducer

	// iteration state, valid during one Solve call
	q           []float64 // configuration being solved, caller owned
	dq          []float64 // full-space step; applied as q ⊕ (−α·dq)
	dqMandatory []float64
	dqReduced   []float64
	qTry        []float64
	qPrev       []float64
	qSat        []float64
	vTmp        []float64
	satFlags    []int8
	removedCols []bool
	projector   *mat.Dense

	squaredNorm          float64
	mandatorySquaredNorm float64
	sigma                float64
}

// NewHierarchicalIterative builds a solver over the given configuration space.
func NewHierarchicalIterative(space *liegroup.Space) *HierarchicalIterative {
	return &HierarchicalIterative{
		space:                 space,
		maxIterations:         20,
		squaredErrorThreshold: 1e-6 * 1e-6,
		red:                   identityReducer{nv: space.TangentSize()},
	}
}

// Space returns the configuration space of the solver.
func (s *HierarchicalIterative) Space() *liegroup.Space { return s.space }

// Add registers a constraint at a priority level; level 0 has the highest
// priority. Constraints at the same level are stacked into one combined block.
func (s *HierarchicalIterative) Add(c constraint.Constraint, priority int) error {
	if priority < 0 {
		return fmt.Errorf("negative priority level %d", priority)
	}
	f := c.Function()
	if f.InputSize() != s.space.Size() || f.InputDerivativeSize() != s.space.TangentSize() {
		return fmt.Errorf("constraint %q has input dimensions (%d, %d), space %s has (%d, %d)",
			f.Name(), f.InputSize(), f.InputDerivativeSize(),
			s.space.Name(), s.space.Size(), s.space.TangentSize())
	}
	for _, st := range s.stacks {
		if st.priority == priority {
			st.add(c)
			return nil
		}
	}
	st := &stack{priority: priority}
	st.add(c)
	s.stacks = append(s.stacks, st)
	sort.Slice(s.stacks, func(i, j int) bool { return s.stacks[i].priority < s.stacks[j].priority })
	return nil
}

// NumberStacks returns the number of priority levels in use.
func (s *HierarchicalIterative) NumberStacks() int { return len(s.stacks) }

// MaxIterations caps the number of iterations of one solve; this is also the
// only way to bound its duration.
func (s *HierarchicalIterative) MaxIterations(n int) { s.maxIterations = n }

// ErrorThreshold sets the residual norm below which a solve succeeds.
func (s *HierarchicalIterative) ErrorThreshold(eps float64) {
	s.squaredErrorThreshold = eps * eps
}

// Saturation installs the velocity-step bound policy (nil disables bounds).
func (s *HierarchicalIterative) Saturation(p saturation.Saturation) { s.sat = p }

// LastIsOptional allows the lowest-priority level to remain unsatisfied
// without failing the solve; its step contribution is dropped whenever it
// would worsen the mandatory levels' error.
func (s *HierarchicalIterative) LastIsOptional(b bool) { s.lastIsOptional = b }

// Sigma returns the smallest singular value of the highest-priority stacked
// Jacobian seen during the last solve; a measure of distance to singularity.
func (s *HierarchicalIterative) Sigma() float64 { return s.sigma }

// RightHandSideFromConfig sets every registered constraint's right-hand side so
// that q satisfies it exactly, freezing the relation observed at q for later
// re-solving from nearby configurations.
func (s *HierarchicalIterative) RightHandSideFromConfig(q []float64) {
	for _, st := range s.stacks {
		for _, c := range st.constraints {
			c.RightHandSideFromConfig(q)
		}
	}
}

// IsSatisfied re-evaluates every constraint at q, without mutating q.
func (s *HierarchicalIterative) IsSatisfied(q []float64) bool {
	_, ok := s.ResidualError(q)
	return ok
}

// ResidualError evaluates the stacked residual of every priority level at q
// and reports whether the (mandatory) norm is below the error threshold. q is
// not mutated. Stacks are evaluated concurrently: functions must support
// concurrent evaluation at a frozen configuration with separate buffers, which
// holds since every constraint owns its own.
func (s *HierarchicalIterative) ResidualError(q []float64) ([]float64, bool) {
	s.initBuffers()
	qc := make([]float64, len(q))
	copy(qc, q)
	s.red.prepare(qc)

	var g errgroup.Group
	for _, st := range s.stacks {
		st := st
		g.Go(func() error {
			st.update(qc, false)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // update never fails

	var errOut []float64
	total, mandatory := 0.0, 0.0
	for i, st := range s.stacks {
		errOut = append(errOut, st.err...)
		total += st.squaredError()
		if !(s.lastIsOptional && i == len(s.stacks)-1 && len(s.stacks) > 1) {
			mandatory += st.squaredError()
		}
	}
	norm := total
	if s.lastIsOptional && len(s.stacks) > 1 {
		norm = mandatory
	}
	return errOut, norm < s.squaredErrorThreshold
}

// Solve runs the iteration, mutating q in place. The optional strategy selects
// the step length at each iteration; the default applies full steps.
func (s *HierarchicalIterative) Solve(q []float64, ls ...linesearch.Strategy) Status {
	var strat linesearch.Strategy = linesearch.Constant{Alpha: 1}
	if len(ls) > 0 && ls[0] != nil {
		strat = ls[0]
	}
	strat.Reset()

	s.initBuffers()
	s.q = q
	s.red.prepare(q)
	s.updateStacks(q, true)
	s.computeError()

	errorDecreased := 3
	prev := math.Inf(1)
	iter := 0
	log := logger.Logger()

	for ; s.convergenceNorm() > s.squaredErrorThreshold && errorDecreased > 0 && iter < s.maxIterations; iter++ {
		s.red.refresh(q)
		s.computeSaturatedDescent()
		if squaredNorm(s.dq) < dqMinSquaredNorm {
			log.Debug().Int("iterations", iter).Float64("squaredError", s.convergenceNorm()).
				Msg("solver stalled on a vanishing step")
			return Infeasible
		}

		alpha := strat.StepLength(s)
		prevMandatory := s.mandatorySquaredNorm
		copy(s.qPrev, q)

		s.applyStep(q, s.dq, alpha)
		s.updateStacks(q, true)
		s.computeError()

		// the optional level's contribution is kept only if the mandatory
		// levels did not lose accuracy
		if s.lastIsOptional && len(s.stacks) > 1 && s.mandatorySquaredNorm > prevMandatory {
			copy(q, s.qPrev)
			s.applyStep(q, s.dqMandatory, alpha)
			s.updateStacks(q, true)
			s.computeError()
		}

		if s.convergenceNorm() < prev {
			errorDecreased = 3
		} else {
			errorDecreased--
		}
		prev = s.convergenceNorm()
	}

	status := MaxIterationsReached
	switch {
	case s.convergenceNorm() < s.squaredErrorThreshold:
		status = Success
	case errorDecreased <= 0:
		status = ErrorIncreased
	}
	log.Debug().Int("iterations", iter).Float64("squaredError", s.convergenceNorm()).
		Stringer("status", status).Msg("hierarchical solve")
	return status
}

// SquaredError implements linesearch.Problem.
func (s *HierarchicalIterative) SquaredError() float64 { return s.convergenceNorm() }

// ErrorAtStep implements linesearch.Problem: the squared residual norm after
// applying alpha times the candidate step, without committing it.
func (s *HierarchicalIterative) ErrorAtStep(alpha float64) float64 {
	copy(s.qTry, s.q)
	s.applyStep(s.qTry, s.dq, alpha)
	s.updateStacks(s.qTry, false)
	total, mandatory := s.errorNorms()
	if s.lastIsOptional && len(s.stacks) > 1 {
		return mandatory
	}
	return total
}

// applyStep integrates q ← q ⊕ (−alpha·dq) and refreshes derived coordinates.
func (s *HierarchicalIterative) applyStep(q, dq []float64, alpha float64) {
	for i := range s.vTmp {
		s.vTmp[i] = -alpha * dq[i]
	}
	s.space.Integrate(q, s.vTmp, q)
	s.red.prepare(q)
}

func (s *HierarchicalIterative) updateStacks(q []float64, withJacobian bool) {
	for _, st := range s.stacks {
		st.update(q, withJacobian)
	}
}

func (s *HierarchicalIterative) errorNorms() (total, mandatory float64) {
	for i, st := range s.stacks {
		e := st.squaredError()
		total += e
		if !(s.lastIsOptional && i == len(s.stacks)-1 && len(s.stacks) > 1) {
			mandatory += e
		}
	}
	return total, mandatory
}

func (s *HierarchicalIterative) computeError() {
	s.squaredNorm, s.mandatorySquaredNorm = s.errorNorms()
}

func (s *HierarchicalIterative) convergenceNorm() float64 {
	if s.lastIsOptional && len(s.stacks) > 1 {
		return s.mandatorySquaredNorm
	}
	return s.squaredNorm
}

// computeSaturatedDescent computes the prioritized step and clips it against
// the bounds: degrees of freedom whose step crosses a bound land exactly on it
// and lose their Jacobian column, and the descent is recomputed for the
// remaining ones until no new variable saturates.
func (s *HierarchicalIterative) computeSaturatedDescent() {
	nv := s.space.TangentSize()
	for i := range s.removedCols {
		s.removedCols[i] = false
	}
	clamped := make(map[int]float64)

	for loop := 0; loop <= nv; loop++ {
		s.computeDescent()
		for i, v := range clamped {
			s.dq[i] = v
			s.dqMandatory[i] = v
		}
		if s.sat == nil {
			return
		}

		// candidate configuration under the full unscaled step
		copy(s.qTry, s.q)
		for i := range s.vTmp {
			s.vTmp[i] = -s.dq[i]
		}
		s.space.Integrate(s.qTry, s.vTmp, s.qTry)
		saturated, err := s.sat.Saturate(s.qTry, s.qSat, s.satFlags)
		if err != nil {
			panic(fmt.Sprintf("saturation policy: %v", err))
		}
		if !saturated {
			return
		}

		// land exactly on the clamped configuration
		s.space.Difference(s.qSat, s.q, s.vTmp)
		newly := false
		for i := 0; i < nv; i++ {
			if s.satFlags[i] == 0 || s.removedCols[i] {
				continue
			}
			s.removedCols[i] = true
			clamped[i] = -s.vTmp[i]
			newly = true
		}
		for i := range s.dq {
			s.dq[i] = -s.vTmp[i]
		}
		if !newly {
			return
		}
	}
}

// computeDescent solves the prioritized least-squares cascade: each level's
// reduced Jacobian is projected into the null space of the levels above it and
// pseudo-inverted; contributions accumulate in the reduced step.
func (s *HierarchicalIterative) computeDescent() {
	nr := s.red.dimension()
	if nr == 0 {
		for i := range s.dq {
			s.dq[i] = 0
			s.dqMandatory[i] = 0
		}
		return
	}
	dqR := s.dqReduced[:nr]
	for i := range dqR {
		dqR[i] = 0
	}
	s.sigma = math.Inf(1)

	proj := s.projector.Slice(0, nr, 0, nr).(*mat.Dense)
	proj.Zero()
	for i := 0; i < nr; i++ {
		proj.Set(i, i, 1)
	}

	for idx, st := range s.stacks {
		if st.rows == 0 {
			continue
		}
		s.red.reduce(st.jacobian, st.reducedJ)
		for i, removed := range s.removedCols {
			if !removed {
				continue
			}
			if rc := s.red.reducedIndex(i); rc >= 0 {
				zeroColumn(st.reducedJ, rc)
			}
		}

		if s.lastIsOptional && idx == len(s.stacks)-1 && len(s.stacks) > 1 {
			s.red.expand(dqR, s.dqMandatory)
		}

		// account for the motion already decided by higher levels
		copy(st.errTmp, st.err)
		for r := 0; r < st.rows; r++ {
			v := 0.0
			for c := 0; c < nr; c++ {
				v += st.reducedJ.At(r, c) * dqR[c]
			}
			st.errTmp[r] -= v
		}

		if idx == 0 {
			st.projJ.Copy(st.reducedJ)
		} else {
			st.projJ.Mul(st.reducedJ, proj)
		}
		if !st.dec.factorize(st.projJ) {
			continue
		}
		if idx == 0 {
			s.sigma = st.dec.smallestSingularValue()
		}
		st.dec.solveAdd(dqR, st.errTmp)
		if idx < len(s.stacks)-1 {
			st.dec.subtractRangeProjection(proj)
		}
	}

	s.red.expand(dqR, s.dq)
	if !s.lastIsOptional || len(s.stacks) < 2 {
		copy(s.dqMandatory, s.dq)
	}
}

// initBuffers sizes the iteration state; the reduced dimension may change
// between solves when explicit constraints are added.
func (s *HierarchicalIterative) initBuffers() {
	nq, nv := s.space.Size(), s.space.TangentSize()
	nr := s.red.dimension()
	if s.dq == nil || len(s.dq) != nv || len(s.dqReduced) != nv || s.projector == nil {
		s.dq = make([]float64, nv)
		s.dqMandatory = make([]float64, nv)
		s.dqReduced = make([]float64, nv)
		s.qTry = make([]float64, nq)
		s.qPrev = make([]float64, nq)
		s.qSat = make([]float64, nq)
		s.vTmp = make([]float64, nv)
		s.satFlags = make([]int8, nv)
		s.removedCols = make([]bool, nv)
		s.projector = mat.NewDense(nv, nv, nil)
	}
	for _, st := range s.stacks {
		st.allocate(nv, nr)
	}
}

func zeroColumn(m *mat.Dense, col int) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		m.Set(i, col, 0)
	}
}
