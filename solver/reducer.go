package solver

import (
	"gonum.org/v1/gonum/mat"
)

// reducer maps between the full velocity space and the space the iteration
// actually searches. The generic solver uses the identity; the by-substitution
// solver restricts the search to the variables not produced by an explicit
// constraint and chains derivatives through the explicit maps.
type reducer interface {
	// prepare updates the derived coordinates of q before a residual
	// evaluation (explicit substitution). Must be cheap for the identity case.
	prepare(q []float64)
	// refresh recomputes the derivative propagation at q; called once per
	// iteration, before reduce.
	refresh(q []float64)
	// dimension of the reduced velocity space.
	dimension() int
	// reduce maps a stacked Jacobian over the full velocity space into the
	// reduced one.
	reduce(full, reduced *mat.Dense)
	// expand maps a reduced step back to the full velocity space.
	expand(reducedStep, fullStep []float64)
	// reducedIndex maps a full velocity index to its reduced column, or -1
	// when the variable is not part of the search space.
	reducedIndex(i int) int
}

type identityReducer struct {
	nv int
}

func (r identityReducer) prepare([]float64)  {}
func (r identityReducer) refresh([]float64)  {}
func (r identityReducer) dimension() int     { return r.nv }
func (r identityReducer) reducedIndex(i int) int { return i }

func (r identityReducer) reduce(full, reduced *mat.Dense) {
	reduced.Copy(full)
}

func (r identityReducer) expand(reducedStep, fullStep []float64) {
	copy(fullStep, reducedStep)
}
