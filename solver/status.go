// Package solver implements the hierarchical iterative solver: a Newton-type
// fixed-point iteration over ordered priority levels of constraints, with
// null-space projection between levels, velocity-step saturation and pluggable
// line search. The by-substitution variant eliminates explicit constraints
// before iterating.
package solver

// Status is the terminal state of one solve call. Non-convergence is reported,
// never fatal: the caller decides whether to retry from another configuration.
type Status uint8

const (
	// Success: the residual norm went below the error threshold.
	Success Status = iota
	// MaxIterationsReached: the iteration cap was hit first.
	MaxIterationsReached
	// ErrorIncreased: the error norm did not decrease for several consecutive
	// iterations despite line search.
	ErrorIncreased
	// Infeasible: the computed step vanished while the error is above the
	// threshold (stationary point or over-constrained bounds).
	Infeasible
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case MaxIterationsReached:
		return "MaxIterationsReached"
	case ErrorIncreased:
		return "ErrorIncreased"
	case Infeasible:
		return "Infeasible"
	}
	return "Unknown"
}
