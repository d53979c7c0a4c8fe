// Package kinet solves prioritized geometric constraints over the configuration
// manifold of an articulated mechanism.
//
// Constraints are differentiable residual functions (see package fn) wrapped with a
// comparison kind and a right-hand side (package constraint). A solver
// (package solver) stacks constraints into ordered priority levels and runs a
// Newton-type fixed-point iteration that respects joint bounds and the Lie-group
// structure of rotational coordinates (package liegroup).
//
// Two solvers are provided:
//   - solver.HierarchicalIterative: the generic prioritized Newton iteration with
//     null-space projection between levels, saturation and line search.
//   - solver.BySubstitution: eliminates explicit constraints (closed-form maps from
//     one subset of variables to a disjoint one) before iterating on the rest.
package kinet

import (
	"github.com/blang/semver/v4"
)

// Version of the library. Serialized constraints embed it; decoding rejects
// payloads written by a different major version.
var Version = semver.MustParse("0.3.0")
