// Package saturation bounds the configurations an iterative solver may visit.
//
// Policies clamp a candidate configuration into per-variable [lower, upper]
// intervals and report which velocity coordinates saturated; the solver applies
// the clamp at the velocity-step level, before integration, so the iteration
// never leaves the feasible box.
package saturation

import (
	"fmt"
	"math"
)

// Saturation clamps a candidate configuration.
//
// qSat receives the clamped copy of q; sat receives, per velocity index, -1
// when the variable saturated at its lower bound, +1 at its upper bound and 0
// otherwise. Returns whether any variable saturated.
type Saturation interface {
	Saturate(q, qSat []float64, sat []int8) (bool, error)
}

// Bounds is a fixed-box policy over flat spaces, where configuration and
// velocity coordinates coincide.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// NewBounds builds a fixed-box policy. Both slices must have the size of the
// configuration; use ±Inf for unbounded variables.
func NewBounds(lower, upper []float64) (*Bounds, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("saturation bounds of sizes %d and %d", len(lower), len(upper))
	}
	for i := range lower {
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("saturation bounds of variable %d are crossed: [%g, %g]", i, lower[i], upper[i])
		}
	}
	return &Bounds{Lower: append([]float64(nil), lower...), Upper: append([]float64(nil), upper...)}, nil
}

func (b *Bounds) Saturate(q, qSat []float64, sat []int8) (bool, error) {
	if len(q) != len(b.Lower) {
		return false, fmt.Errorf("saturation: configuration size %d, bounds size %d", len(q), len(b.Lower))
	}
	saturated := false
	for i, v := range q {
		sat[i] = 0
		qSat[i] = v
		switch {
		case v <= b.Lower[i]:
			qSat[i] = b.Lower[i]
			sat[i] = -1
			saturated = true
		case v >= b.Upper[i]:
			qSat[i] = b.Upper[i]
			sat[i] = 1
			saturated = true
		}
	}
	return saturated, nil
}

// Model exposes the joint limits of an external articulated model. Rotation
// coordinates report ±Inf bounds and a negative tangent index when their chart
// coordinate has no one-to-one velocity counterpart.
type Model interface {
	ConfigSize() int
	VelocitySize() int
	// Bounds returns the configuration-space interval of variable i.
	Bounds(i int) (lower, upper float64)
	// TangentIndex maps configuration index i to its velocity index, or -1.
	TangentIndex(i int) int
}

// Limits derives the saturation policy from a model's joint limits.
type Limits struct {
	Model Model
}

func (l *Limits) Saturate(q, qSat []float64, sat []int8) (bool, error) {
	if len(q) != l.Model.ConfigSize() {
		return false, fmt.Errorf("saturation: configuration size %d, model has %d", len(q), l.Model.ConfigSize())
	}
	for i := range sat {
		sat[i] = 0
	}
	saturated := false
	for i, v := range q {
		qSat[i] = v
		lo, hi := l.Model.Bounds(i)
		iv := l.Model.TangentIndex(i)
		if iv < 0 {
			continue
		}
		switch {
		case !math.IsInf(lo, -1) && v <= lo:
			qSat[i] = lo
			sat[iv] = -1
			saturated = true
		case !math.IsInf(hi, 1) && v >= hi:
			qSat[i] = hi
			sat[iv] = 1
			saturated = true
		}
	}
	return saturated, nil
}
