// Package linesearch provides the step-length strategies of the hierarchical
// solver. A strategy receives the current error norm and may probe candidate
// step lengths; it returns a scalar in (0, 1].
package linesearch

import "math"

// Problem is the view a strategy gets of one solver iteration.
type Problem interface {
	// SquaredError is the squared residual norm at the current configuration.
	SquaredError() float64
	// ErrorAtStep is the squared residual norm after applying alpha times the
	// candidate step to the current configuration. The configuration is not
	// modified.
	ErrorAtStep(alpha float64) float64
}

// Strategy selects the step length applied at each iteration.
type Strategy interface {
	// Reset is called once at the beginning of every solve.
	Reset()
	// StepLength returns the scaling of the candidate step, in (0, 1].
	StepLength(p Problem) float64
}

// Constant applies a fixed factor.
type Constant struct {
	Alpha float64
}

func (c Constant) Reset() {}

func (c Constant) StepLength(Problem) float64 {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return 1
	}
	return c.Alpha
}

// Backtracking halves the factor until the error decreases, giving up at
// AlphaMin.
type Backtracking struct {
	Tau      float64 // reduction factor, default 0.5
	AlphaMin float64 // smallest factor tried, default 0.2
}

func (b Backtracking) Reset() {}

func (b Backtracking) StepLength(p Problem) float64 {
	tau := b.Tau
	if tau <= 0 || tau >= 1 {
		tau = 0.5
	}
	alphaMin := b.AlphaMin
	if alphaMin <= 0 {
		alphaMin = 0.2
	}
	current := p.SquaredError()
	alpha := 1.0
	for alpha > alphaMin {
		if p.ErrorAtStep(alpha) < current {
			return alpha
		}
		alpha *= tau
	}
	return alphaMin
}

// ErrorNormBased adapts the factor to the current error norm: close to the
// solution the full Newton step is taken, far from it the factor decays to
// AlphaMin.
//
//	alpha = AlphaMin + (1 - AlphaMin) * exp(-r / Scale)
type ErrorNormBased struct {
	AlphaMin float64 // default 0.2
	Scale    float64 // error norm at which the decay reaches 1/e, default 1
}

func (e ErrorNormBased) Reset() {}

func (e ErrorNormBased) StepLength(p Problem) float64 {
	alphaMin := e.AlphaMin
	if alphaMin <= 0 || alphaMin > 1 {
		alphaMin = 0.2
	}
	scale := e.Scale
	if scale <= 0 {
		scale = 1
	}
	return alphaMin + (1-alphaMin)*math.Exp(-p.SquaredError()/scale)
}

// FixedSequence applies a geometric sequence of factors approaching AlphaMax,
// independent of the error: alpha ← AlphaMax - K*(AlphaMax - alpha). Stateful;
// reset at every solve.
type FixedSequence struct {
	Alpha    float64 // first factor, default 0.2
	AlphaMax float64 // limit of the sequence, default 0.95
	K        float64 // geometric rate, default 0.8

	current float64
}

func (f *FixedSequence) Reset() {
	f.current = 0
}

func (f *FixedSequence) StepLength(Problem) float64 {
	alpha0 := f.Alpha
	if alpha0 <= 0 || alpha0 > 1 {
		alpha0 = 0.2
	}
	alphaMax := f.AlphaMax
	if alphaMax <= 0 || alphaMax > 1 {
		alphaMax = 0.95
	}
	k := f.K
	if k <= 0 || k >= 1 {
		k = 0.8
	}
	if f.current == 0 {
		f.current = alpha0
	}
	alpha := f.current
	f.current = alphaMax - k*(alphaMax-alpha)
	return alpha
}
