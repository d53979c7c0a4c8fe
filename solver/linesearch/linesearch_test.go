package linesearch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// quadraticProblem models err(alpha) = (1 - alpha)²·err0, the exact profile of
// a Newton step on a linear residual.
type quadraticProblem struct {
	err0 float64
}

func (p quadraticProblem) SquaredError() float64 { return p.err0 }

func (p quadraticProblem) ErrorAtStep(alpha float64) float64 {
	return (1 - alpha) * (1 - alpha) * p.err0
}

// risingProblem gets worse at every probed step.
type risingProblem struct{}

func (risingProblem) SquaredError() float64             { return 1 }
func (risingProblem) ErrorAtStep(alpha float64) float64 { return 1 + alpha }

func TestConstant(t *testing.T) {
	assert := require.New(t)

	assert.Equal(1.0, Constant{}.StepLength(quadraticProblem{1}))
	assert.Equal(0.5, Constant{Alpha: 0.5}.StepLength(quadraticProblem{1}))
	assert.Equal(1.0, Constant{Alpha: 2}.StepLength(quadraticProblem{1}))
}

func TestBacktracking(t *testing.T) {
	assert := require.New(t)

	// the full step already decreases the error
	assert.Equal(1.0, Backtracking{}.StepLength(quadraticProblem{4}))

	// nothing helps: the floor is returned
	assert.Equal(0.2, Backtracking{}.StepLength(risingProblem{}))

	// a custom floor
	assert.Equal(0.05, Backtracking{AlphaMin: 0.05}.StepLength(risingProblem{}))
}

func TestErrorNormBased(t *testing.T) {
	assert := require.New(t)

	e := ErrorNormBased{}
	// far from the solution the factor approaches the floor
	assert.InDelta(0.2, e.StepLength(quadraticProblem{1e6}), 1e-9)
	// close to it the full step is taken
	assert.InDelta(1.0, e.StepLength(quadraticProblem{1e-12}), 1e-9)

	scaled := ErrorNormBased{AlphaMin: 0.1, Scale: 2}
	want := 0.1 + 0.9*math.Exp(-3.0/2)
	assert.InDelta(want, scaled.StepLength(quadraticProblem{3}), 1e-12)
}

func TestFixedSequence(t *testing.T) {
	assert := require.New(t)

	f := &FixedSequence{}
	f.Reset()
	prev := 0.0
	for i := 0; i < 50; i++ {
		alpha := f.StepLength(quadraticProblem{1})
		assert.Greater(alpha, prev)
		assert.LessOrEqual(alpha, 0.95)
		prev = alpha
	}
	assert.InDelta(0.95, prev, 1e-3)

	// reset restarts the sequence
	f.Reset()
	assert.InDelta(0.2, f.StepLength(quadraticProblem{1}), 1e-12)
}
