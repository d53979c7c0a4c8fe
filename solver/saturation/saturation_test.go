package saturation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBounds(t *testing.T) {
	assert := require.New(t)

	b, err := NewBounds([]float64{-1, 0}, []float64{1, math.Inf(1)})
	assert.NoError(err)

	qSat := make([]float64, 2)
	sat := make([]int8, 2)

	saturated, err := b.Saturate([]float64{0.5, 3}, qSat, sat)
	assert.NoError(err)
	assert.False(saturated)
	assert.Equal([]float64{0.5, 3}, qSat)
	assert.Equal([]int8{0, 0}, sat)

	saturated, err = b.Saturate([]float64{2, -1}, qSat, sat)
	assert.NoError(err)
	assert.True(saturated)
	assert.Equal([]float64{1, 0}, qSat)
	assert.Equal([]int8{1, -1}, sat)

	// landing exactly on a bound counts as saturated
	saturated, err = b.Saturate([]float64{1, 0}, qSat, sat)
	assert.NoError(err)
	assert.True(saturated)

	_, err = b.Saturate([]float64{0}, qSat, sat)
	assert.Error(err)
}

func TestNewBoundsValidation(t *testing.T) {
	assert := require.New(t)

	_, err := NewBounds([]float64{0}, []float64{1, 2})
	assert.Error(err)

	_, err = NewBounds([]float64{2}, []float64{1})
	assert.Error(err)
}

// hingeModel is a one-rotation, one-slider articulated model: the rotation
// occupies two configuration coordinates with no per-coordinate bound.
type hingeModel struct{}

func (hingeModel) ConfigSize() int   { return 3 }
func (hingeModel) VelocitySize() int { return 2 }

func (hingeModel) Bounds(i int) (float64, float64) {
	if i < 2 {
		return math.Inf(-1), math.Inf(1)
	}
	return -0.5, 0.5
}

func (hingeModel) TangentIndex(i int) int {
	if i < 2 {
		return -1
	}
	return 1
}

func TestLimits(t *testing.T) {
	assert := require.New(t)

	l := &Limits{Model: hingeModel{}}
	qSat := make([]float64, 3)
	sat := make([]int8, 2)

	saturated, err := l.Saturate([]float64{0.3, 0.95, 0.7}, qSat, sat)
	assert.NoError(err)
	assert.True(saturated)
	assert.Equal([]float64{0.3, 0.95, 0.5}, qSat)
	assert.Equal([]int8{0, 1}, sat)

	saturated, err = l.Saturate([]float64{0.3, 0.95, 0.2}, qSat, sat)
	assert.NoError(err)
	assert.False(saturated)

	_, err = l.Saturate([]float64{0.3}, qSat, sat)
	assert.Error(err)
}
