package fn

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/stretchr/testify/require"

	"github.com/motionkit/kinet/liegroup"
)

func TestAffine(t *testing.T) {
	assert := require.New(t)

	a := mat.NewDense(2, 3, []float64{
		1, 2, 0,
		0, -1, 3,
	})
	f, err := NewAffine(a, []float64{1, -1}, "affine")
	assert.NoError(err)
	assert.Equal(3, f.InputSize())
	assert.Equal(3, f.InputDerivativeSize())
	assert.Equal(2, OutputSize(f))
	assert.Equal("affine", f.Name())

	q := []float64{1, 2, 3}
	value := liegroup.NewElement(f.OutputSpace())
	f.Value(value, q)
	assert.Equal([]float64{6, 6}, value.Coordinates())

	j := mat.NewDense(2, 3, nil)
	f.Jacobian(j, q)
	assertJacobianMatches(t, f, q, j)

	_, err = NewAffine(a, []float64{1}, "bad offset")
	assert.Error(err)
}

func TestQuadratic(t *testing.T) {
	assert := require.New(t)

	// non-symmetric on purpose: the gradient is (A + Aᵀ)q
	a := mat.NewDense(2, 2, []float64{
		1, 2,
		0, 1,
	})
	f, err := NewQuadratic(a, -1, "quadratic")
	assert.NoError(err)

	q := []float64{0.5, -0.25}
	value := liegroup.NewElement(f.OutputSpace())
	f.Value(value, q)
	// 0.25 + 2*0.5*(-0.25) + 0.0625 - 1
	assert.InDelta(-0.9375, value.Coordinates()[0], 1e-12)

	j := mat.NewDense(1, 2, nil)
	f.Jacobian(j, q)
	assertJacobianMatches(t, f, q, j)

	_, err = NewQuadratic(mat.NewDense(1, 2, nil), 0, "not square")
	assert.Error(err)
}

func TestConstant(t *testing.T) {
	assert := require.New(t)

	value := liegroup.NewElement(liegroup.Rn(2))
	value.Set([]float64{3, 4})
	f := NewConstant(5, 5, value, "constant")

	out := liegroup.NewElement(f.OutputSpace())
	f.Value(out, make([]float64, 5))
	assert.Equal([]float64{3, 4}, out.Coordinates())

	j := mat.NewDense(2, 5, nil)
	j.Set(0, 0, 7)
	f.Jacobian(j, make([]float64, 5))
	assert.Equal(0.0, j.At(0, 0))
}

func TestIdentityOnCurvedSpace(t *testing.T) {
	assert := require.New(t)

	space := liegroup.Product(liegroup.Rn(2), liegroup.SO2())
	f := NewIdentity(space, "identity")
	assert.Equal(4, f.InputSize())
	assert.Equal(3, f.InputDerivativeSize())

	q := space.Neutral()
	space.Integrate(q, []float64{1, -2, 0.5}, q)

	out := liegroup.NewElement(space)
	f.Value(out, q)
	assert.Equal(q, out.Coordinates())

	j := mat.NewDense(3, 3, nil)
	f.Jacobian(j, q)
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			want := 0.0
			if i == k {
				want = 1
			}
			assert.Equal(want, j.At(i, k))
		}
	}
}

func TestDimensionChecks(t *testing.T) {
	assert := require.New(t)

	f, err := NewAffine(mat.NewDense(1, 2, []float64{1, 1}), nil, "sum")
	assert.NoError(err)

	value := liegroup.NewElement(f.OutputSpace())
	assert.Panics(func() { f.Value(value, []float64{1}) })
	assert.Panics(func() { f.Jacobian(mat.NewDense(2, 2, nil), []float64{1, 2}) })
}

// assertJacobianMatches checks an analytic Jacobian against forward differences.
func assertJacobianMatches(t *testing.T, f DifferentiableFunction, q []float64, j *mat.Dense) {
	t.Helper()
	numeric := mat.NewDense(OutputDerivativeSize(f), f.InputDerivativeSize(), nil)
	FiniteDifferenceJacobian(f, q, 1e-7, numeric)
	r, c := j.Dims()
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			require.InDelta(t, numeric.At(i, k), j.At(i, k), 1e-5, "entry (%d, %d)", i, k)
		}
	}
}
