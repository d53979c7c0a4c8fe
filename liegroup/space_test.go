package liegroup

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/stretchr/testify/require"
)

func TestProductLayout(t *testing.T) {
	assert := require.New(t)

	s := Product(Rn(2), Rn(1), SO3(), SO2())
	assert.Equal(9, s.Size())
	assert.Equal(7, s.TangentSize())
	assert.Equal("R^3*SO(3)*SO(2)", s.Name())
	assert.False(s.IsFlat())
	assert.True(Rn(5).IsFlat())

	ranges := s.Ranges()
	assert.Len(ranges, 3)
	assert.Equal(Range{QStart: 0, QLen: 3, VStart: 0, VLen: 3, Flat: true}, ranges[0])
	assert.Equal(Range{QStart: 3, QLen: 4, VStart: 3, VLen: 3, Flat: false}, ranges[1])
	assert.Equal(Range{QStart: 7, QLen: 2, VStart: 6, VLen: 1, Flat: false}, ranges[2])
}

func TestNeutral(t *testing.T) {
	assert := require.New(t)

	s := Product(Rn(2), SO3(), SO2())
	n := s.Neutral()
	assert.Equal([]float64{0, 0, 0, 0, 0, 1, 1, 0}, n)

	// integrating zero from neutral stays neutral
	out := make([]float64, s.Size())
	s.Integrate(n, make([]float64, s.TangentSize()), out)
	assert.Equal(n, out)
}

// a fixed configuration of R^2*SO(3)*SO(2) away from any chart singularity
func testConfig(s *Space) []float64 {
	q := s.Neutral()
	v := []float64{0.3, -1.2, 0.4, -0.2, 0.7, 0.9}
	s.Integrate(q, v, q)
	return q
}

func TestIntegrateDifferenceRoundTrip(t *testing.T) {
	assert := require.New(t)

	s := Product(Rn(2), SO3(), SO2())
	q0 := testConfig(s)
	v := []float64{1.5, -0.25, 0.1, 0.6, -0.3, -1.1}

	q1 := make([]float64, s.Size())
	s.Integrate(q0, v, q1)

	// quaternion stays unit
	norm := 0.0
	for i := 2; i < 6; i++ {
		norm += q1[i] * q1[i]
	}
	assert.InDelta(1.0, norm, 1e-12)

	d := make([]float64, s.TangentSize())
	s.Difference(q1, q0, d)
	for i := range v {
		assert.InDelta(v[i], d[i], 1e-10)
	}

	// difference of an element with itself vanishes
	s.Difference(q0, q0, d)
	for i := range d {
		assert.InDelta(0, d[i], 1e-12)
	}
}

func TestDifferenceShortestRotation(t *testing.T) {
	assert := require.New(t)

	s := SO3()
	q0 := s.Neutral()
	q1 := make([]float64, 4)
	v := []float64{3.0, 0, 0} // close to the pi boundary
	s.Integrate(q0, v, q1)

	// negate the quaternion: same rotation, antipodal chart point
	for i := range q1 {
		q1[i] = -q1[i]
	}
	d := make([]float64, 3)
	s.Difference(q1, q0, d)
	assert.InDelta(3.0, d[0], 1e-10)
	assert.InDelta(0, d[1], 1e-12)
	assert.InDelta(0, d[2], 1e-12)
}

func TestDIntegrateMatchesFiniteDifferences(t *testing.T) {
	s := SO3()
	q0 := testSO3Config()
	off := []float64{0.4, -0.1, 0.25}

	// F(u) = (q0 ⊕ u) ⊕ off as a map between tangent charts at the base points
	nv := s.TangentSize()
	value := func(u []float64) []float64 {
		q := make([]float64, s.Size())
		s.Integrate(q0, u, q)
		out := make([]float64, s.Size())
		s.Integrate(q, off, out)
		return out
	}
	base := value(make([]float64, nv))

	const h = 1e-7
	numeric := mat.NewDense(nv, nv, nil)
	u := make([]float64, nv)
	d := make([]float64, nv)
	for col := 0; col < nv; col++ {
		u[col] = h
		q := value(u)
		u[col] = 0
		s.Difference(q, base, d)
		for row := 0; row < nv; row++ {
			numeric.Set(row, col, d[row]/h)
		}
	}

	analytic := mat.NewDense(nv, nv, nil)
	for i := 0; i < nv; i++ {
		analytic.Set(i, i, 1)
	}
	s.DIntegrate(off, analytic)

	assertMatInDelta(t, numeric, analytic, 1e-5)
}

func TestDDifferenceMatchesFiniteDifferences(t *testing.T) {
	s := SO3()
	nv := s.TangentSize()
	q0 := testSO3Config()
	q1 := make([]float64, s.Size())
	s.Integrate(q0, []float64{-0.3, 0.5, 0.2}, q1)

	d0 := make([]float64, nv)
	s.Difference(q1, q0, d0)

	const h = 1e-7
	diffAt := func(a, b []float64) []float64 {
		out := make([]float64, nv)
		s.Difference(a, b, out)
		return out
	}

	// left: perturb q1
	numeric := mat.NewDense(nv, nv, nil)
	u := make([]float64, nv)
	for col := 0; col < nv; col++ {
		u[col] = h
		qp := make([]float64, s.Size())
		s.Integrate(q1, u, qp)
		u[col] = 0
		dp := diffAt(qp, q0)
		for row := 0; row < nv; row++ {
			numeric.Set(row, col, (dp[row]-d0[row])/h)
		}
	}
	analytic := identityDense(nv)
	s.DDifferenceLeft(d0, analytic)
	assertMatInDelta(t, numeric, analytic, 1e-5)

	// right: perturb q0
	for col := 0; col < nv; col++ {
		u[col] = h
		qp := make([]float64, s.Size())
		s.Integrate(q0, u, qp)
		u[col] = 0
		dp := diffAt(q1, qp)
		for row := 0; row < nv; row++ {
			numeric.Set(row, col, (dp[row]-d0[row])/h)
		}
	}
	analytic = identityDense(nv)
	s.DDifferenceRight(d0, analytic)
	assertMatInDelta(t, numeric, analytic, 1e-5)
}

func TestDDifferenceRightFlat(t *testing.T) {
	assert := require.New(t)

	s := Rn(3)
	j := identityDense(3)
	s.DDifferenceRight([]float64{1, 2, 3}, j)
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			want := 0.0
			if i == k {
				want = -1
			}
			assert.Equal(want, j.At(i, k))
		}
	}
}

func TestElement(t *testing.T) {
	assert := require.New(t)

	s := Product(Rn(1), SO2())
	e := NewElement(s)
	assert.Equal([]float64{0, 1, 0}, e.Coordinates())

	e.Integrate([]float64{2, math.Pi / 2})
	assert.InDelta(2, e.Coordinates()[0], 1e-12)
	assert.InDelta(0, e.Coordinates()[1], 1e-12)
	assert.InDelta(1, e.Coordinates()[2], 1e-12)

	o := NewElement(s)
	d := make([]float64, s.TangentSize())
	e.Minus(o, d)
	assert.InDelta(2, d[0], 1e-12)
	assert.InDelta(math.Pi/2, d[1], 1e-12)

	c := e.Clone()
	c.SetNeutral()
	assert.NotEqual(c.Coordinates(), e.Coordinates())

	backing := []float64{5, 0, 1}
	w := Wrap(s, backing)
	w.Set([]float64{6, 1, 0})
	assert.Equal([]float64{6, 1, 0}, backing)
}

func testSO3Config() []float64 {
	s := SO3()
	q := s.Neutral()
	s.Integrate(q, []float64{0.2, -0.8, 0.5}, q)
	return q
}

func identityDense(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func assertMatInDelta(t *testing.T, want, got *mat.Dense, tol float64) {
	t.Helper()
	r, c := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, r, gr)
	require.Equal(t, c, gc)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), tol, "entry (%d, %d)", i, j)
		}
	}
}
