package fn

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/liegroup"
)

// FiniteDifferenceJacobian approximates the Jacobian of f at q by forward
// differences on the input space, taken as flat of dimension InputSize. It is a
// test helper: analytic Jacobians of new functions are checked against it.
// eps <= 0 selects sqrt of the machine epsilon.
func FiniteDifferenceJacobian(f DifferentiableFunction, q []float64, eps float64, j *mat.Dense) {
	if eps <= 0 {
		eps = math.Sqrt(2.220446049250313e-16)
	}
	out := f.OutputSpace()
	v0 := liegroup.NewElement(out)
	v1 := liegroup.NewElement(out)
	diff := make([]float64, out.TangentSize())
	qd := make([]float64, len(q))
	copy(qd, q)

	f.Value(v0, q)
	for col := 0; col < f.InputSize(); col++ {
		h := eps * math.Max(1, math.Abs(q[col]))
		qd[col] = q[col] + h
		f.Value(v1, qd)
		qd[col] = q[col]
		v1.Minus(v0, diff)
		for row := range diff {
			j.Set(row, col, diff[row]/h)
		}
	}
}
