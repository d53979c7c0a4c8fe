package fn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/liegroup"
)

// Affine is the function q ↦ A·q + b over flat spaces.
type Affine struct {
	Base
	a *mat.Dense
	b []float64
}

// NewAffine builds an affine function from a matrix and an optional offset
// (nil means zero).
func NewAffine(a *mat.Dense, b []float64, name string) (*Affine, error) {
	r, c := a.Dims()
	if b != nil && len(b) != r {
		return nil, fmt.Errorf("affine function %q: offset size %d, matrix has %d rows", name, len(b), r)
	}
	if b == nil {
		b = make([]float64, r)
	}
	off := make([]float64, r)
	copy(off, b)
	return &Affine{
		Base: NewBase(c, c, liegroup.Rn(r), name),
		a:    mat.DenseCopyOf(a),
		b:    off,
	}, nil
}

func (f *Affine) Value(result *liegroup.Element, q []float64) {
	f.checkInput(q)
	out := result.Coordinates()
	r, c := f.a.Dims()
	for i := 0; i < r; i++ {
		v := f.b[i]
		for j := 0; j < c; j++ {
			v += f.a.At(i, j) * q[j]
		}
		out[i] = v
	}
}

func (f *Affine) Jacobian(j *mat.Dense, q []float64) {
	f.checkInput(q)
	f.checkJacobian(j)
	j.Copy(f.a)
}

// Quadratic is the scalar function q ↦ qᵀ·A·q + c over flat spaces.
type Quadratic struct {
	Base
	a *mat.Dense
	c float64
}

// NewQuadratic builds a quadratic form from a square matrix and a constant term.
func NewQuadratic(a *mat.Dense, c float64, name string) (*Quadratic, error) {
	r, cols := a.Dims()
	if r != cols {
		return nil, fmt.Errorf("quadratic function %q: matrix is %dx%d, expected square", name, r, cols)
	}
	return &Quadratic{
		Base: NewBase(r, r, liegroup.Rn(1), name),
		a:    mat.DenseCopyOf(a),
		c:    c,
	}, nil
}

func (f *Quadratic) Value(result *liegroup.Element, q []float64) {
	f.checkInput(q)
	n := f.In
	v := f.c
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += q[i] * f.a.At(i, j) * q[j]
		}
	}
	result.Coordinates()[0] = v
}

func (f *Quadratic) Jacobian(j *mat.Dense, q []float64) {
	f.checkInput(q)
	f.checkJacobian(j)
	n := f.In
	// gradient of qᵀAq is (A + Aᵀ)q
	for k := 0; k < n; k++ {
		v := 0.0
		for i := 0; i < n; i++ {
			v += (f.a.At(k, i) + f.a.At(i, k)) * q[i]
		}
		j.Set(0, k, v)
	}
}

// Constant always evaluates to a fixed element, with a zero Jacobian.
type Constant struct {
	Base
	value *liegroup.Element
}

// NewConstant builds a constant function of the given input dimensions.
func NewConstant(inputSize, inputDerivativeSize int, value *liegroup.Element, name string) *Constant {
	return &Constant{
		Base:  NewBase(inputSize, inputDerivativeSize, value.Space(), name),
		value: value.Clone(),
	}
}

func (f *Constant) Value(result *liegroup.Element, q []float64) {
	f.checkInput(q)
	result.Set(f.value.Coordinates())
}

func (f *Constant) Jacobian(j *mat.Dense, q []float64) {
	f.checkInput(q)
	f.checkJacobian(j)
	j.Zero()
}

// Identity maps a configuration of a space onto itself; used as the trivial
// explicit map between two copies of the same variable block.
type Identity struct {
	Base
}

// NewIdentity builds the identity function over a space.
func NewIdentity(space *liegroup.Space, name string) *Identity {
	return &Identity{Base: NewBase(space.Size(), space.TangentSize(), space, name)}
}

func (f *Identity) Value(result *liegroup.Element, q []float64) {
	f.checkInput(q)
	result.Set(q)
}

func (f *Identity) Jacobian(j *mat.Dense, q []float64) {
	f.checkInput(q)
	f.checkJacobian(j)
	j.Zero()
	n := f.Out.TangentSize()
	for i := 0; i < n; i++ {
		j.Set(i, i, 1)
	}
}
