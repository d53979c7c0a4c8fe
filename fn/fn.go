// Package fn defines the capability every constraint residual and every explicit
// map must implement: evaluate a value and a Jacobian at a configuration.
//
// Implementations must be pure with respect to their argument (internal scratch
// buffers reused across calls on a single goroutine are allowed) and immutable
// once constructed. Input and output dimensions are split between value space and
// derivative space because rotation coordinates are over-parameterized.
package fn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/motionkit/kinet/liegroup"
)

// DifferentiableFunction evaluates a value and a Jacobian at a configuration.
//
// Value and Jacobian panic on mismatched buffer sizes: passing wrong dimensions
// is a programming error, not a recoverable condition.
type DifferentiableFunction interface {
	// Value evaluates the function at q. result must belong to OutputSpace().
	Value(result *liegroup.Element, q []float64)
	// Jacobian fills j, of shape OutputDerivativeSize × InputDerivativeSize,
	// with the derivative at q.
	Jacobian(j *mat.Dense, q []float64)
	// InputSize is the dimension of configuration arguments.
	InputSize() int
	// InputDerivativeSize is the dimension of velocity arguments; differs from
	// InputSize when the input space has rotation blocks.
	InputDerivativeSize() int
	// OutputSpace is the manifold the value lives on.
	OutputSpace() *liegroup.Space
	// Name identifies the function in logs and serialized constraints.
	Name() string
}

// OutputSize returns the value-space dimension of f's output.
func OutputSize(f DifferentiableFunction) int { return f.OutputSpace().Size() }

// OutputDerivativeSize returns the derivative-space dimension of f's output.
func OutputDerivativeSize(f DifferentiableFunction) int { return f.OutputSpace().TangentSize() }

// Base carries the dimensions and name shared by every function implementation.
// Concrete functions embed it and implement Value and Jacobian.
type Base struct {
	In    int
	InDer int
	Out   *liegroup.Space
	FName string
}

// NewBase builds the common part of a function over flat or curved spaces.
func NewBase(inputSize, inputDerivativeSize int, outputSpace *liegroup.Space, name string) Base {
	return Base{In: inputSize, InDer: inputDerivativeSize, Out: outputSpace, FName: name}
}

func (b *Base) InputSize() int                 { return b.In }
func (b *Base) InputDerivativeSize() int       { return b.InDer }
func (b *Base) OutputSpace() *liegroup.Space   { return b.Out }
func (b *Base) Name() string                   { return b.FName }

func (b *Base) checkInput(q []float64) {
	if len(q) != b.In {
		panic("fn: argument size mismatch in " + b.FName)
	}
}

func (b *Base) checkJacobian(j *mat.Dense) {
	r, c := j.Dims()
	if r != b.Out.TangentSize() || c != b.InDer {
		panic("fn: jacobian shape mismatch in " + b.FName)
	}
}
