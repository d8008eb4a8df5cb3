// Package scalar defines the mode-polymorphic scalar contract shared by plain
// floats, reverse-mode variables and forward-mode dual numbers.
//
// Collaborator code (densities, transforms, objective functions) is written
// once against Real[T] and runs in any mode:
//
//	func sq[T scalar.Real[T]](x T) T { return x.Mul(x) }
//
//	sq(scalar.Float(3))        // plain evaluation, no tape
//	sq(ep.Var(3))              // records a node, differentiable
//	sq(fwd.Variable(3))        // forward-mode tangent
//
// Promotion across operand modes follows the Capability table: any
// differentiable operand makes the result differentiable.
package scalar

// Capability tells whether a value participates in differentiation.
type Capability uint8

// Capabilities.
const (
	Constant Capability = iota
	Differentiable
)

// String returns the capability name.
func (c Capability) String() string {
	if c == Differentiable {
		return "differentiable"
	}
	return "constant"
}

// promotion is the closed resolution table for binary operands.
var promotion = [2][2]Capability{
	Constant:       {Constant: Constant, Differentiable: Differentiable},
	Differentiable: {Constant: Differentiable, Differentiable: Differentiable},
}

// Promote returns the capability of a result computed from operands with
// the given capabilities. No operands resolve to Constant.
func Promote(caps ...Capability) Capability {
	out := Constant
	for _, c := range caps {
		out = promotion[out][c&1]
	}
	return out
}

// Real is the arithmetic surface every scalar mode provides.
type Real[T any] interface {
	// Value returns the primitive value.
	Value() float64
	// Capability reports whether the value carries derivative information.
	Capability() Capability
	// Lift returns a constant of the same mode.
	Lift(x float64) T

	Add(T) T
	Sub(T) T
	Mul(T) T
	Div(T) T
	Neg() T
	Shift(c float64) T
	Scale(c float64) T
	Pow(p float64) T

	Square() T
	Sqrt() T
	Exp() T
	Expm1() T
	Log() T
	Log1p() T
	Log1pExp() T
	InvLogit() T
	Lgamma() T
	Sin() T
	Cos() T
	Tanh() T
	Abs() T
}

// Sum adds values of any mode. An empty input returns zero.
func Sum[T Real[T]](xs []T) T {
	var zero T
	if len(xs) == 0 {
		return zero.Lift(0)
	}
	acc := xs[0]
	for _, x := range xs[1:] {
		acc = acc.Add(x)
	}
	return acc
}

// Lifts converts primitives into constants of the same mode as like.
func Lifts[T Real[T]](like T, xs []float64) []T {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = like.Lift(x)
	}
	return out
}

// Log1pExpAll applies Log1pExp to every entry.
func Log1pExpAll[T Real[T]](xs []T) []T {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = x.Log1pExp()
	}
	return out
}
