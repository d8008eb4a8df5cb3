package autodiff

import (
	"math"

	"github.com/born-ml/stanmath/internal/scalar"
)

// Scalar is any operand of mixed-mode arithmetic: a Var, a scalar.Float or
// another type reporting a value and a capability.
type Scalar interface {
	Value() float64
	Capability() scalar.Capability
}

var (
	_ Scalar                    = Var{}
	_ Scalar                    = scalar.Float(0)
	_ scalar.Real[Var]          = Var{}
	_ scalar.Real[scalar.Float] = scalar.Float(0)
)

// Add returns a + b. Two constant operands produce a scalar.Float and never
// touch a tape; otherwise the result is a Var.
func Add(a, b Scalar) Scalar {
	return mixed(a, b, func(x, y float64) float64 { return x + y }, Var.Add)
}

// Sub returns a - b, promoting as Add does.
func Sub(a, b Scalar) Scalar {
	return mixed(a, b, func(x, y float64) float64 { return x - y }, Var.Sub)
}

// Mul returns a * b, promoting as Add does.
func Mul(a, b Scalar) Scalar {
	return mixed(a, b, func(x, y float64) float64 { return x * y }, Var.Mul)
}

// Div returns a / b, promoting as Add does.
func Div(a, b Scalar) Scalar {
	return mixed(a, b, func(x, y float64) float64 { return x / y }, Var.Div)
}

// PowMixed returns a^b, promoting as Add does.
func PowMixed(a, b Scalar) Scalar {
	return mixed(a, b, math.Pow, Var.PowVar)
}

func mixed(a, b Scalar, plain func(x, y float64) float64, rev func(x, y Var) Var) Scalar {
	if scalar.Promote(a.Capability(), b.Capability()) == scalar.Constant {
		return scalar.Float(plain(a.Value(), b.Value()))
	}
	return rev(AsVar(a), AsVar(b))
}

// AsVar converts x to a Var. Constants of any mode become constant Vars; a
// differentiable scalar that is not a Var panics with ErrMixedModes.
func AsVar(x Scalar) Var {
	if v, ok := x.(Var); ok {
		return v
	}
	if x.Capability() == scalar.Differentiable {
		panicf(ErrMixedModes, "%T", x)
	}
	return Const(x.Value())
}
