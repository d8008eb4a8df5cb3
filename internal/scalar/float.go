package scalar

import (
	"math"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
)

// Float is the primitive mode: a plain float64 that never records anything.
type Float float64

// Value returns x.
func (x Float) Value() float64 { return float64(x) }

// Capability is always Constant.
func (Float) Capability() Capability { return Constant }

// Lift returns v as a Float.
func (Float) Lift(v float64) Float { return Float(v) }

// Add returns x + y.
func (x Float) Add(y Float) Float { return x + y }

// Sub returns x - y.
func (x Float) Sub(y Float) Float { return x - y }

// Mul returns x * y.
func (x Float) Mul(y Float) Float { return x * y }

// Div returns x / y.
func (x Float) Div(y Float) Float { return x / y }

// Neg returns -x.
func (x Float) Neg() Float { return -x }

// Shift returns x + c.
func (x Float) Shift(c float64) Float { return x + Float(c) }

// Scale returns x * c.
func (x Float) Scale(c float64) Float { return x * Float(c) }

// Pow returns x raised to the constant p.
func (x Float) Pow(p float64) Float { return Float(math.Pow(float64(x), p)) }

// Square returns x².
func (x Float) Square() Float { return x * x }

// Sqrt returns √x.
func (x Float) Sqrt() Float { return Float(math.Sqrt(float64(x))) }

// Exp returns e^x.
func (x Float) Exp() Float { return Float(math.Exp(float64(x))) }

// Expm1 returns e^x - 1, accurate near 0.
func (x Float) Expm1() Float { return Float(math.Expm1(float64(x))) }

// Log returns the natural logarithm of x.
func (x Float) Log() Float { return Float(math.Log(float64(x))) }

// Log1p returns log(1 + x), accurate near 0.
func (x Float) Log1p() Float { return Float(math.Log1p(float64(x))) }

// Log1pExp returns log(1 + e^x) without overflow.
func (x Float) Log1pExp() Float { return Float(ops.Log1pExpValue(float64(x))) }

// InvLogit returns the logistic sigmoid 1 / (1 + e^-x).
func (x Float) InvLogit() Float { return Float(ops.InvLogitValue(float64(x))) }

// Sin returns the sine of x.
func (x Float) Sin() Float { return Float(math.Sin(float64(x))) }

// Cos returns the cosine of x.
func (x Float) Cos() Float { return Float(math.Cos(float64(x))) }

// Tanh returns the hyperbolic tangent of x.
func (x Float) Tanh() Float { return Float(math.Tanh(float64(x))) }

// Abs returns |x|.
func (x Float) Abs() Float { return Float(math.Abs(float64(x))) }

// Lgamma returns log|Γ(x)|.
func (x Float) Lgamma() Float {
	v, _ := math.Lgamma(float64(x))
	return Float(v)
}

// Floats converts a slice of primitives.
func Floats(xs []float64) []Float {
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}
