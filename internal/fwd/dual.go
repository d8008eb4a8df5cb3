// Package fwd implements forward-mode differentiation with dual numbers.
//
// A Dual carries a value and one tangent. Seeding a single input with
// tangent 1 and evaluating a function yields the directional derivative
// along that input, so a gradient of n inputs costs n evaluations. This is
// the mode of choice for functions with few inputs and many outputs, and it
// cross-checks reverse-mode results without touching a tape.
package fwd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/num/dual"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
	"github.com/born-ml/stanmath/internal/scalar"
)

// Dual is a forward-mode scalar.
type Dual struct {
	n      dual.Number
	active bool
}

var _ scalar.Real[Dual] = Dual{}

// Variable returns x seeded with tangent 1.
func Variable(x float64) Dual {
	return Dual{n: dual.Number{Real: x, Emag: 1}, active: true}
}

// Constant returns x with tangent 0.
func Constant(x float64) Dual {
	return Dual{n: dual.Number{Real: x}}
}

// Make returns a dual number with the given value and tangent.
func Make(x, tangent float64) Dual {
	return Dual{n: dual.Number{Real: x, Emag: tangent}, active: true}
}

// Value returns the primal value.
func (d Dual) Value() float64 { return d.n.Real }

// Tangent returns the derivative carried along.
func (d Dual) Tangent() float64 { return d.n.Emag }

// Number returns the underlying gonum dual number.
func (d Dual) Number() dual.Number { return d.n }

// Capability reports Differentiable for seeded values and anything computed
// from them.
func (d Dual) Capability() scalar.Capability {
	if d.active {
		return scalar.Differentiable
	}
	return scalar.Constant
}

// Lift returns a constant.
func (Dual) Lift(x float64) Dual { return Constant(x) }

// String implements fmt.Stringer.
func (d Dual) String() string {
	return fmt.Sprintf("%v", d.n)
}

func (d Dual) with(n dual.Number) Dual {
	return Dual{n: n, active: d.active}
}

func (d Dual) join(e Dual, n dual.Number) Dual {
	return Dual{n: n, active: scalar.Promote(d.Capability(), e.Capability()) == scalar.Differentiable}
}

// chain returns f(d) given f's value v and derivative dv at d.
func (d Dual) chain(v, dv float64) Dual {
	return d.with(dual.Number{Real: v, Emag: d.n.Emag * dv})
}

// Add returns d + e.
func (d Dual) Add(e Dual) Dual {
	return d.join(e, dual.Number{Real: d.n.Real + e.n.Real, Emag: d.n.Emag + e.n.Emag})
}

// Sub returns d - e.
func (d Dual) Sub(e Dual) Dual {
	return d.join(e, dual.Number{Real: d.n.Real - e.n.Real, Emag: d.n.Emag - e.n.Emag})
}

// Mul returns d * e.
func (d Dual) Mul(e Dual) Dual { return d.join(e, dual.Mul(d.n, e.n)) }

// Div returns d / e.
func (d Dual) Div(e Dual) Dual { return d.join(e, dual.Mul(d.n, dual.Inv(e.n))) }

// Neg returns -d.
func (d Dual) Neg() Dual { return d.with(dual.Scale(-1, d.n)) }

// Shift returns d + c.
func (d Dual) Shift(c float64) Dual {
	return d.with(dual.Number{Real: d.n.Real + c, Emag: d.n.Emag})
}

// Scale returns d * c.
func (d Dual) Scale(c float64) Dual { return d.with(dual.Scale(c, d.n)) }

// Pow returns d raised to the constant p.
func (d Dual) Pow(p float64) Dual { return d.with(dual.PowReal(d.n, p)) }

// Square returns d².
func (d Dual) Square() Dual { return d.with(dual.Mul(d.n, d.n)) }

// Sqrt returns √d.
func (d Dual) Sqrt() Dual { return d.with(dual.Sqrt(d.n)) }

// Exp returns e^d.
func (d Dual) Exp() Dual { return d.with(dual.Exp(d.n)) }

// Log returns the natural logarithm of d.
func (d Dual) Log() Dual { return d.with(dual.Log(d.n)) }

// Sin returns the sine of d.
func (d Dual) Sin() Dual { return d.with(dual.Sin(d.n)) }

// Cos returns the cosine of d.
func (d Dual) Cos() Dual { return d.with(dual.Cos(d.n)) }

// Tanh returns the hyperbolic tangent of d.
func (d Dual) Tanh() Dual { return d.with(dual.Tanh(d.n)) }

// Abs returns |d|.
func (d Dual) Abs() Dual { return d.with(dual.Abs(d.n)) }

// Expm1 returns e^d - 1, accurate near 0.
func (d Dual) Expm1() Dual {
	x := d.n.Real
	return d.chain(math.Expm1(x), math.Exp(x))
}

// Log1p returns log(1 + d), accurate near 0.
func (d Dual) Log1p() Dual {
	x := d.n.Real
	return d.chain(math.Log1p(x), 1/(1+x))
}

// Log1pExp returns log(1 + e^d) without overflow.
func (d Dual) Log1pExp() Dual {
	x := d.n.Real
	return d.chain(ops.Log1pExpValue(x), ops.InvLogitValue(x))
}

// InvLogit returns the logistic sigmoid 1 / (1 + e^-d).
func (d Dual) InvLogit() Dual {
	s := ops.InvLogitValue(d.n.Real)
	return d.chain(s, s*(1-s))
}

// Lgamma returns log|Γ(d)| with derivative ψ(d).
func (d Dual) Lgamma() Dual {
	x := d.n.Real
	v, _ := math.Lgamma(x)
	return d.chain(v, mathext.Digamma(x))
}

// Derivative returns f(x) and f'(x).
func Derivative(f func(Dual) Dual, x float64) (float64, float64) {
	y := f(Variable(x))
	return y.Value(), y.Tangent()
}

// Gradient returns f(x) and ∇f(x) using one forward pass per input.
func Gradient(f func([]Dual) Dual, x []float64) (float64, []float64) {
	grad := make([]float64, len(x))
	args := make([]Dual, len(x))
	for i, v := range x {
		args[i] = Constant(v)
	}

	if len(x) == 0 {
		return f(args).Value(), grad
	}
	var fx float64
	for i, v := range x {
		args[i] = Variable(v)
		y := f(args)
		fx, grad[i] = y.Value(), y.Tangent()
		args[i] = Constant(v)
	}
	return fx, grad
}

// Directional returns f(x) and the derivative of f along v.
func Directional(f func([]Dual) Dual, x, v []float64) (float64, float64) {
	if len(x) != len(v) {
		panic(fmt.Sprintf("fwd: %d inputs and %d direction components", len(x), len(v)))
	}
	args := make([]Dual, len(x))
	for i := range x {
		args[i] = Make(x[i], v[i])
	}
	y := f(args)
	return y.Value(), y.Tangent()
}
