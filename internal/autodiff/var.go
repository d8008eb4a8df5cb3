package autodiff

import (
	"fmt"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
	"github.com/born-ml/stanmath/internal/scalar"
)

// Var is a differentiable scalar: a value plus a reference to the node that
// produced it.
//
// Vars are cheap to copy and copies share node identity. The zero Var is the
// constant 0. Arithmetic records a node in the innermost open episode and
// computes the value eagerly; arithmetic between constants records nothing.
type Var struct {
	s      *Stack
	id     NodeID
	val    float64
	depth  int32
	serial uint32
}

// Const returns a constant Var.
func Const(x float64) Var {
	return Var{id: NoNode, val: x}
}

// Consts returns constant Vars for xs.
func Consts(xs []float64) []Var {
	out := make([]Var, len(xs))
	for i, x := range xs {
		out[i] = Const(x)
	}
	return out
}

// Value returns the forward value.
func (v Var) Value() float64 { return v.val }

// Capability reports whether v is recorded on a tape.
func (v Var) Capability() scalar.Capability {
	if v.s == nil {
		return scalar.Constant
	}
	return scalar.Differentiable
}

// IsConstant reports whether v carries no node.
func (v Var) IsConstant() bool { return v.s == nil }

// Lift returns a constant.
func (Var) Lift(x float64) Var { return Const(x) }

// ID returns the node ID, or NoNode for a constant.
func (v Var) ID() NodeID {
	if v.s == nil {
		return NoNode
	}
	return v.id
}

// Adj returns the adjoint left by the last sweep. It panics if the episode
// that created v has ended. Constants have adjoint 0.
func (v Var) Adj() float64 {
	if v.s == nil {
		return 0
	}
	v.s.live(v)
	return v.s.tape.At(v.id).adj
}

// String implements fmt.Stringer.
func (v Var) String() string {
	if v.s == nil {
		return fmt.Sprintf("const(%g)", v.val)
	}
	return fmt.Sprintf("var(%g)#%d", v.val, v.id)
}

// unary records y = f(v; c).
func (v Var) unary(k ops.Kind, c float64) Var {
	if v.s == nil {
		return Const(ops.Lookup(k).Unary.Eval(v.val, c))
	}
	s := v.s
	s.live(v)
	r := s.rule(k).Unary
	return s.push(Node{kind: k, val: r.Eval(v.val, c), aux: c, a: v.id, b: NoNode})
}

// binary records y = f(a, b). A constant operand that has no dedicated unary
// kind is recorded as a leaf.
func binary(k ops.Kind, a, b Var) Var {
	s := pairStack(a, b)
	if s == nil {
		return Const(ops.Lookup(k).Binary.Eval(a.val, b.val))
	}
	if a.s == nil {
		a = s.push(Node{kind: ops.Leaf, val: a.val, a: NoNode, b: NoNode})
	}
	if b.s == nil {
		b = s.push(Node{kind: ops.Leaf, val: b.val, a: NoNode, b: NoNode})
	}
	r := s.rule(k).Binary
	return s.push(Node{kind: k, val: r.Eval(a.val, b.val), a: a.id, b: b.id})
}

// pairStack returns the stack shared by the non-constant operands.
func pairStack(a, b Var) *Stack {
	switch {
	case a.s == nil && b.s == nil:
		return nil
	case a.s == nil:
		b.s.live(b)
		return b.s
	case b.s == nil:
		a.s.live(a)
		return a.s
	case a.s != b.s:
		panicf(ErrMixedStacks, "%v and %v", a, b)
	}
	a.s.live(a)
	a.s.live(b)
	return a.s
}

// Apply1 records a registered unary kind, including user-registered ones.
func Apply1(k ops.Kind, x Var, c float64) Var {
	if r := ops.Lookup(k); r.Class != ops.ClassUnary {
		panic(fmt.Sprintf("autodiff: Apply1 with %s kind %q", r.Class, r.Name))
	}
	return x.unary(k, c)
}

// Apply2 records a registered binary kind, including user-registered ones.
func Apply2(k ops.Kind, a, b Var) Var {
	if r := ops.Lookup(k); r.Class != ops.ClassBinary {
		panic(fmt.Sprintf("autodiff: Apply2 with %s kind %q", r.Class, r.Name))
	}
	return binary(k, a, b)
}

// Add returns v + w.
func (v Var) Add(w Var) Var {
	switch {
	case w.s == nil:
		return v.unary(ops.Shift, w.val)
	case v.s == nil:
		return w.unary(ops.Shift, v.val)
	}
	return binary(ops.Add, v, w)
}

// Sub returns v - w.
func (v Var) Sub(w Var) Var {
	switch {
	case w.s == nil:
		return v.unary(ops.Shift, -w.val)
	case v.s == nil:
		return w.unary(ops.ConstSub, v.val)
	}
	return binary(ops.Sub, v, w)
}

// Mul returns v * w.
func (v Var) Mul(w Var) Var {
	switch {
	case w.s == nil:
		return v.unary(ops.Scale, w.val)
	case v.s == nil:
		return w.unary(ops.Scale, v.val)
	}
	return binary(ops.Mul, v, w)
}

// Div returns v / w.
func (v Var) Div(w Var) Var {
	switch {
	case w.s == nil:
		return v.unary(ops.DivConst, w.val)
	case v.s == nil:
		return w.unary(ops.ConstDiv, v.val)
	}
	return binary(ops.Div, v, w)
}

// PowVar returns v raised to w.
func (v Var) PowVar(w Var) Var {
	switch {
	case w.s == nil:
		return v.unary(ops.PowConst, w.val)
	case v.s == nil:
		return w.unary(ops.ConstPow, v.val)
	}
	return binary(ops.Pow, v, w)
}

// Neg returns -v.
func (v Var) Neg() Var { return v.unary(ops.Neg, 0) }

// Shift returns v + c.
func (v Var) Shift(c float64) Var { return v.unary(ops.Shift, c) }

// Scale returns v * c.
func (v Var) Scale(c float64) Var { return v.unary(ops.Scale, c) }

// Pow returns v raised to the constant p.
func (v Var) Pow(p float64) Var { return v.unary(ops.PowConst, p) }

// Square returns v².
func (v Var) Square() Var { return v.unary(ops.Square, 0) }

// RSub returns c - v.
func (v Var) RSub(c float64) Var { return v.unary(ops.ConstSub, c) }

// RDiv returns c / v.
func (v Var) RDiv(c float64) Var { return v.unary(ops.ConstDiv, c) }

// Exp returns e^v.
func (v Var) Exp() Var { return v.unary(ops.Exp, 0) }

// Exp2 returns 2^v.
func (v Var) Exp2() Var { return v.unary(ops.Exp2, 0) }

// Expm1 returns e^v - 1, accurate near 0.
func (v Var) Expm1() Var { return v.unary(ops.Expm1, 0) }

// Log returns the natural logarithm of v.
func (v Var) Log() Var { return v.unary(ops.Log, 0) }

// Log2 returns the base-2 logarithm of v.
func (v Var) Log2() Var { return v.unary(ops.Log2, 0) }

// Log10 returns the base-10 logarithm of v.
func (v Var) Log10() Var { return v.unary(ops.Log10, 0) }

// Log1p returns log(1 + v), accurate near 0.
func (v Var) Log1p() Var { return v.unary(ops.Log1p, 0) }

// Log1m returns log(1 - v).
func (v Var) Log1m() Var { return v.unary(ops.Log1m, 0) }

// Log1pExp returns log(1 + e^v) without overflow.
func (v Var) Log1pExp() Var { return v.unary(ops.Log1pExp, 0) }

// Log1mExp returns log(1 - e^v) for v < 0.
func (v Var) Log1mExp() Var { return v.unary(ops.Log1mExp, 0) }

// InvLogit returns the logistic sigmoid 1 / (1 + e^-v).
func (v Var) InvLogit() Var { return v.unary(ops.InvLogit, 0) }

// LogInvLogit returns log(InvLogit(v)).
func (v Var) LogInvLogit() Var { return v.unary(ops.LogInvLogit, 0) }

// Logit returns log(v / (1 - v)).
func (v Var) Logit() Var { return v.unary(ops.Logit, 0) }

// Sqrt returns √v.
func (v Var) Sqrt() Var { return v.unary(ops.Sqrt, 0) }

// Cbrt returns the cube root of v.
func (v Var) Cbrt() Var { return v.unary(ops.Cbrt, 0) }

// Inv returns 1 / v.
func (v Var) Inv() Var { return v.unary(ops.Inv, 0) }

// InvSqrt returns 1 / √v.
func (v Var) InvSqrt() Var { return v.unary(ops.InvSqrt, 0) }

// InvSquare returns 1 / v².
func (v Var) InvSquare() Var { return v.unary(ops.InvSquare, 0) }

// Sin returns the sine of v.
func (v Var) Sin() Var { return v.unary(ops.Sin, 0) }

// Cos returns the cosine of v.
func (v Var) Cos() Var { return v.unary(ops.Cos, 0) }

// Tan returns the tangent of v.
func (v Var) Tan() Var { return v.unary(ops.Tan, 0) }

// Asin returns the arcsine of v.
func (v Var) Asin() Var { return v.unary(ops.Asin, 0) }

// Acos returns the arccosine of v.
func (v Var) Acos() Var { return v.unary(ops.Acos, 0) }

// Atan returns the arctangent of v.
func (v Var) Atan() Var { return v.unary(ops.Atan, 0) }

// Sinh returns the hyperbolic sine of v.
func (v Var) Sinh() Var { return v.unary(ops.Sinh, 0) }

// Cosh returns the hyperbolic cosine of v.
func (v Var) Cosh() Var { return v.unary(ops.Cosh, 0) }

// Tanh returns the hyperbolic tangent of v.
func (v Var) Tanh() Var { return v.unary(ops.Tanh, 0) }

// Asinh returns the inverse hyperbolic sine of v.
func (v Var) Asinh() Var { return v.unary(ops.Asinh, 0) }

// Acosh returns the inverse hyperbolic cosine of v.
func (v Var) Acosh() Var { return v.unary(ops.Acosh, 0) }

// Atanh returns the inverse hyperbolic tangent of v.
func (v Var) Atanh() Var { return v.unary(ops.Atanh, 0) }

// Lgamma returns log|Γ(v)|.
func (v Var) Lgamma() Var { return v.unary(ops.Lgamma, 0) }

// Erf returns the error function of v.
func (v Var) Erf() Var { return v.unary(ops.Erf, 0) }

// Erfc returns the complementary error function of v.
func (v Var) Erfc() Var { return v.unary(ops.Erfc, 0) }

// Phi returns the standard normal CDF at v.
func (v Var) Phi() Var { return v.unary(ops.Phi, 0) }

// Abs returns |v|. The derivative at 0 is 0.
func (v Var) Abs() Var { return v.unary(ops.Abs, 0) }

// Floor rounds v down. Its derivative is 0.
func (v Var) Floor() Var { return v.unary(ops.Floor, 0) }

// Ceil rounds v up. Its derivative is 0.
func (v Var) Ceil() Var { return v.unary(ops.Ceil, 0) }

// Round rounds v half away from zero. Its derivative is 0.
func (v Var) Round() Var { return v.unary(ops.Round, 0) }

// Trunc drops the fraction of v. Its derivative is 0.
func (v Var) Trunc() Var { return v.unary(ops.Trunc, 0) }

// Comparisons look at values only and record nothing.

// Less reports v < w by value.
func (v Var) Less(w Var) bool { return v.val < w.val }

// LessEq reports v <= w by value.
func (v Var) LessEq(w Var) bool { return v.val <= w.val }

// Greater reports v > w by value.
func (v Var) Greater(w Var) bool { return v.val > w.val }

// GreaterEq reports v >= w by value.
func (v Var) GreaterEq(w Var) bool { return v.val >= w.val }

// Equal reports v == w by value.
func (v Var) Equal(w Var) bool { return v.val == w.val }

// Pow returns a raised to b.
func Pow(a, b Var) Var { return a.PowVar(b) }

// Fmax returns the larger operand, ignoring a NaN one.
func Fmax(a, b Var) Var { return binary(ops.Fmax, a, b) }

// Fmin returns the smaller operand, ignoring a NaN one.
func Fmin(a, b Var) Var { return binary(ops.Fmin, a, b) }

// Fdim returns max(a-b, 0).
func Fdim(a, b Var) Var { return binary(ops.Fdim, a, b) }

// Hypot returns sqrt(a²+b²).
func Hypot(a, b Var) Var { return binary(ops.Hypot, a, b) }

// Atan2 returns the angle of the point (b, a).
func Atan2(a, b Var) Var { return binary(ops.Atan2, a, b) }

// Fmod returns the C remainder of a / b.
func Fmod(a, b Var) Var { return binary(ops.Fmod, a, b) }

// Values returns the forward values of vs.
func Values(vs []Var) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.val
	}
	return out
}
