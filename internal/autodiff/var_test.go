package autodiff

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
	"github.com/born-ml/stanmath/internal/scalar"
)

// recoverErr runs fn and returns the error it panicked with.
func recoverErr(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		e, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		err = e
	}()
	fn()
	return nil
}

// finiteGrad differentiates f numerically, evaluating it on constants.
func finiteGrad(f func([]Var) Var, x []float64) []float64 {
	return fd.Gradient(nil, func(p []float64) float64 {
		return f(Consts(p)).Value()
	}, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
}

// reverseGrad differentiates f on a fresh stack.
func reverseGrad(f func([]Var) Var, x []float64) (float64, []float64) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()
	xs := ep.Vars(x)
	y := f(xs)
	return y.Value(), ep.Grad(y, xs...)
}

func TestQuadraticScenario(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(3)
	y := x.Mul(x).Add(x.Scale(2))

	assert.Equal(t, 15.0, y.Value())
	assert.Equal(t, []float64{8}, ep.Grad(y, x))
}

func TestSumScenario(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	xs := ep.Vars([]float64{1, 2, 3})
	y := Sum(xs)

	assert.Equal(t, 6.0, y.Value())
	assert.Equal(t, []float64{1, 1, 1}, ep.Grad(y, xs...))
}

func TestZeroVarIsConstant(t *testing.T) {
	var v Var
	assert.True(t, v.IsConstant())
	assert.Equal(t, 0.0, v.Value())
	assert.Equal(t, NoNode, v.ID())
	assert.Equal(t, scalar.Constant, v.Capability())
	assert.Zero(t, v.Adj())
	assert.Equal(t, "const(0)", v.String())
}

func TestConstantArithmeticRecordsNothing(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	y := Const(2).Mul(Const(3)).Exp().Add(ep.Const(1))
	assert.True(t, y.IsConstant())
	assert.InDelta(t, math.Exp(6)+1, y.Value(), 1e-9)
	assert.Equal(t, 0, s.Tape().Len())

	assert.True(t, Hypot(Const(3), Const(4)).IsConstant())
	assert.True(t, Sum(Consts([]float64{1, 2})).IsConstant())
}

func TestConstantOperandSpecialisations(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()
	x := ep.Var(2)

	tests := []struct {
		name  string
		y     Var
		value float64
		deriv float64
	}{
		{"add_const", x.Add(Const(3)), 5, 1},
		{"add_const", Const(3).Add(x), 5, 1},
		{"add_const", x.Sub(Const(3)), -1, 1},
		{"const_sub", Const(3).Sub(x), 1, -1},
		{"mul_const", x.Mul(Const(3)), 6, 3},
		{"mul_const", Const(3).Mul(x), 6, 3},
		{"div_const", x.Div(Const(4)), 0.5, 0.25},
		{"const_div", Const(4).Div(x), 2, -1},
		{"pow_const", x.PowVar(Const(3)), 8, 12},
		{"const_pow", Const(3).PowVar(x), 9, 9 * math.Log(3)},
		{"const_sub", x.RSub(1), -1, -1},
		{"const_div", x.RDiv(1), 0.5, -0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := s.Tape().At(tt.y.ID())
			assert.Equal(t, tt.name, n.Name())
			assert.Equal(t, []NodeID{x.ID()}, n.Operands())
			assert.InDelta(t, tt.value, tt.y.Value(), 1e-15)
			assert.InDelta(t, tt.deriv, ep.Grad(tt.y, x)[0], 1e-12)
		})
	}
}

func TestBinaryWithConstantRecordsLeaf(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(3)
	y := Hypot(x, Const(4))
	assert.Equal(t, 5.0, y.Value())

	operands := s.Tape().At(y.ID()).Operands()
	require.Len(t, operands, 2)
	assert.Equal(t, "leaf", s.Tape().At(operands[1]).Name())
	assert.InDelta(t, 0.6, ep.Grad(y, x)[0], 1e-15)
}

func TestUnaryAgainstFiniteDifferences(t *testing.T) {
	tests := []struct {
		name string
		f    func(Var) Var
		x    float64
	}{
		{"neg", Var.Neg, 0.7},
		{"square", Var.Square, -1.3},
		{"exp", Var.Exp, 0.7},
		{"exp2", Var.Exp2, 0.7},
		{"expm1", Var.Expm1, 0.7},
		{"log", Var.Log, 1.7},
		{"log2", Var.Log2, 1.7},
		{"log10", Var.Log10, 1.7},
		{"log1p", Var.Log1p, 1.7},
		{"log1m", Var.Log1m, 0.3},
		{"log1p_exp", Var.Log1pExp, -2.1},
		{"log1m_exp", Var.Log1mExp, -0.4},
		{"inv_logit", Var.InvLogit, 0.8},
		{"log_inv_logit", Var.LogInvLogit, 0.8},
		{"logit", Var.Logit, 0.3},
		{"sqrt", Var.Sqrt, 2.2},
		{"cbrt", Var.Cbrt, 2.2},
		{"inv", Var.Inv, 2.2},
		{"inv_sqrt", Var.InvSqrt, 2.2},
		{"inv_square", Var.InvSquare, 2.2},
		{"sin", Var.Sin, 0.9},
		{"cos", Var.Cos, 0.9},
		{"tan", Var.Tan, 0.9},
		{"asin", Var.Asin, 0.4},
		{"acos", Var.Acos, 0.4},
		{"atan", Var.Atan, 0.4},
		{"sinh", Var.Sinh, 0.4},
		{"cosh", Var.Cosh, 0.4},
		{"tanh", Var.Tanh, 0.4},
		{"asinh", Var.Asinh, 0.4},
		{"acosh", Var.Acosh, 1.4},
		{"atanh", Var.Atanh, 0.4},
		{"lgamma", Var.Lgamma, 2.6},
		{"erf", Var.Erf, 0.6},
		{"erfc", Var.Erfc, 0.6},
		{"phi", Var.Phi, 0.6},
		{"abs", Var.Abs, -0.6},
		{"floor", Var.Floor, 1.6},
		{"pow", func(v Var) Var { return v.Pow(2.5) }, 1.6},
		{"shift", func(v Var) Var { return v.Shift(-4) }, 1.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := func(x []Var) Var { return tt.f(x[0]) }
			y, rev := reverseGrad(f, []float64{tt.x})
			fin := finiteGrad(f, []float64{tt.x})

			assert.Equal(t, f(Consts([]float64{tt.x})).Value(), y, "value must not depend on mode")
			assert.InDelta(t, fin[0], rev[0], 1e-6*math.Max(1, math.Abs(fin[0])))
		})
	}
}

func TestBinaryAgainstFiniteDifferences(t *testing.T) {
	tests := []struct {
		name string
		f    func(a, b Var) Var
		a, b float64
	}{
		{"add", Var.Add, 1.3, -0.4},
		{"sub", Var.Sub, 1.3, -0.4},
		{"mul", Var.Mul, 1.3, -0.4},
		{"div", Var.Div, 1.3, -0.4},
		{"pow", Pow, 1.3, -0.4},
		{"fmax", Fmax, 1.3, -0.4},
		{"fmin", Fmin, 1.3, -0.4},
		{"fdim", Fdim, 1.3, -0.4},
		{"hypot", Hypot, 1.3, -0.4},
		{"atan2", Atan2, 1.3, -0.4},
		{"fmod", Fmod, 5.3, 1.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := func(x []Var) Var { return tt.f(x[0], x[1]) }
			x := []float64{tt.a, tt.b}
			_, rev := reverseGrad(f, x)
			assert.InDeltaSlice(t, finiteGrad(f, x), rev, 1e-6)
		})
	}
}

func TestFmaxTieGoesToFirstOperand(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	a, b := ep.Var(2), ep.Var(2)
	assert.Equal(t, []float64{1, 0}, ep.Grad(Fmax(a, b), a, b))
	assert.Equal(t, []float64{1, 0}, ep.Grad(Fmin(a, b), a, b))
}

func TestAbsAtZero(t *testing.T) {
	_, g := reverseGrad(func(x []Var) Var { return x[0].Abs() }, []float64{0})
	assert.Equal(t, []float64{0}, g)
}

func TestComparisonsUseValues(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(2)
	assert.True(t, x.Less(Const(3)))
	assert.True(t, x.LessEq(Const(2)))
	assert.True(t, x.Greater(Const(1)))
	assert.True(t, x.GreaterEq(x))
	assert.True(t, x.Equal(Const(2)))
	assert.Equal(t, 1, s.Tape().Len(), "comparisons record nothing")
}

func TestApplyRegisteredKinds(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()
	x := ep.Var(0.5)

	y := Apply1(ops.Exp, x, 0)
	assert.Equal(t, math.Exp(0.5), y.Value())

	z := Apply2(ops.Mul, x, y)
	assert.InDelta(t, 0.5*math.Exp(0.5), z.Value(), 1e-15)

	assert.Panics(t, func() { Apply1(ops.Mul, x, 0) })
	assert.Panics(t, func() { Apply2(ops.Exp, x, y) })
}

func TestNaNPropagates(t *testing.T) {
	y, g := reverseGrad(func(x []Var) Var { return x[0].Sqrt() }, []float64{-1})
	assert.True(t, math.IsNaN(y))
	assert.True(t, math.IsNaN(g[0]))
}

func TestVarString(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	assert.Equal(t, "var(1.5)#0", ep.Var(1.5).String())
}

func TestErrorsWrapSentinels(t *testing.T) {
	err := recoverErr(t, func() { NewMatrix(2, 2, nil) })
	assert.True(t, errors.Is(err, ErrShape))
	assert.Contains(t, err.Error(), "0 entries for a 2x2 matrix")
}
