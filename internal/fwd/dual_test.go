package fwd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mathext"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/scalar"
)

func TestDerivativeQuadratic(t *testing.T) {
	y, dy := Derivative(func(x Dual) Dual {
		return x.Mul(x).Add(x.Scale(2))
	}, 3)
	assert.Equal(t, 15.0, y)
	assert.Equal(t, 8.0, dy)
}

func TestUnaryDerivatives(t *testing.T) {
	tests := []struct {
		name string
		f    func(Dual) Dual
		x    float64
		want float64
	}{
		{"exp", Dual.Exp, 0.7, math.Exp(0.7)},
		{"expm1", Dual.Expm1, 0.7, math.Exp(0.7)},
		{"log", Dual.Log, 2.5, 1 / 2.5},
		{"log1p", Dual.Log1p, 2.5, 1 / 3.5},
		{"sqrt", Dual.Sqrt, 4, 0.25},
		{"square", Dual.Square, -3, -6},
		{"sin", Dual.Sin, 1.2, math.Cos(1.2)},
		{"cos", Dual.Cos, 1.2, -math.Sin(1.2)},
		{"tanh", Dual.Tanh, 0.4, 1 - math.Tanh(0.4)*math.Tanh(0.4)},
		{"abs", Dual.Abs, -2, -1},
		{"neg", Dual.Neg, 5, -1},
		{"log1p_exp", Dual.Log1pExp, 1.5, 1 / (1 + math.Exp(-1.5))},
		{"inv_logit", Dual.InvLogit, 0, 0.25},
		{"lgamma", Dual.Lgamma, 3.5, mathext.Digamma(3.5)},
		{"pow", func(x Dual) Dual { return x.Pow(3) }, 2, 12},
		{"shift", func(x Dual) Dual { return x.Shift(4) }, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Derivative(tt.f, tt.x)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestQuotientRule(t *testing.T) {
	// d/dx (x / (1+x²)) = (1-x²) / (1+x²)²
	_, got := Derivative(func(x Dual) Dual {
		return x.Div(x.Square().Shift(1))
	}, 0.5)
	assert.InDelta(t, 0.75/(1.25*1.25), got, 1e-12)
}

func TestCapability(t *testing.T) {
	c := Constant(2)
	v := Variable(3)

	assert.Equal(t, scalar.Constant, c.Capability())
	assert.Equal(t, scalar.Differentiable, v.Capability())
	assert.Equal(t, scalar.Differentiable, c.Mul(v).Capability())
	assert.Equal(t, scalar.Constant, c.Add(c.Lift(1)).Exp().Capability())
	assert.Zero(t, c.Exp().Tangent())
}

func TestDirectional(t *testing.T) {
	f := func(x []Dual) Dual { return x[0].Mul(x[1]).Add(x[1].Sin()) }

	y, d := Directional(f, []float64{2, 1}, []float64{1, -1})
	assert.InDelta(t, 2+math.Sin(1), y, 1e-15)
	// ∇f = (x1, x0 + cos x1) = (1, 2 + cos 1)
	assert.InDelta(t, 1-(2+math.Cos(1)), d, 1e-12)

	assert.Panics(t, func() { Directional(f, []float64{1}, nil) })
}

func poly[T scalar.Real[T]](x []T) T {
	// x0² x1 + exp(x1) / x2 - lgamma(x2)
	a := x[0].Square().Mul(x[1])
	b := x[1].Exp().Div(x[2])
	return a.Add(b).Sub(x[2].Lgamma())
}

func TestGradientMatchesReverse(t *testing.T) {
	x := []float64{1.5, -0.3, 2.2}

	fx, grad := Gradient(poly[Dual], x)

	s := autodiff.NewStack()
	ep := s.Begin()
	defer ep.End()
	vs := ep.Vars(x)
	y := poly(vs)

	assert.InDelta(t, y.Value(), fx, 1e-14)
	assert.InDeltaSlice(t, ep.Grad(y, vs...), grad, 1e-12)

	plain := poly(scalar.Floats(x))
	assert.InDelta(t, float64(plain), fx, 1e-14)
}

func TestGradientEmpty(t *testing.T) {
	fx, grad := Gradient(func([]Dual) Dual { return Constant(7) }, nil)
	require.Empty(t, grad)
	assert.Equal(t, 7.0, fx)
}
