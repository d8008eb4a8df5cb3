package autodiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDiamondAccumulates(t *testing.T) {
	// x feeds two branches that meet again: y = (2x) * sin(x).
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(1.1)
	a := x.Scale(2)
	b := x.Sin()
	y := a.Mul(b)

	want := 2*math.Sin(1.1) + 2*1.1*math.Cos(1.1)
	assert.InDelta(t, want, ep.Grad(y, x)[0], 1e-14)
}

func TestSharedSubexpression(t *testing.T) {
	// u is used three times; its adjoint must collect every use.
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(0.5)
	u := x.Exp()
	y := u.Mul(u).Add(u)

	ep.Backward(y)
	eu := math.Exp(0.5)
	assert.InDelta(t, 2*eu+1, u.Adj(), 1e-14)
	assert.InDelta(t, (2*eu+1)*eu, x.Adj(), 1e-14)
}

func TestLinearity(t *testing.T) {
	f := func(x []Var) Var { return x[0].Mul(x[1]).Sin() }
	g := func(x []Var) Var { return x[0].Exp().Div(x[1]) }
	alpha, beta := 2.5, -0.75
	h := func(x []Var) Var { return f(x).Scale(alpha).Add(g(x).Scale(beta)) }

	x := []float64{0.4, 1.9}
	_, gf := reverseGrad(f, x)
	_, gg := reverseGrad(g, x)
	_, gh := reverseGrad(h, x)

	for i := range x {
		assert.InDelta(t, alpha*gf[i]+beta*gg[i], gh[i], 1e-13)
	}
}

func TestChainRule(t *testing.T) {
	// d/dx exp(sin(x²)) = exp(sin(x²)) cos(x²) 2x
	x0 := 0.8
	_, g := reverseGrad(func(x []Var) Var { return x[0].Square().Sin().Exp() }, []float64{x0})

	want := math.Exp(math.Sin(x0*x0)) * math.Cos(x0*x0) * 2 * x0
	assert.InDelta(t, want, g[0], 1e-14)
}

func TestRepeatedSweepsStartFromZero(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	xs := ep.Vars([]float64{1, 2})
	y := Softmax(xs)[1].Mul(xs[0])

	first := ep.Grad(y, xs...)
	second := ep.Grad(y, xs...)
	assert.Equal(t, first, second)

	ep.ZeroAdjoints()
	assert.Zero(t, xs[0].Adj())
}

func TestGradientWithSeeds(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x, y := ep.Var(2), ep.Var(3)
	outs := []Var{x.Mul(y), x.Add(y)}

	g := ep.Gradient(outs, []float64{2, -1}, []Var{x, y, Const(5)})
	assert.Equal(t, []float64{2*3 - 1, 2*2 - 1, 0}, g)

	// A nil seed vector seeds every output with 1.
	assert.Equal(t, []float64{4, 3}, ep.Gradient(outs, nil, []Var{x, y}))

	err := recoverErr(t, func() { ep.Gradient(outs, []float64{1}, []Var{x}) })
	assert.ErrorIs(t, err, ErrShape)
}

func TestGradientOfConstantOutput(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x := ep.Var(1)
	assert.Equal(t, []float64{0}, ep.Grad(Const(7), x))
}

func TestUnreachableInputsGetZero(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	x, z := ep.Var(1), ep.Var(2)
	y := x.Exp()
	assert.InDeltaSlice(t, []float64{math.E, 0}, ep.Grad(y, x, z), 1e-15)
}

func TestJacobian(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	defer ep.End()

	xs := ep.Vars([]float64{1, 2, 3})
	ys := []Var{xs[0].Mul(xs[1]), xs[2].Square(), Sum(xs)}

	jac := ep.Jacobian(ys, xs)
	want := mat.NewDense(3, 3, []float64{
		2, 1, 0,
		0, 0, 6,
		1, 1, 1,
	})
	assert.True(t, mat.Equal(want, jac), "jacobian\n%v", mat.Formatted(jac))

	assert.True(t, ep.Jacobian(nil, xs).IsEmpty())
}

func TestSweepMatchesFiniteDifferencesOnContainers(t *testing.T) {
	f := func(x []Var) Var {
		m := NewMatrix(2, 2, x[:4])
		v := NewMatrix(2, 1, x[4:])
		mv := MatMul(m, v).Data()
		return LogSumExp(LogSoftmax(mv)).Add(Variance(x)).Add(SquaredDistance(x[:3], x[3:]))
	}
	x := []float64{0.2, -0.7, 1.3, 0.4, 0.9, -1.6}

	_, rev := reverseGrad(f, x)
	require.Len(t, rev, len(x))
	assert.InDeltaSlice(t, finiteGrad(f, x), rev, 1e-6)
}
