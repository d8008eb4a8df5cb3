package autodiff

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/stanmath/internal/arena"
	"github.com/born-ml/stanmath/internal/metrics"
)

func TestEpisodeEndDiscardsNodes(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	assert.Equal(t, 1, s.Depth())
	assert.True(t, ep.Active())

	x := ep.Var(1)
	x.Exp().Mul(x).Sin()
	assert.Equal(t, 4, ep.Nodes())

	ep.End()
	assert.False(t, ep.Active())
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, 0, s.Tape().Len())
	assert.Equal(t, 0, ep.Nodes())
}

func TestStaleVarPanics(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	x := ep.Var(2)
	ep.End()

	err := recoverErr(t, func() { x.Mul(x) })
	assert.ErrorIs(t, err, ErrStaleVar)

	err = recoverErr(t, func() { x.Adj() })
	assert.ErrorIs(t, err, ErrStaleVar)

	// A new episode at the same depth does not revive the variable.
	ep2 := s.Begin()
	defer ep2.End()
	err = recoverErr(t, func() { x.Add(ep2.Var(1)) })
	assert.ErrorIs(t, err, ErrStaleVar)
}

func TestOnlyInnermostEpisodeRecords(t *testing.T) {
	s := NewStack()
	outer := s.Begin()
	inner := s.Begin()

	err := recoverErr(t, func() { outer.Var(1) })
	assert.ErrorIs(t, err, ErrNotInnermost)

	err = recoverErr(t, func() { outer.End() })
	assert.ErrorIs(t, err, ErrNotInnermost)
	assert.Equal(t, 2, s.Depth(), "failed End must not change state")

	inner.End()
	err = recoverErr(t, func() { inner.End() })
	assert.ErrorIs(t, err, ErrNotInnermost)

	outer.End()
	assert.Equal(t, 0, s.Depth())
}

func TestMixedStacksPanic(t *testing.T) {
	a, b := NewStack(), NewStack()
	ea, eb := a.Begin(), b.Begin()
	defer ea.End()
	defer eb.End()

	x, y := ea.Var(1), eb.Var(2)
	err := recoverErr(t, func() { x.Mul(y) })
	assert.ErrorIs(t, err, ErrMixedStacks)

	err = recoverErr(t, func() { Sum([]Var{x, y}) })
	assert.ErrorIs(t, err, ErrMixedStacks)

	err = recoverErr(t, func() { ea.Grad(x, y) })
	assert.ErrorIs(t, err, ErrMixedStacks)
}

func TestNestedEpisodeLeavesOuterIntact(t *testing.T) {
	s := NewStack()
	outer := s.Begin()
	defer outer.End()

	x := outer.Var(3)
	y := x.Square()
	outerNodes := outer.Nodes()

	err := s.Nested(func(inner *Episode) error {
		assert.Equal(t, 1, inner.Depth())
		z := x.Scale(5).Add(inner.Var(1))
		assert.Equal(t, []float64{5}, inner.Grad(z, x))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, outerNodes, outer.Nodes())
	assert.True(t, outer.Active())
	assert.Equal(t, []float64{6}, outer.Grad(y, x))
}

func TestNestedSweepTreatsOuterNodesAsInputs(t *testing.T) {
	s := NewStack()
	outer := s.Begin()
	defer outer.End()

	x := outer.Var(2)
	u := x.Exp()

	require.NoError(t, s.Nested(func(inner *Episode) error {
		v := u.Mul(u)
		inner.Backward(v)
		assert.InDelta(t, 2*math.Exp(2), u.Adj(), 1e-12)
		// x is upstream of the inner episode; its chain rule did not run.
		assert.Zero(t, x.Adj())
		return nil
	}))
	assert.Zero(t, u.Adj())
}

func TestNestedSweepKeepsOuterAdjoints(t *testing.T) {
	s := NewStack()
	outer := s.Begin()
	defer outer.End()

	x := outer.Var(3)
	y := x.Mul(x)
	outer.Backward(y)
	require.Equal(t, 6.0, x.Adj())

	require.NoError(t, s.Nested(func(inner *Episode) error {
		u := inner.Var(1)
		assert.InDelta(t, math.E, inner.Grad(u.Exp(), u)[0], 1e-15)
		return nil
	}))
	assert.Equal(t, 6.0, x.Adj())

	// A nested sweep through outer nodes sees only its own contributions,
	// and the outer adjoints come back when it ends.
	require.NoError(t, s.Nested(func(inner *Episode) error {
		z := y.Scale(2).Add(x)
		assert.Equal(t, []float64{1}, inner.Grad(z, x))
		assert.Equal(t, 2.0, y.Adj())
		return nil
	}))
	assert.Equal(t, 6.0, x.Adj())
	assert.Equal(t, 1.0, y.Adj())
}

func TestNestedSweepKeepsOuterHubAdjoints(t *testing.T) {
	s := NewStack()
	outer := s.Begin()
	defer outer.End()

	xs := outer.Vars([]float64{0.5, -1, 2})
	p := Softmax(xs)
	want := outer.Grad(p[0], xs...)

	require.NoError(t, s.Nested(func(inner *Episode) error {
		inner.Backward(p[2].Scale(3))
		return nil
	}))
	assert.Equal(t, want, []float64{xs[0].Adj(), xs[1].Adj(), xs[2].Adj()})
	assert.Equal(t, want, outer.Grad(p[0], xs...))
}

func TestNestedReturnsError(t *testing.T) {
	s := NewStack()
	boom := errors.New("boom")

	err := s.Nested(func(ep *Episode) error {
		ep.Var(1)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, 0, s.Tape().Len())
}

func TestNestedReleasesForgottenEpisodes(t *testing.T) {
	s := NewStack()

	require.NoError(t, s.Nested(func(ep *Episode) error {
		inner := s.Begin()
		inner.Var(1)
		return nil
	}))
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, 0, s.Tape().Len())
}

func TestNestedReleasesOnPanic(t *testing.T) {
	s := NewStack()

	assert.Panics(t, func() {
		_ = s.Nested(func(ep *Episode) error {
			ep.Var(1)
			panic("model failure")
		})
	})
	assert.Equal(t, 0, s.Depth())

	// The stack is usable afterwards.
	ep := s.Begin()
	defer ep.End()
	x := ep.Var(4)
	assert.Equal(t, []float64{0.25}, ep.Grad(x.Sqrt(), x))
}

func model(xs []Var) Var {
	a := LogSumExp(xs)
	b := Dot(xs, CumulativeSum(xs))
	c := Softmax(xs)[0].Log1p()
	return a.Mul(b).Add(c).Sub(xs[0].Lgamma())
}

func TestReusedStackIsBitIdentical(t *testing.T) {
	x := []float64{0.3, 1.7, -0.2, 2.4}

	wantY, wantG := reverseGrad(model, x)

	s := NewStack(WithArena(arena.Config{InitialBlock: 8}))
	for range 5 {
		ep := s.Begin()
		xs := ep.Vars(x)
		// Unrelated work of varying size between runs.
		Sum(ep.Vars(make([]float64, 17)))
		y := model(xs)
		g := ep.Grad(y, xs...)
		ep.End()

		assert.Equal(t, math.Float64bits(wantY), math.Float64bits(y.Value()))
		for i := range g {
			assert.Equal(t, math.Float64bits(wantG[i]), math.Float64bits(g[i]))
		}
	}
}

func TestArenaIsReusedAcrossEpisodes(t *testing.T) {
	s := NewStack(WithArena(arena.Config{InitialBlock: 4}))
	x := []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}

	run := func() {
		ep := s.Begin()
		defer ep.End()
		xs := ep.Vars(x)
		ep.Grad(model(xs), xs...)
	}

	run()
	first := s.Stats().Arena()
	require.Positive(t, first.Grows)
	for range 10 {
		run()
	}
	after := s.Stats().Arena()
	assert.Equal(t, first.Grows, after.Grows, "steady-state episodes must not allocate blocks")
	assert.Equal(t, first.BytesReserved, after.BytesReserved)
	assert.Zero(t, after.BytesInUse)
}

func TestStats(t *testing.T) {
	s := NewStack()
	ep := s.Begin()
	xs := ep.Vars([]float64{1, 2})
	y := Sum(xs)
	ep.Grad(y, xs...)
	ep.Grad(y, xs...)

	st := s.Stats()
	assert.Equal(t, 3, st.Nodes)
	assert.Equal(t, 1, st.Depth)
	assert.Equal(t, int64(1), st.Episodes)
	assert.Equal(t, int64(2), st.Sweeps)
	assert.Positive(t, st.Operands.BytesInUse)
	ep.End()
}

func TestMetrics(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	s := NewStack(WithMetrics(c), WithArena(arena.Config{InitialBlock: 2}))

	for range 3 {
		require.NoError(t, s.Nested(func(ep *Episode) error {
			xs := ep.Vars([]float64{1, 2, 3})
			ep.Grad(DotSelf(xs), xs...)
			return nil
		}))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(c.EpisodesBegun))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.EpisodesEnded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Sweeps))
	assert.Positive(t, testutil.ToFloat64(c.ArenaGrows))
	assert.Equal(t, float64(s.Stats().Arena().BytesReserved), testutil.ToFloat64(c.ArenaReserved))
	assert.Equal(t, 2, testutil.CollectAndCount(c.EpisodeNodes)+testutil.CollectAndCount(c.SweepDuration))
}

func BenchmarkNestedGradLargeOuterTape(b *testing.B) {
	s := NewStack()
	outer := s.Begin()
	defer outer.End()

	acc := outer.Var(1)
	for range 200_000 {
		acc = acc.Shift(1)
	}

	for b.Loop() {
		_ = s.Nested(func(inner *Episode) error {
			u := inner.Var(2)
			inner.Grad(u.Square(), u)
			return nil
		})
	}
}
