// Package functional evaluates derivatives of whole functions, each call
// bracketing its own episode on a caller-supplied stack.
//
// A function is written once against autodiff.Var. Gradient, Jacobian and
// Hessian run it on a tape; FiniteDiff runs it on constants and never touches
// a tape. Collapse turns a nested computation into precomputed-gradient
// nodes of the enclosing episode.
package functional

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/autodiff"
)

// Func is a scalar function of a vector.
type Func func(x []autodiff.Var) (autodiff.Var, error)

// VecFunc is a vector function of a vector.
type VecFunc func(x []autodiff.Var) ([]autodiff.Var, error)

// Gradient returns f(x) and ∇f(x) using one reverse sweep.
func Gradient(s *autodiff.Stack, f Func, x []float64) (float64, []float64, error) {
	var (
		fx   float64
		grad []float64
	)
	err := s.Nested(func(ep *autodiff.Episode) error {
		xs := ep.Vars(x)
		y, err := f(xs)
		if err != nil {
			return err
		}
		fx = y.Value()
		grad = ep.Grad(y, xs...)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return fx, grad, nil
}

// Jacobian returns f(x) and the len(f(x))×len(x) Jacobian, one reverse
// sweep per output.
func Jacobian(s *autodiff.Stack, f VecFunc, x []float64) ([]float64, *mat.Dense, error) {
	var (
		fx  []float64
		jac *mat.Dense
	)
	err := s.Nested(func(ep *autodiff.Episode) error {
		xs := ep.Vars(x)
		ys, err := f(xs)
		if err != nil {
			return err
		}
		fx = autodiff.Values(ys)
		jac = ep.Jacobian(ys, xs)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return fx, jac, nil
}

// Value evaluates f on constants. No tape is used.
func Value(f Func, x []float64) (float64, error) {
	y, err := f(autodiff.Consts(x))
	if err != nil {
		return 0, err
	}
	return y.Value(), nil
}

// Collapse runs f on copies of x inside a nested episode, computes its
// Jacobian there, ends the nested episode and records each output in ep as
// a single precomputed-gradient node over x.
//
// This is how solver-style collaborators keep their internal tape out of
// the enclosing episode. ep must be the innermost open episode.
func Collapse(ep *autodiff.Episode, f VecFunc, x []autodiff.Var) ([]autodiff.Var, error) {
	s := ep.Stack()
	if !ep.Active() || ep.Depth() != s.Depth()-1 {
		return nil, fmt.Errorf("collapse: %w", autodiff.ErrNotInnermost)
	}

	vals := autodiff.Values(x)
	fx, jac, err := Jacobian(s, f, vals)
	if err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return autodiff.Consts(fx), nil
	}

	out := make([]autodiff.Var, len(fx))
	for i, v := range fx {
		out[i] = autodiff.PrecomputedGradients(v, x, mat.Row(nil, i, jac))
	}
	return out, nil
}
