// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation of scalar
// functions.
//
// Operations on a Var are evaluated eagerly and recorded on the tape of the
// Stack that owns it. A reverse sweep over the tape accumulates adjoints, and
// ending the episode releases every node recorded since it began so the arena
// memory is reused by the next episode.
//
// Example:
//
//	import "github.com/born-ml/stanmath/autodiff"
//
//	func main() {
//	    s := autodiff.NewStack()
//
//	    ep := s.Begin()
//	    x := ep.Var(3)
//	    y := x.Mul(x).Add(x.Scale(2))  // y = x² + 2x, recorded on the tape
//	    grad := ep.Grad(y, x)           // [8]
//	    ep.End()
//	}
//
// A Stack is not safe for concurrent use. Give every goroutine its own, or use
// Gradients to spread independent evaluations across workers.
package autodiff

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/arena"
	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/functional"
	"github.com/born-ml/stanmath/internal/metrics"
	"github.com/born-ml/stanmath/internal/parallel"
)

// Stack owns a tape and its arenas.
type Stack = autodiff.Stack

// Episode is one bracketed period of recording on a Stack.
type Episode = autodiff.Episode

// Var is a differentiable scalar. The zero Var is the constant 0.
type Var = autodiff.Var

// Matrix is a dense row-major matrix of Vars.
type Matrix = autodiff.Matrix

// Scalar is implemented by every scalar mode and used by the mixed-mode
// arithmetic helpers.
type Scalar = autodiff.Scalar

// Option configures a Stack.
type Option = autodiff.Option

// Stats reports stack usage.
type Stats = autodiff.Stats

// ArenaConfig controls arena block sizing.
type ArenaConfig = arena.Config

// Collectors holds the Prometheus metrics shared by instrumented stacks.
type Collectors = metrics.Collectors

// Func is a scalar function of a vector of variables.
type Func = functional.Func

// VecFunc is a vector function of a vector of variables.
type VecFunc = functional.VecFunc

// CheckConfig controls Check.
type CheckConfig = functional.CheckConfig

// CheckError lists the coordinates that failed Check.
type CheckError = functional.CheckError

// ParallelConfig controls Gradients.
type ParallelConfig = parallel.Config

// Point is the value and gradient of a function at one input.
type Point = parallel.Point

// Errors carried by misuse panics. Recover and test with errors.Is.
var (
	ErrStaleVar     = autodiff.ErrStaleVar
	ErrNotInnermost = autodiff.ErrNotInnermost
	ErrNoEpisode    = autodiff.ErrNoEpisode
	ErrMixedStacks  = autodiff.ErrMixedStacks
	ErrMixedModes   = autodiff.ErrMixedModes
	ErrShape        = autodiff.ErrShape
)

// NewStack creates a stack with no episode open.
func NewStack(opts ...Option) *Stack {
	return autodiff.NewStack(opts...)
}

// WithArena sets the block sizing of the tape and operand arenas.
func WithArena(cfg ArenaConfig) Option {
	return autodiff.WithArena(cfg)
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return autodiff.WithLogger(l)
}

// WithMetrics reports stack activity to c.
func WithMetrics(c *Collectors) Option {
	return autodiff.WithMetrics(c)
}

// NewCollectors registers stack metrics with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	return metrics.New(reg)
}

// Const returns a constant. Constants are never recorded.
func Const(x float64) Var { return autodiff.Const(x) }

// Consts converts values to constants.
func Consts(xs []float64) []Var { return autodiff.Consts(xs) }

// Values returns the values of vs.
func Values(vs []Var) []float64 { return autodiff.Values(vs) }

// Sum returns the sum of xs as one node.
func Sum(xs []Var) Var { return autodiff.Sum(xs) }

// Mean returns the arithmetic mean of xs.
func Mean(xs []Var) Var { return autodiff.Mean(xs) }

// Variance returns the sample variance of xs.
func Variance(xs []Var) Var { return autodiff.Variance(xs) }

// Dot returns the inner product of x and y.
func Dot(x, y []Var) Var { return autodiff.Dot(x, y) }

// LogSumExp returns log(Σ exp(xs)) computed stably.
func LogSumExp(xs []Var) Var { return autodiff.LogSumExp(xs) }

// Log1pExpAll returns log(1 + exp(x)) for every entry of xs.
func Log1pExpAll(xs []Var) []Var { return autodiff.Log1pExpAll(xs) }

// Softmax returns the softmax of xs.
func Softmax(xs []Var) []Var { return autodiff.Softmax(xs) }

// MatMul returns the product of a and b.
func MatMul(a, b Matrix) Matrix { return autodiff.MatMul(a, b) }

// PrecomputedGradients records a node whose partials were computed elsewhere.
func PrecomputedGradients(value float64, operands []Var, gradients []float64) Var {
	return autodiff.PrecomputedGradients(value, operands, gradients)
}

// Gradient evaluates f and its gradient at x in a nested episode of s.
func Gradient(s *Stack, f Func, x []float64) (float64, []float64, error) {
	return functional.Gradient(s, f, x)
}

// Jacobian evaluates f and its Jacobian at x in a nested episode of s.
func Jacobian(s *Stack, f VecFunc, x []float64) ([]float64, *mat.Dense, error) {
	return functional.Jacobian(s, f, x)
}

// Hessian returns the Hessian of f at x by central differences of the
// reverse-mode gradient.
func Hessian(s *Stack, f Func, x []float64, step float64) (*mat.Dense, error) {
	return functional.Hessian(s, f, x, step)
}

// Check compares the gradient of f at x against finite differences.
func Check(s *Stack, f Func, x []float64, cfg CheckConfig) error {
	return functional.Check(s, f, x, cfg)
}

// Gradients evaluates f and its gradient at every input in parallel, one
// private stack per worker.
func Gradients(ctx context.Context, cfg ParallelConfig, f Func, xs [][]float64, opts ...Option) ([]Point, error) {
	return parallel.Gradients(ctx, cfg, f, xs, opts...)
}
