package optim

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/stanmath/internal/autodiff"
	"github.com/born-ml/stanmath/internal/functional"
)

// ErrNonFinite is returned when the objective or its gradient stops being
// finite during an ascent.
var ErrNonFinite = errors.New("optim: objective is not finite")

// MaximizeConfig controls Maximize.
type MaximizeConfig struct {
	MaxIters int     // Gradient evaluations allowed (default: 1000)
	Tol      float64 // Stop when the gradient's Euclidean norm falls below Tol (default: 1e-8)
}

// Result is the outcome of an ascent.
type Result struct {
	X         []float64 // Final point
	Value     float64   // Objective at X
	Grad      []float64 // Gradient at X
	Iters     int       // Gradient evaluations performed
	Converged bool      // Whether the gradient norm fell below the tolerance
}

// Maximize ascends f from x0 with opt.
//
// Every iteration evaluates f and its gradient in a fresh episode of s, so
// the tape never grows beyond one evaluation. x0 is not modified.
func Maximize(s *autodiff.Stack, f functional.Func, x0 []float64, opt Optimizer, cfg MaximizeConfig) (Result, error) {
	if cfg.MaxIters <= 0 {
		cfg.MaxIters = 1000
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-8
	}

	x := append([]float64(nil), x0...)
	step := make([]float64, len(x))
	res := Result{X: x}

	for {
		fx, grad, err := functional.Gradient(s, f, x)
		if err != nil {
			return res, err
		}
		res.Iters++
		res.Value, res.Grad = fx, grad

		if math.IsNaN(fx) || math.IsInf(fx, 0) || !allFinite(grad) {
			return res, fmt.Errorf("%w: f=%g at iteration %d", ErrNonFinite, fx, res.Iters)
		}
		if floats.Norm(grad, 2) < cfg.Tol {
			res.Converged = true
			return res, nil
		}
		if res.Iters >= cfg.MaxIters {
			return res, nil
		}

		// Optimizers minimize, so step along the negated gradient.
		floats.ScaleTo(step, -1, grad)
		opt.Step(x, step)
	}
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
