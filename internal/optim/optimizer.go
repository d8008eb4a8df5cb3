// Package optim implements gradient-based optimizers over flat parameter
// vectors.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Gradient descent with momentum, weight decay and Nesterov updates
//   - Adam: Adaptive Moment Estimation
//   - Maximize: ascent of a scalar objective using reverse-mode gradients
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.05})
//	res, err := optim.Maximize(stack, logDensity, x0, opt, optim.MaximizeConfig{
//	    MaxIters: 500,
//	    Tol:      1e-8,
//	})
package optim

import "errors"

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers minimize: Step moves params against grads. Per-coordinate
// state is sized on the first Step.
type Optimizer interface {
	// Step applies one update to params in place.
	Step(params, grads []float64)

	// Reset clears accumulated state such as velocities and moments.
	Reset()

	// LR returns the current learning rate.
	LR() float64
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// ErrSizeMismatch is returned when params and grads differ in length.
var ErrSizeMismatch = errors.New("optim: params and grads differ in length")

// ensure resizes state to n entries, zeroing it when the size changes.
func ensure(state []float64, n int) []float64 {
	if len(state) == n {
		return state
	}
	return make([]float64, n)
}

func checkSizes(params, grads []float64) {
	if len(params) != len(grads) {
		panic(ErrSizeMismatch)
	}
}
