// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/stanmath/autodiff"
	"github.com/born-ml/stanmath/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config represents the base configuration for optimizers.
type Config = optim.Config

// ErrSizeMismatch is carried by the panic of Step when params and grads
// differ in length.
var ErrSizeMismatch = optim.ErrSizeMismatch

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Maximization

// MaximizeConfig bounds an ascent.
type MaximizeConfig = optim.MaximizeConfig

// Result is the outcome of an ascent.
type Result = optim.Result

// ErrNonFinite is returned when the objective or its gradient stops being finite.
var ErrNonFinite = optim.ErrNonFinite

// Maximize ascends f from x0 with opt, running one episode of s per step.
// x0 is not modified.
func Maximize(s *autodiff.Stack, f autodiff.Func, x0 []float64, opt Optimizer, cfg MaximizeConfig) (Result, error) {
	return optim.Maximize(s, f, x0, opt, cfg)
}
