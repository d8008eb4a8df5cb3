// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides first-order optimizers driven by reverse-mode
// gradients.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum, Nesterov and weight decay
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Maximize: gradient ascent of a log density, one episode per step
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/stanmath/autodiff"
//	    "github.com/born-ml/stanmath/optim"
//	)
//
//	func main() {
//	    s := autodiff.NewStack()
//
//	    // log density of a standard normal, up to a constant
//	    logp := func(x []autodiff.Var) (autodiff.Var, error) {
//	        return x[0].Square().Scale(-0.5), nil
//	    }
//
//	    res, err := optim.Maximize(s, logp, []float64{3},
//	        optim.NewAdam(optim.AdamConfig{LR: 0.1}),
//	        optim.MaximizeConfig{MaxIters: 1000},
//	    )
//	}
//
// # Optimizers
//
// Optimizers minimize: Step moves params against grads in place.
//
// SGD (Stochastic Gradient Descent):
//
//	optimizer := optim.NewSGD(optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//
// Adam (Adaptive Moment Estimation):
//
//	optimizer := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
//
// # Manual Loop Pattern
//
//	for range steps {
//	    // 1. Gradient of the loss in a fresh episode
//	    _, grad, err := autodiff.Gradient(s, loss, params)
//
//	    // 2. Update parameters
//	    optimizer.Step(params, grad)
//	}
package optim
