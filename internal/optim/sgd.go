package optim

// SGD implements gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * (gradient + weight_decay * param)
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// With Nesterov enabled the step uses gradient + momentum * velocity instead.
type SGD struct {
	lr          float64
	momentum    float64
	weightDecay float64
	nesterov    bool
	velocity    []float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR          float64 // Learning rate (default: 0.01)
	Momentum    float64 // Momentum factor (default: 0.0, range: [0, 1))
	WeightDecay float64 // L2 penalty (default: 0.0)
	Nesterov    bool    // Use Nesterov momentum
}

// NewSGD creates a new SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		nesterov:    config.Nesterov,
	}
}

// Step performs a single optimization step.
func (s *SGD) Step(params, grads []float64) {
	checkSizes(params, grads)
	if s.momentum != 0 {
		s.velocity = ensure(s.velocity, len(params))
	}

	for i, g := range grads {
		if s.weightDecay != 0 {
			g += s.weightDecay * params[i]
		}
		if s.momentum != 0 {
			s.velocity[i] = s.momentum*s.velocity[i] + g
			if s.nesterov {
				g += s.momentum * s.velocity[i]
			} else {
				g = s.velocity[i]
			}
		}
		params[i] -= s.lr * g
	}
}

// Reset clears the velocity buffer.
func (s *SGD) Reset() {
	s.velocity = nil
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
