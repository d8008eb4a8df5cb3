package ops

import "math"

// Exponentials.
//
//	exp:   dy/dx = y
//	exp2:  dy/dx = y·ln2
//	expm1: dy/dx = y + 1
var (
	Exp = RegisterUnary(UnaryRule{
		Name:  "exp",
		Eval:  func(x, _ float64) float64 { return math.Exp(x) },
		Deriv: func(_, y, _ float64) float64 { return y },
	})

	Exp2 = RegisterUnary(UnaryRule{
		Name:  "exp2",
		Eval:  func(x, _ float64) float64 { return math.Exp2(x) },
		Deriv: func(_, y, _ float64) float64 { return y * math.Ln2 },
	})

	Expm1 = RegisterUnary(UnaryRule{
		Name:  "expm1",
		Eval:  func(x, _ float64) float64 { return math.Expm1(x) },
		Deriv: func(_, y, _ float64) float64 { return y + 1 },
	})
)

// Logit-scale helpers used by densities on the log scale.
//
//	log1p_exp(x) = log(1 + e^x),        d/dx = inv_logit(x)
//	log1m_exp(x) = log(1 - e^x), x < 0, d/dx = -1/expm1(-x)
//	inv_logit(x) = 1 / (1 + e^-x),      d/dx = y(1-y)
//	log_inv_logit(x) = -log1p_exp(-x),  d/dx = inv_logit(-x)
//	logit(x) = log(x / (1-x)),          d/dx = 1 / (x(1-x))
var (
	Log1pExp = RegisterUnary(UnaryRule{
		Name:  "log1p_exp",
		Eval:  func(x, _ float64) float64 { return Log1pExpValue(x) },
		Deriv: func(x, _, _ float64) float64 { return InvLogitValue(x) },
	})

	Log1mExp = RegisterUnary(UnaryRule{
		Name:  "log1m_exp",
		Eval:  func(x, _ float64) float64 { return Log1mExpValue(x) },
		Deriv: func(x, _, _ float64) float64 { return -1 / math.Expm1(-x) },
	})

	InvLogit = RegisterUnary(UnaryRule{
		Name:  "inv_logit",
		Eval:  func(x, _ float64) float64 { return InvLogitValue(x) },
		Deriv: func(_, y, _ float64) float64 { return y * (1 - y) },
	})

	LogInvLogit = RegisterUnary(UnaryRule{
		Name:  "log_inv_logit",
		Eval:  func(x, _ float64) float64 { return -Log1pExpValue(-x) },
		Deriv: func(x, _, _ float64) float64 { return InvLogitValue(-x) },
	})

	Logit = RegisterUnary(UnaryRule{
		Name:  "logit",
		Eval:  func(x, _ float64) float64 { return math.Log(x / (1 - x)) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (x * (1 - x)) },
	})
)

// Log1pExpValue computes log(1 + e^x) without overflow for large x.
func Log1pExpValue(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// Log1mExpValue computes log(1 - e^x) for x < 0. It returns -Inf at 0 and
// NaN for positive x.
func Log1mExpValue(x float64) float64 {
	switch {
	case x > 0:
		return math.NaN()
	case x == 0:
		return math.Inf(-1)
	case x > -math.Ln2:
		return math.Log(-math.Expm1(x))
	}
	return math.Log1p(-math.Exp(x))
}

// InvLogitValue computes the logistic sigmoid, stable for large |x|.
func InvLogitValue(x float64) float64 {
	if x < 0 {
		e := math.Exp(x)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(-x))
}
