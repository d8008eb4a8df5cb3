package ops

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

const invSqrt2Pi = 0.3989422804014327 // 1/sqrt(2π)

// Special functions.
//
//	lgamma: d/dx = digamma(x)
//	erf:    d/dx =  2/sqrt(π)·exp(-x²)
//	erfc:   d/dx = -2/sqrt(π)·exp(-x²)
//	Phi:    standard normal CDF, d/dx = exp(-x²/2)/sqrt(2π)
var (
	Lgamma = RegisterUnary(UnaryRule{
		Name: "lgamma",
		Eval: func(x, _ float64) float64 {
			v, _ := math.Lgamma(x)
			return v
		},
		Deriv: func(x, _, _ float64) float64 { return mathext.Digamma(x) },
	})

	Erf = RegisterUnary(UnaryRule{
		Name:  "erf",
		Eval:  func(x, _ float64) float64 { return math.Erf(x) },
		Deriv: func(x, _, _ float64) float64 { return 2 / math.SqrtPi * math.Exp(-x*x) },
	})

	Erfc = RegisterUnary(UnaryRule{
		Name:  "erfc",
		Eval:  func(x, _ float64) float64 { return math.Erfc(x) },
		Deriv: func(x, _, _ float64) float64 { return -2 / math.SqrtPi * math.Exp(-x*x) },
	})

	Phi = RegisterUnary(UnaryRule{
		Name:  "Phi",
		Eval:  func(x, _ float64) float64 { return 0.5 * math.Erfc(-x/math.Sqrt2) },
		Deriv: func(x, _, _ float64) float64 { return invSqrt2Pi * math.Exp(-0.5*x*x) },
	})
)
