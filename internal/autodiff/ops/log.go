package ops

import "math"

// Logarithms and roots.
//
//	log:    d/dx = 1/x
//	log2:   d/dx = 1/(x·ln2)
//	log10:  d/dx = 1/(x·ln10)
//	log1p:  d/dx = 1/(1+x)
//	log1m:  log(1-x), d/dx = -1/(1-x)
//	sqrt:   d/dx = 1/(2y)
//	cbrt:   d/dx = 1/(3y²)
//	inv:    1/x, d/dx = -y²
//	inv_sqrt:   1/sqrt(x), d/dx = -y/(2x)
//	inv_square: 1/x², d/dx = -2y/x
var (
	Log = RegisterUnary(UnaryRule{
		Name:  "log",
		Eval:  func(x, _ float64) float64 { return math.Log(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / x },
	})

	Log2 = RegisterUnary(UnaryRule{
		Name:  "log2",
		Eval:  func(x, _ float64) float64 { return math.Log2(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (x * math.Ln2) },
	})

	Log10 = RegisterUnary(UnaryRule{
		Name:  "log10",
		Eval:  func(x, _ float64) float64 { return math.Log10(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (x * math.Ln10) },
	})

	Log1p = RegisterUnary(UnaryRule{
		Name:  "log1p",
		Eval:  func(x, _ float64) float64 { return math.Log1p(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (1 + x) },
	})

	Log1m = RegisterUnary(UnaryRule{
		Name:  "log1m",
		Eval:  func(x, _ float64) float64 { return math.Log1p(-x) },
		Deriv: func(x, _, _ float64) float64 { return -1 / (1 - x) },
	})

	Sqrt = RegisterUnary(UnaryRule{
		Name:  "sqrt",
		Eval:  func(x, _ float64) float64 { return math.Sqrt(x) },
		Deriv: func(_, y, _ float64) float64 { return 0.5 / y },
	})

	Cbrt = RegisterUnary(UnaryRule{
		Name:  "cbrt",
		Eval:  func(x, _ float64) float64 { return math.Cbrt(x) },
		Deriv: func(_, y, _ float64) float64 { return 1 / (3 * y * y) },
	})

	Inv = RegisterUnary(UnaryRule{
		Name:  "inv",
		Eval:  func(x, _ float64) float64 { return 1 / x },
		Deriv: func(_, y, _ float64) float64 { return -y * y },
	})

	InvSqrt = RegisterUnary(UnaryRule{
		Name:  "inv_sqrt",
		Eval:  func(x, _ float64) float64 { return 1 / math.Sqrt(x) },
		Deriv: func(x, y, _ float64) float64 { return -0.5 * y / x },
	})

	InvSquare = RegisterUnary(UnaryRule{
		Name:  "inv_square",
		Eval:  func(x, _ float64) float64 { return 1 / (x * x) },
		Deriv: func(x, y, _ float64) float64 { return -2 * y / x },
	})
)
