package ops

import "math"

// Trigonometric functions.
var (
	Sin = RegisterUnary(UnaryRule{
		Name:  "sin",
		Eval:  func(x, _ float64) float64 { return math.Sin(x) },
		Deriv: func(x, _, _ float64) float64 { return math.Cos(x) },
	})

	Cos = RegisterUnary(UnaryRule{
		Name:  "cos",
		Eval:  func(x, _ float64) float64 { return math.Cos(x) },
		Deriv: func(x, _, _ float64) float64 { return -math.Sin(x) },
	})

	// Tan uses d/dx = 1 + tan²(x).
	Tan = RegisterUnary(UnaryRule{
		Name:  "tan",
		Eval:  func(x, _ float64) float64 { return math.Tan(x) },
		Deriv: func(_, y, _ float64) float64 { return 1 + y*y },
	})

	Asin = RegisterUnary(UnaryRule{
		Name:  "asin",
		Eval:  func(x, _ float64) float64 { return math.Asin(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / math.Sqrt(1-x*x) },
	})

	Acos = RegisterUnary(UnaryRule{
		Name:  "acos",
		Eval:  func(x, _ float64) float64 { return math.Acos(x) },
		Deriv: func(x, _, _ float64) float64 { return -1 / math.Sqrt(1-x*x) },
	})

	Atan = RegisterUnary(UnaryRule{
		Name:  "atan",
		Eval:  func(x, _ float64) float64 { return math.Atan(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (1 + x*x) },
	})
)

// Hyperbolic functions.
var (
	Sinh = RegisterUnary(UnaryRule{
		Name:  "sinh",
		Eval:  func(x, _ float64) float64 { return math.Sinh(x) },
		Deriv: func(x, _, _ float64) float64 { return math.Cosh(x) },
	})

	Cosh = RegisterUnary(UnaryRule{
		Name:  "cosh",
		Eval:  func(x, _ float64) float64 { return math.Cosh(x) },
		Deriv: func(x, _, _ float64) float64 { return math.Sinh(x) },
	})

	Tanh = RegisterUnary(UnaryRule{
		Name:  "tanh",
		Eval:  func(x, _ float64) float64 { return math.Tanh(x) },
		Deriv: func(_, y, _ float64) float64 { return 1 - y*y },
	})

	Asinh = RegisterUnary(UnaryRule{
		Name:  "asinh",
		Eval:  func(x, _ float64) float64 { return math.Asinh(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / math.Sqrt(x*x+1) },
	})

	Acosh = RegisterUnary(UnaryRule{
		Name:  "acosh",
		Eval:  func(x, _ float64) float64 { return math.Acosh(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / math.Sqrt(x*x-1) },
	})

	Atanh = RegisterUnary(UnaryRule{
		Name:  "atanh",
		Eval:  func(x, _ float64) float64 { return math.Atanh(x) },
		Deriv: func(x, _, _ float64) float64 { return 1 / (1 - x*x) },
	})
)
