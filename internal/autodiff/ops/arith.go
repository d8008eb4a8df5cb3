package ops

import "math"

// Arithmetic between two differentiable operands.
//
//	add: d(a+b)/da = 1, d(a+b)/db = 1
//	sub: d(a-b)/da = 1, d(a-b)/db = -1
//	mul: d(a*b)/da = b, d(a*b)/db = a
//	div: d(a/b)/da = 1/b, d(a/b)/db = -a/b² = -y/b
var (
	Add = RegisterBinary(BinaryRule{
		Name: "add",
		Eval: func(a, b float64) float64 { return a + b },
		DA:   one2,
		DB:   one2,
	})

	Sub = RegisterBinary(BinaryRule{
		Name: "sub",
		Eval: func(a, b float64) float64 { return a - b },
		DA:   one2,
		DB:   func(_, _, _ float64) float64 { return -1 },
	})

	Mul = RegisterBinary(BinaryRule{
		Name: "mul",
		Eval: func(a, b float64) float64 { return a * b },
		DA:   func(_, b, _ float64) float64 { return b },
		DB:   func(a, _, _ float64) float64 { return a },
	})

	Div = RegisterBinary(BinaryRule{
		Name: "div",
		Eval: func(a, b float64) float64 { return a / b },
		DA:   func(_, b, _ float64) float64 { return 1 / b },
		DB:   func(_, b, y float64) float64 { return -y / b },
	})
)

// Arithmetic against a scalar constant c carried on the node.
var (
	Neg = RegisterUnary(UnaryRule{
		Name:  "neg",
		Eval:  func(x, _ float64) float64 { return -x },
		Deriv: func(_, _, _ float64) float64 { return -1 },
	})

	// Shift is x + c.
	Shift = RegisterUnary(UnaryRule{
		Name:  "add_const",
		Eval:  func(x, c float64) float64 { return x + c },
		Deriv: one1,
	})

	// Scale is x * c.
	Scale = RegisterUnary(UnaryRule{
		Name:  "mul_const",
		Eval:  func(x, c float64) float64 { return x * c },
		Deriv: func(_, _, c float64) float64 { return c },
	})

	// DivConst is x / c.
	DivConst = RegisterUnary(UnaryRule{
		Name:  "div_const",
		Eval:  func(x, c float64) float64 { return x / c },
		Deriv: func(_, _, c float64) float64 { return 1 / c },
	})

	// ConstSub is c - x.
	ConstSub = RegisterUnary(UnaryRule{
		Name:  "const_sub",
		Eval:  func(x, c float64) float64 { return c - x },
		Deriv: func(_, _, _ float64) float64 { return -1 },
	})

	// ConstDiv is c / x.
	ConstDiv = RegisterUnary(UnaryRule{
		Name:  "const_div",
		Eval:  func(x, c float64) float64 { return c / x },
		Deriv: func(x, y, _ float64) float64 { return -y / x },
	})

	Square = RegisterUnary(UnaryRule{
		Name:  "square",
		Eval:  func(x, _ float64) float64 { return x * x },
		Deriv: func(x, _, _ float64) float64 { return 2 * x },
	})
)

// Powers.
//
//	pow(a, b):   d/da = b·a^(b-1), d/db = y·log(a)
//	pow(x, c):   d/dx = c·x^(c-1)
//	pow(c, x):   d/dx = y·log(c)
//
// pow(x, 0) has derivative 0 everywhere including x = 0, and the log(a) term
// is dropped when a = 0 and b > 0, where y is identically 0 near b.
var (
	Pow = RegisterBinary(BinaryRule{
		Name: "pow",
		Eval: math.Pow,
		DA:   func(a, b, _ float64) float64 { return powDeriv(a, b) },
		DB: func(a, b, y float64) float64 {
			if a == 0 && b > 0 {
				return 0
			}
			return y * math.Log(a)
		},
	})

	PowConst = RegisterUnary(UnaryRule{
		Name:  "pow_const",
		Eval:  math.Pow,
		Deriv: func(x, _, c float64) float64 { return powDeriv(x, c) },
	})

	ConstPow = RegisterUnary(UnaryRule{
		Name:  "const_pow",
		Eval:  func(x, c float64) float64 { return math.Pow(c, x) },
		Deriv: func(_, y, c float64) float64 { return y * math.Log(c) },
	})
)

func powDeriv(x, p float64) float64 {
	switch p {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 2 * x
	}
	return p * math.Pow(x, p-1)
}

// Two-argument functions with piecewise or geometric derivatives.
//
// fmin/fmax follow C semantics for NaN: a NaN operand is ignored. On ties the
// whole gradient goes to the first operand.
var (
	Fmax = RegisterBinary(BinaryRule{
		Name: "fmax",
		Eval: func(a, b float64) float64 {
			if math.IsNaN(a) {
				return b
			}
			if math.IsNaN(b) {
				return a
			}
			return math.Max(a, b)
		},
		DA: func(a, b, _ float64) float64 { return pickFirst(a, b, a >= b) },
		DB: func(a, b, _ float64) float64 { return 1 - pickFirst(a, b, a >= b) },
	})

	Fmin = RegisterBinary(BinaryRule{
		Name: "fmin",
		Eval: func(a, b float64) float64 {
			if math.IsNaN(a) {
				return b
			}
			if math.IsNaN(b) {
				return a
			}
			return math.Min(a, b)
		},
		DA: func(a, b, _ float64) float64 { return pickFirst(a, b, a <= b) },
		DB: func(a, b, _ float64) float64 { return 1 - pickFirst(a, b, a <= b) },
	})

	// Fdim is max(a-b, 0).
	Fdim = RegisterBinary(BinaryRule{
		Name: "fdim",
		Eval: func(a, b float64) float64 { return math.Dim(a, b) },
		DA: func(a, b, _ float64) float64 {
			if a > b {
				return 1
			}
			return 0
		},
		DB: func(a, b, _ float64) float64 {
			if a > b {
				return -1
			}
			return 0
		},
	})

	Hypot = RegisterBinary(BinaryRule{
		Name: "hypot",
		Eval: math.Hypot,
		DA:   func(a, _, y float64) float64 { return a / y },
		DB:   func(_, b, y float64) float64 { return b / y },
	})

	// Atan2 is atan2(a, b) with a the ordinate.
	Atan2 = RegisterBinary(BinaryRule{
		Name: "atan2",
		Eval: math.Atan2,
		DA:   func(a, b, _ float64) float64 { return b / (a*a + b*b) },
		DB:   func(a, b, _ float64) float64 { return -a / (a*a + b*b) },
	})

	// Fmod is the C remainder a - trunc(a/b)*b.
	Fmod = RegisterBinary(BinaryRule{
		Name: "fmod",
		Eval: math.Mod,
		DA:   one2,
		DB:   func(a, b, _ float64) float64 { return -math.Trunc(a / b) },
	})
)

// pickFirst returns 1 when the first operand wins. NaN operands lose.
func pickFirst(a, b float64, firstWins bool) float64 {
	switch {
	case math.IsNaN(a):
		return 0
	case math.IsNaN(b):
		return 1
	case firstWins:
		return 1
	}
	return 0
}

// Piecewise functions.
//
// abs has derivative sign(x) and 0 at x = 0. The rounding family is locally
// constant and carries zero gradient.
var (
	Abs = RegisterUnary(UnaryRule{
		Name: "abs",
		Eval: func(x, _ float64) float64 { return math.Abs(x) },
		Deriv: func(x, _, _ float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			case x == 0:
				return 0
			}
			return math.NaN()
		},
	})

	Floor = RegisterUnary(UnaryRule{Name: "floor", Eval: func(x, _ float64) float64 { return math.Floor(x) }, Deriv: zero1})
	Ceil  = RegisterUnary(UnaryRule{Name: "ceil", Eval: func(x, _ float64) float64 { return math.Ceil(x) }, Deriv: zero1})
	Round = RegisterUnary(UnaryRule{Name: "round", Eval: func(x, _ float64) float64 { return math.Round(x) }, Deriv: zero1})
	Trunc = RegisterUnary(UnaryRule{Name: "trunc", Eval: func(x, _ float64) float64 { return math.Trunc(x) }, Deriv: zero1})
)

func one1(_, _, _ float64) float64  { return 1 }
func one2(_, _, _ float64) float64  { return 1 }
func zero1(_, _, _ float64) float64 { return 0 }
