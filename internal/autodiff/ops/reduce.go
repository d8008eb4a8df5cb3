package ops

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Reductions. Partials are fixed at construction, so the reverse sweep is a
// scaled scatter over the operands.
//
//	sum:        d/dv_i = 1
//	mean:       d/dv_i = 1/n
//	dot_self:   d/dv_i = 2·v_i
//	log_sum_exp: d/dv_i = exp(v_i - y)
//	variance:   sample variance, d/dv_i = 2(v_i - mean)/(n-1)
//	dot:        operands [x..., y...], d/dx_i = y_i, d/dy_i = x_i
//	squared_distance: operands [x..., y...], d/dx_i = 2(x_i-y_i) = -d/dy_i
var (
	Sum = RegisterNary(NaryRule{
		Name: "sum",
		Eval: func(v []float64, _ float64) float64 { return floats.Sum(v) },
		Partials: func(_ []float64, _, _ float64, dst []float64) {
			for i := range dst {
				dst[i] = 1
			}
		},
	})

	Mean = RegisterNary(NaryRule{
		Name: "mean",
		Eval: func(v []float64, _ float64) float64 { return floats.Sum(v) / float64(len(v)) },
		Partials: func(v []float64, _, _ float64, dst []float64) {
			w := 1 / float64(len(v))
			for i := range dst {
				dst[i] = w
			}
		},
	})

	DotSelf = RegisterNary(NaryRule{
		Name: "dot_self",
		Eval: func(v []float64, _ float64) float64 { return floats.Dot(v, v) },
		Partials: func(v []float64, _, _ float64, dst []float64) {
			for i, x := range v {
				dst[i] = 2 * x
			}
		},
	})

	LogSumExp = RegisterNary(NaryRule{
		Name: "log_sum_exp",
		Eval: func(v []float64, _ float64) float64 { return LogSumExpValue(v) },
		Partials: func(v []float64, y, _ float64, dst []float64) {
			if math.IsInf(y, 0) {
				clear(dst)
				return
			}
			for i, x := range v {
				dst[i] = math.Exp(x - y)
			}
		},
	})

	Variance = RegisterNary(NaryRule{
		Name: "variance",
		Eval: func(v []float64, _ float64) float64 {
			if len(v) < 2 {
				return 0
			}
			m := floats.Sum(v) / float64(len(v))
			var ss float64
			for _, x := range v {
				ss += (x - m) * (x - m)
			}
			return ss / float64(len(v)-1)
		},
		Partials: func(v []float64, _, _ float64, dst []float64) {
			if len(v) < 2 {
				clear(dst)
				return
			}
			m := floats.Sum(v) / float64(len(v))
			w := 2 / float64(len(v)-1)
			for i, x := range v {
				dst[i] = w * (x - m)
			}
		},
	})

	Dot = RegisterNary(NaryRule{
		Name: "dot",
		Eval: func(v []float64, _ float64) float64 {
			n := len(v) / 2
			return floats.Dot(v[:n], v[n:])
		},
		Partials: func(v []float64, _, _ float64, dst []float64) {
			n := len(v) / 2
			copy(dst[:n], v[n:])
			copy(dst[n:], v[:n])
		},
	})

	SquaredDistance = RegisterNary(NaryRule{
		Name: "squared_distance",
		Eval: func(v []float64, _ float64) float64 {
			n := len(v) / 2
			d := floats.Distance(v[:n], v[n:], 2)
			return d * d
		},
		Partials: func(v []float64, _, _ float64, dst []float64) {
			n := len(v) / 2
			for i := range n {
				d := 2 * (v[i] - v[n+i])
				dst[i] = d
				dst[n+i] = -d
			}
		},
	})
)

// Caller-built n-ary kinds: the builder supplies value and partials.
var (
	// DotData is a dot product of operands with a constant vector.
	DotData = RegisterNary(NaryRule{Name: "dot_data"})

	// Precomputed holds partials computed outside the tape, for example by
	// a solver's sensitivity equations or a nested episode.
	Precomputed = RegisterNary(NaryRule{Name: "precomputed"})
)

// LogSumExpValue computes log(Σ exp(v_i)) shifted by the maximum.
// An empty input yields -Inf.
func LogSumExpValue(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	m := floats.Max(v)
	if math.IsInf(m, 0) {
		return m
	}
	return floats.LogSumExp(v)
}
