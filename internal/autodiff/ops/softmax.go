package ops

import "math"

// Vector-to-vector hubs. dims = {n, 0, 0}.
//
// softmax:      y_i = exp(x_i - lse(x))
//
//	dL/dx_i = y_i · (g_i - Σ_j g_j·y_j)
//
// log_softmax:  y_i = x_i - lse(x)
//
//	dL/dx_i = g_i - softmax_i · Σ_j g_j
//
// cumulative_sum: y_i = Σ_{j<=i} x_j
//
//	dL/dx_i = Σ_{j>=i} g_j
var (
	Softmax = RegisterHub(HubRule{
		Name: "softmax",
		Forward: func(_ [3]int32, in, out []float64) {
			lse := LogSumExpValue(in)
			for i, x := range in {
				out[i] = math.Exp(x - lse)
			}
		},
		Backward: func(_ [3]int32, _, out, outAdj, inAdj []float64) {
			var dot float64
			for j, g := range outAdj {
				dot += g * out[j]
			}
			for i, y := range out {
				inAdj[i] = y * (outAdj[i] - dot)
			}
		},
	})

	LogSoftmax = RegisterHub(HubRule{
		Name: "log_softmax",
		Forward: func(_ [3]int32, in, out []float64) {
			lse := LogSumExpValue(in)
			for i, x := range in {
				out[i] = x - lse
			}
		},
		Backward: func(_ [3]int32, _, out, outAdj, inAdj []float64) {
			var total float64
			for _, g := range outAdj {
				total += g
			}
			for i, y := range out {
				inAdj[i] = outAdj[i] - math.Exp(y)*total
			}
		},
	})

	CumulativeSum = RegisterHub(HubRule{
		Name: "cumulative_sum",
		Forward: func(_ [3]int32, in, out []float64) {
			var acc float64
			for i, x := range in {
				acc += x
				out[i] = acc
			}
		},
		Backward: func(_ [3]int32, _, _, outAdj, inAdj []float64) {
			var acc float64
			for i := len(outAdj) - 1; i >= 0; i-- {
				acc += outAdj[i]
				inAdj[i] = acc
			}
		},
	})
)
