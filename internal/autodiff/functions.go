package autodiff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
)

// stackOf returns the stack shared by the non-constant entries of parts,
// or nil when every entry is constant.
func stackOf(parts ...[]Var) *Stack {
	var s *Stack
	for _, xs := range parts {
		for _, x := range xs {
			if x.s == nil {
				continue
			}
			if s == nil {
				s = x.s
			} else if x.s != s {
				panicf(ErrMixedStacks, "%v", x)
			}
			s.live(x)
		}
	}
	return s
}

func count(parts [][]Var) int {
	n := 0
	for _, xs := range parts {
		n += len(xs)
	}
	return n
}

// gather writes the values of parts into dst.
func gather(dst []float64, parts [][]Var) {
	i := 0
	for _, xs := range parts {
		for _, x := range xs {
			dst[i] = x.val
			i++
		}
	}
}

// nary records a reduction over the concatenation of parts.
func nary(k ops.Kind, c float64, parts ...[]Var) Var {
	n := count(parts)
	s := stackOf(parts...)
	if s == nil {
		vals := make([]float64, n)
		gather(vals, parts)
		return Const(ops.Lookup(k).Nary.Eval(vals, c))
	}

	r := s.rule(k).Nary
	buf := s.scratchN(2 * n)
	vals, partials := buf[:n], buf[n:]
	gather(vals, parts)
	y := r.Eval(vals, c)
	clear(partials)
	r.Partials(vals, y, c, partials)
	return s.record(k, y, c, partials, parts...)
}

// record pushes an n-ary node with the given partials. Constant entries of
// parts are dropped from the operand list together with their partials.
func (s *Stack) record(k ops.Kind, y, c float64, partials []float64, parts ...[]Var) Var {
	m := 0
	for _, xs := range parts {
		for _, x := range xs {
			if x.s != nil {
				m++
			}
		}
	}
	args := s.ids.Alloc(m)
	coef := s.floats.Alloc(m)
	i, j := 0, 0
	for _, xs := range parts {
		for _, x := range xs {
			if x.s != nil {
				args[j] = x.id
				coef[j] = partials[i]
				j++
			}
			i++
		}
	}
	return s.push(Node{kind: k, val: y, aux: c, a: NoNode, b: NoNode, args: args, coef: coef})
}

// Sum returns the sum of xs. The sum of nothing is 0.
func Sum(xs []Var) Var {
	if len(xs) == 0 {
		return Const(0)
	}
	return nary(ops.Sum, 0, xs)
}

// Mean returns the arithmetic mean of xs. It panics on empty input.
func Mean(xs []Var) Var {
	if len(xs) == 0 {
		panicf(ErrShape, "mean of empty vector")
	}
	return nary(ops.Mean, 0, xs)
}

// Variance returns the sample variance of xs, 0 for fewer than two entries.
func Variance(xs []Var) Var {
	if len(xs) == 0 {
		panicf(ErrShape, "variance of empty vector")
	}
	return nary(ops.Variance, 0, xs)
}

// DotSelf returns Σ x_i².
func DotSelf(xs []Var) Var {
	return nary(ops.DotSelf, 0, xs)
}

// LogSumExp returns log Σ exp(x_i) without overflow. Empty input is -Inf.
func LogSumExp(xs []Var) Var {
	if len(xs) == 0 {
		return Const(ops.LogSumExpValue(nil))
	}
	return nary(ops.LogSumExp, 0, xs)
}

// Log1pExpAll returns log(1 + exp(x_i)) for every entry, one node each.
func Log1pExpAll(xs []Var) []Var {
	out := make([]Var, len(xs))
	for i, x := range xs {
		out[i] = x.Log1pExp()
	}
	return out
}

// Dot returns Σ x_i·y_i.
func Dot(x, y []Var) Var {
	if len(x) != len(y) {
		panicf(ErrShape, "dot of %d and %d entries", len(x), len(y))
	}
	return nary(ops.Dot, 0, x, y)
}

// SquaredDistance returns Σ (x_i - y_i)².
func SquaredDistance(x, y []Var) Var {
	if len(x) != len(y) {
		panicf(ErrShape, "squared distance of %d and %d entries", len(x), len(y))
	}
	return nary(ops.SquaredDistance, 0, x, y)
}

// DotData returns Σ x_i·d_i for constant data d.
func DotData(x []Var, d []float64) Var {
	if len(x) != len(d) {
		panicf(ErrShape, "dot of %d variables and %d values", len(x), len(d))
	}
	var y float64
	for i, v := range x {
		y += v.val * d[i]
	}
	s := stackOf(x)
	if s == nil {
		return Const(y)
	}
	return s.record(ops.DotData, y, 0, d, x)
}

// PrecomputedGradients records a value whose partial derivatives with
// respect to operands were computed elsewhere, for example by a solver.
func PrecomputedGradients(value float64, operands []Var, gradients []float64) Var {
	if len(operands) != len(gradients) {
		panicf(ErrShape, "%d operands and %d gradients", len(operands), len(gradients))
	}
	s := stackOf(operands)
	if s == nil {
		return Const(value)
	}
	return s.record(ops.Precomputed, value, 0, gradients, operands)
}

// hub records a container-producing op and returns its nOut projections.
func hub(k ops.Kind, dims [3]int32, nOut int, parts ...[]Var) []Var {
	nIn := count(parts)
	s := stackOf(parts...)
	if s == nil {
		in := make([]float64, nIn)
		gather(in, parts)
		out := make([]float64, nOut)
		ops.Lookup(k).Hub.Forward(dims, in, out)
		return Consts(out)
	}

	args := s.ids.Alloc(nIn)
	coef := s.floats.Alloc(nIn + 2*nOut)
	i := 0
	for _, xs := range parts {
		for _, x := range xs {
			args[i] = x.ID()
			coef[i] = x.val
			i++
		}
	}
	out := coef[nIn : nIn+nOut]
	s.rule(k).Hub.Forward(dims, coef[:nIn], out)
	h := s.push(Node{kind: k, a: NoNode, b: NoNode, nout: int32(nOut), dims: dims, args: args, coef: coef})

	res := make([]Var, nOut)
	for j := range res {
		res[j] = s.push(Node{kind: ops.Projection, val: out[j], a: h.id, b: NoNode, dims: [3]int32{int32(j)}})
	}
	return res
}

// Softmax returns exp(x_i) / Σ exp(x_j).
func Softmax(xs []Var) []Var {
	if len(xs) == 0 {
		return nil
	}
	return hub(ops.Softmax, [3]int32{int32(len(xs))}, len(xs), xs)
}

// LogSoftmax returns x_i - log Σ exp(x_j).
func LogSoftmax(xs []Var) []Var {
	if len(xs) == 0 {
		return nil
	}
	return hub(ops.LogSoftmax, [3]int32{int32(len(xs))}, len(xs), xs)
}

// CumulativeSum returns the running sums of xs.
func CumulativeSum(xs []Var) []Var {
	if len(xs) == 0 {
		return nil
	}
	return hub(ops.CumulativeSum, [3]int32{int32(len(xs))}, len(xs), xs)
}

// Matrix is a dense row-major matrix of Vars.
type Matrix struct {
	rows, cols int
	data       []Var
}

// NewMatrix wraps data as an r×c matrix.
func NewMatrix(r, c int, data []Var) Matrix {
	if len(data) != r*c {
		panicf(ErrShape, "%d entries for a %dx%d matrix", len(data), r, c)
	}
	return Matrix{rows: r, cols: c, data: data}
}

// ConstMatrix converts m into a matrix of constants.
func ConstMatrix(m mat.Matrix) Matrix {
	r, c := m.Dims()
	data := make([]Var, 0, r*c)
	for i := range r {
		for j := range c {
			data = append(data, Const(m.At(i, j)))
		}
	}
	return Matrix{rows: r, cols: c, data: data}
}

// Matrix records every entry of m as an independent variable.
func (e *Episode) Matrix(m mat.Matrix) Matrix {
	r, c := m.Dims()
	vals := make([]float64, 0, r*c)
	for i := range r {
		for j := range c {
			vals = append(vals, m.At(i, j))
		}
	}
	return Matrix{rows: r, cols: c, data: e.Vars(vals)}
}

// Dims returns the number of rows and columns.
func (m Matrix) Dims() (r, c int) { return m.rows, m.cols }

// At returns entry (i, j).
func (m Matrix) At(i, j int) Var { return m.data[i*m.cols+j] }

// Data returns the row-major entries. The slice is shared.
func (m Matrix) Data() []Var { return m.data }

// Values returns the forward values as a dense matrix.
func (m Matrix) Values() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.rows, m.cols, Values(m.data))
}

// MatMul returns the matrix product a·b.
func MatMul(a, b Matrix) Matrix {
	if a.cols != b.rows {
		panicf(ErrShape, "matmul %dx%d by %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	m, k, n := a.rows, a.cols, b.cols
	switch {
	case m*n == 0:
		return Matrix{rows: m, cols: n}
	case k == 0:
		return Matrix{rows: m, cols: n, data: make([]Var, m*n)}
	}
	out := hub(ops.MatMul, [3]int32{int32(m), int32(k), int32(n)}, m*n, a.data, b.data)
	return Matrix{rows: m, cols: n, data: out}
}

// MultiplyData returns a·x for a constant matrix a.
func MultiplyData(a mat.Matrix, x []Var) []Var {
	r, c := a.Dims()
	if c != len(x) {
		panicf(ErrShape, "multiply %dx%d by vector of %d", r, c, len(x))
	}
	return MatMul(ConstMatrix(a), NewMatrix(len(x), 1, x)).Data()
}
