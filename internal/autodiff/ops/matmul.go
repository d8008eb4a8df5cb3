package ops

import "gonum.org/v1/gonum/mat"

// MatMul is C = A @ B with A [m,k] and B [k,n], both row-major.
//
// dims = {m, k, n}; in = A ++ B; out = C.
//
// Backward pass:
//   - dL/dA = dL/dC @ B^T
//   - dL/dB = A^T @ dL/dC
//
// Constant entries of A or B (data matrices) travel in `in` like any other
// value; the tape drops their adjoints when scattering.
var MatMul = RegisterHub(HubRule{
	Name:     "matmul",
	Forward:  matmulForward,
	Backward: matmulBackward,
})

func matmulViews(dims [3]int32, in []float64) (a, b *mat.Dense) {
	m, k, n := int(dims[0]), int(dims[1]), int(dims[2])
	a = mat.NewDense(m, k, in[:m*k])
	b = mat.NewDense(k, n, in[m*k:m*k+k*n])
	return a, b
}

func matmulForward(dims [3]int32, in, out []float64) {
	a, b := matmulViews(dims, in)
	c := mat.NewDense(int(dims[0]), int(dims[2]), out)
	c.Mul(a, b)
}

func matmulBackward(dims [3]int32, in, _, outAdj, inAdj []float64) {
	m, k, n := int(dims[0]), int(dims[1]), int(dims[2])
	a, b := matmulViews(dims, in)
	g := mat.NewDense(m, n, outAdj)

	da := mat.NewDense(m, k, inAdj[:m*k])
	da.Mul(g, b.T())

	db := mat.NewDense(k, n, inAdj[m*k:m*k+k*n])
	db.Mul(a.T(), g)
}
