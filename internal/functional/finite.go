package functional

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/autodiff"
)

// DefaultStep is the finite-difference step used when a config leaves it zero.
const DefaultStep = 1e-6

// ErrGradientMismatch is wrapped by CheckError.
var ErrGradientMismatch = errors.New("gradient does not match finite differences")

// FiniteDiff returns the central finite-difference gradient of f at x.
// f is evaluated on constants only.
func FiniteDiff(f Func, x []float64, step float64) ([]float64, error) {
	if step <= 0 {
		step = DefaultStep
	}
	var firstErr error
	eval := func(p []float64) float64 {
		v, err := Value(f, p)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}

	grad := fd.Gradient(nil, eval, x, &fd.Settings{
		Formula: fd.Central,
		Step:    step,
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return grad, nil
}

// Hessian returns the symmetric Hessian of f at x by differencing
// reverse-mode gradients.
func Hessian(s *autodiff.Stack, f Func, x []float64, step float64) (*mat.Dense, error) {
	n := len(x)
	if n == 0 {
		return &mat.Dense{}, nil
	}
	if step <= 0 {
		step = DefaultStep
	}

	var firstErr error
	grad := func(y, p []float64) {
		_, g, err := Gradient(s, f, p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		copy(y, g)
	}

	h := mat.NewDense(n, n, nil)
	fd.Jacobian(h, grad, x, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    step,
	})
	if firstErr != nil {
		return nil, firstErr
	}

	sym := mat.NewDense(n, n, nil)
	sym.Add(h, h.T())
	sym.Scale(0.5, sym)
	return sym, nil
}

// CheckConfig controls Check.
type CheckConfig struct {
	Step float64 // Finite-difference step (default: DefaultStep)
	Tol  float64 // Allowed error relative to max(1, |fd|) (default: 1e-6)
}

// Mismatch is one coordinate that failed a gradient check.
type Mismatch struct {
	Index   int
	Reverse float64
	Finite  float64
}

// CheckError lists every coordinate whose reverse-mode gradient disagrees
// with finite differences.
type CheckError struct {
	Tol        float64
	Mismatches []Mismatch
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v (tol %g):", ErrGradientMismatch, e.Tol)
	for _, m := range e.Mismatches {
		fmt.Fprintf(&b, " [%d] reverse=%g finite=%g", m.Index, m.Reverse, m.Finite)
	}
	return b.String()
}

// Unwrap returns ErrGradientMismatch.
func (e *CheckError) Unwrap() error {
	return ErrGradientMismatch
}

// Check compares the reverse-mode gradient of f at x with central finite
// differences. It returns a *CheckError naming each failing coordinate.
func Check(s *autodiff.Stack, f Func, x []float64, cfg CheckConfig) error {
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-6
	}
	_, rev, err := Gradient(s, f, x)
	if err != nil {
		return err
	}
	fin, err := FiniteDiff(f, x, cfg.Step)
	if err != nil {
		return err
	}

	var bad []Mismatch
	for i := range rev {
		scale := math.Max(1, math.Abs(fin[i]))
		if !(math.Abs(rev[i]-fin[i]) <= cfg.Tol*scale) {
			bad = append(bad, Mismatch{Index: i, Reverse: rev[i], Finite: fin[i]})
		}
	}
	if len(bad) > 0 {
		return &CheckError{Tol: cfg.Tol, Mismatches: bad}
	}
	return nil
}
