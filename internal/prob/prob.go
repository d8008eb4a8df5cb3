// Package prob provides log densities written once against scalar.Real, so
// the same code evaluates plain floats, records reverse-mode nodes or
// carries forward-mode tangents.
//
// Arguments are validated at entry and failures are returned as
// *DomainError or *SizeError. Nothing is recorded for a call that fails
// validation. Each density returns the sum over its observations; an empty
// observation vector gives 0.
package prob

import (
	"math"

	"github.com/born-ml/stanmath/internal/scalar"
)

var (
	logSqrtTwoPi = 0.5 * math.Log(2*math.Pi)
	logPi        = math.Log(math.Pi)
)

func zero[T scalar.Real[T]](like T) T {
	return like.Lift(0)
}

// NormalLPDF returns Σ log N(y_i | mu, sigma).
func NormalLPDF[T scalar.Real[T]](y []T, mu, sigma T) (T, error) {
	const fn = "normal_lpdf"
	if err := CheckNotNaNVec(fn, "random variable", y); err != nil {
		return zero(mu), err
	}
	if err := CheckFinite(fn, "location", mu); err != nil {
		return zero(mu), err
	}
	if err := CheckPositive(fn, "scale", sigma); err != nil {
		return zero(mu), err
	}
	if len(y) == 0 {
		return zero(mu), nil
	}

	inv := sigma.Lift(1).Div(sigma)
	sq := make([]T, len(y))
	for i, v := range y {
		sq[i] = v.Sub(mu).Mul(inv).Square()
	}
	n := float64(len(y))
	lp := scalar.Sum(sq).Scale(-0.5)
	lp = lp.Sub(sigma.Log().Scale(n))
	return lp.Shift(-n * logSqrtTwoPi), nil
}

// LogNormalLPDF returns Σ log LogNormal(y_i | mu, sigma).
func LogNormalLPDF[T scalar.Real[T]](y []T, mu, sigma T) (T, error) {
	const fn = "lognormal_lpdf"
	if err := CheckNonNegativeVec(fn, "random variable", y); err != nil {
		return zero(mu), err
	}
	if err := CheckFinite(fn, "location", mu); err != nil {
		return zero(mu), err
	}
	if err := CheckPositive(fn, "scale", sigma); err != nil {
		return zero(mu), err
	}
	if len(y) == 0 {
		return zero(mu), nil
	}
	for _, v := range y {
		if v.Value() == 0 {
			return mu.Lift(math.Inf(-1)), nil
		}
	}

	inv := sigma.Lift(1).Div(sigma)
	terms := make([]T, 0, 2*len(y))
	for _, v := range y {
		logy := v.Log()
		terms = append(terms, logy.Sub(mu).Mul(inv).Square().Scale(-0.5), logy.Neg())
	}
	n := float64(len(y))
	lp := scalar.Sum(terms).Sub(sigma.Log().Scale(n))
	return lp.Shift(-n * logSqrtTwoPi), nil
}

// CauchyLPDF returns Σ log Cauchy(y_i | mu, sigma).
func CauchyLPDF[T scalar.Real[T]](y []T, mu, sigma T) (T, error) {
	const fn = "cauchy_lpdf"
	if err := CheckNotNaNVec(fn, "random variable", y); err != nil {
		return zero(mu), err
	}
	if err := CheckFinite(fn, "location", mu); err != nil {
		return zero(mu), err
	}
	if err := CheckPositive(fn, "scale", sigma); err != nil {
		return zero(mu), err
	}
	if len(y) == 0 {
		return zero(mu), nil
	}

	inv := sigma.Lift(1).Div(sigma)
	terms := make([]T, len(y))
	for i, v := range y {
		terms[i] = v.Sub(mu).Mul(inv).Square().Log1p()
	}
	n := float64(len(y))
	lp := scalar.Sum(terms).Neg().Sub(sigma.Log().Scale(n))
	return lp.Shift(-n * logPi), nil
}

// ExponentialLPDF returns Σ log Exponential(y_i | beta) with rate beta.
func ExponentialLPDF[T scalar.Real[T]](y []T, beta T) (T, error) {
	const fn = "exponential_lpdf"
	if err := CheckNonNegativeVec(fn, "random variable", y); err != nil {
		return zero(beta), err
	}
	if err := CheckPositive(fn, "inverse scale", beta); err != nil {
		return zero(beta), err
	}
	if len(y) == 0 {
		return zero(beta), nil
	}

	n := float64(len(y))
	return beta.Log().Scale(n).Sub(beta.Mul(scalar.Sum(y))), nil
}

// GammaLPDF returns Σ log Gamma(y_i | alpha, beta) with shape alpha and
// rate beta.
func GammaLPDF[T scalar.Real[T]](y []T, alpha, beta T) (T, error) {
	const fn = "gamma_lpdf"
	if err := CheckPositiveVec(fn, "random variable", y); err != nil {
		return zero(alpha), err
	}
	if err := CheckPositive(fn, "shape", alpha); err != nil {
		return zero(alpha), err
	}
	if err := CheckPositive(fn, "inverse scale", beta); err != nil {
		return zero(alpha), err
	}
	if len(y) == 0 {
		return zero(alpha), nil
	}

	logs := make([]T, len(y))
	for i, v := range y {
		logs[i] = v.Log()
	}
	n := float64(len(y))
	lp := alpha.Mul(beta.Log()).Sub(alpha.Lgamma()).Scale(n)
	lp = lp.Add(alpha.Shift(-1).Mul(scalar.Sum(logs)))
	return lp.Sub(beta.Mul(scalar.Sum(y))), nil
}

// WeibullLPDF returns Σ log Weibull(y_i | alpha_i, sigma_i) with shape alpha
// and scale sigma. alpha and sigma either match y in length or have a single
// element shared by all observations. A negative observation has density 0.
func WeibullLPDF[T scalar.Real[T]](y, alpha, sigma []T) (T, error) {
	const fn = "weibull_lpdf"
	var like T
	if len(alpha) > 0 {
		like = alpha[0]
	}
	if err := CheckFiniteVec(fn, "random variable", y); err != nil {
		return zero(like), err
	}
	if err := CheckPositiveVec(fn, "shape", alpha); err != nil {
		return zero(like), err
	}
	if err := CheckPositiveVec(fn, "scale", sigma); err != nil {
		return zero(like), err
	}
	if len(y) == 0 {
		return zero(like), nil
	}
	if len(alpha) == 0 {
		return zero(like), &SizeError{Function: fn, Argument: "shape", Got: 0, Want: len(y)}
	}
	if len(sigma) == 0 {
		return zero(like), &SizeError{Function: fn, Argument: "scale", Got: 0, Want: len(y)}
	}
	if err := CheckConsistentSizes(fn, "shape", len(alpha), len(y)); err != nil {
		return zero(like), err
	}
	if err := CheckConsistentSizes(fn, "scale", len(sigma), len(y)); err != nil {
		return zero(like), err
	}
	for _, v := range y {
		if v.Value() < 0 {
			return like.Lift(math.Inf(-1)), nil
		}
	}

	// log α - log σ + (α - 1)(log y - log σ) - (y/σ)^α
	terms := make([]T, len(y))
	for i, v := range y {
		a, s := broadcast(alpha, i), broadcast(sigma, i)
		logSigma := s.Log()
		logRatio := v.Log().Sub(logSigma)
		terms[i] = a.Log().Sub(logSigma).Add(a.Shift(-1).Mul(logRatio)).Sub(a.Mul(logRatio).Exp())
	}
	return scalar.Sum(terms), nil
}

func broadcast[T any](xs []T, i int) T {
	if len(xs) == 1 {
		return xs[0]
	}
	return xs[i]
}

// BernoulliLogitLPMF returns Σ log Bernoulli(n_i | inv_logit(theta_i)).
// theta either matches n in length or has a single element shared by all
// observations.
func BernoulliLogitLPMF[T scalar.Real[T]](n []int, theta []T) (T, error) {
	const fn = "bernoulli_logit_lpmf"
	var like T
	if len(theta) > 0 {
		like = theta[0]
	}
	for i, v := range n {
		if v != 0 && v != 1 {
			return zero(like), &DomainError{Function: fn, Argument: "n", Index: i, Value: float64(v), Expected: "in {0, 1}"}
		}
	}
	if len(n) == 0 {
		return zero(like), nil
	}
	if len(theta) == 0 {
		return zero(like), &SizeError{Function: fn, Argument: "logit probability", Got: 0, Want: len(n)}
	}
	if err := CheckConsistentSizes(fn, "logit probability", len(theta), len(n)); err != nil {
		return zero(like), err
	}
	if err := CheckNotNaNVec(fn, "logit probability", theta); err != nil {
		return zero(like), err
	}

	// log inv_logit(t) = -log1p_exp(-t), log(1 - inv_logit(t)) = -log1p_exp(t)
	terms := make([]T, len(n))
	for i, v := range n {
		t := broadcast(theta, i)
		if v == 1 {
			t = t.Neg()
		}
		terms[i] = t.Log1pExp()
	}
	return scalar.Sum(terms).Neg(), nil
}
