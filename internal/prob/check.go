package prob

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors. Every argument failure wraps one of them.
var (
	ErrDomain = errors.New("prob: argument outside its domain")
	ErrSize   = errors.New("prob: inconsistent argument sizes")
)

// DomainError reports an argument value outside the set a density accepts.
type DomainError struct {
	Function string
	Argument string
	Index    int // Element index, or -1 for a scalar argument
	Value    float64
	Expected string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	arg := e.Argument
	if e.Index >= 0 {
		arg = fmt.Sprintf("%s[%d]", e.Argument, e.Index)
	}
	return fmt.Sprintf("%s: %s is %g, but must be %s", e.Function, arg, e.Value, e.Expected)
}

// Unwrap returns ErrDomain.
func (e *DomainError) Unwrap() error { return ErrDomain }

// SizeError reports a vector argument whose length disagrees with another.
type SizeError struct {
	Function string
	Argument string
	Got      int
	Want     int
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %s has size %d, expected %d", e.Function, e.Argument, e.Got, e.Want)
}

// Unwrap returns ErrSize.
func (e *SizeError) Unwrap() error { return ErrSize }

// valued is anything with a primitive value. Every scalar mode qualifies.
type valued interface {
	Value() float64
}

// check validates xs. Failures in a vector argument keep their element
// index even when the vector has a single entry.
func check[T valued](function, arg string, xs []T, vector bool, expected string, ok func(float64) bool) error {
	for i, x := range xs {
		if v := x.Value(); !ok(v) {
			idx := -1
			if vector {
				idx = i
			}
			return &DomainError{Function: function, Argument: arg, Index: idx, Value: v, Expected: expected}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
func notNaN(v float64) bool { return !math.IsNaN(v) }

// CheckFinite requires the scalar x to be finite.
func CheckFinite[T valued](function, arg string, x T) error {
	return check(function, arg, []T{x}, false, "finite", finite)
}

// CheckFiniteVec requires every entry of xs to be finite.
func CheckFiniteVec[T valued](function, arg string, xs []T) error {
	return check(function, arg, xs, true, "finite", finite)
}

// CheckNotNaN requires the scalar x to be a number.
func CheckNotNaN[T valued](function, arg string, x T) error {
	return check(function, arg, []T{x}, false, "not nan", notNaN)
}

// CheckNotNaNVec requires every entry of xs to be a number.
func CheckNotNaNVec[T valued](function, arg string, xs []T) error {
	return check(function, arg, xs, true, "not nan", notNaN)
}

// CheckPositive requires the scalar x to be positive and finite.
func CheckPositive[T valued](function, arg string, x T) error {
	return check(function, arg, []T{x}, false, "positive finite", positive)
}

// CheckPositiveVec requires every entry of xs to be positive and finite.
func CheckPositiveVec[T valued](function, arg string, xs []T) error {
	return check(function, arg, xs, true, "positive finite", positive)
}

// CheckNonNegative requires the scalar x to be non-negative and finite.
func CheckNonNegative[T valued](function, arg string, x T) error {
	return check(function, arg, []T{x}, false, "non-negative finite", nonNegative)
}

// CheckNonNegativeVec requires every entry of xs to be non-negative and finite.
func CheckNonNegativeVec[T valued](function, arg string, xs []T) error {
	return check(function, arg, xs, true, "non-negative finite", nonNegative)
}

// CheckConsistentSizes requires got to equal want, or to be 1 when the
// argument broadcasts.
func CheckConsistentSizes(function, arg string, got, want int) error {
	if got == want || got == 1 {
		return nil
	}
	return &SizeError{Function: function, Argument: arg, Got: got, Want: want}
}
