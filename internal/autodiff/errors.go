package autodiff

import (
	"errors"
	"fmt"
)

// Misuse of the tape is a programming error and panics with one of these
// values, wrapped with the offending detail. Recover and test with errors.Is.
var (
	ErrStaleVar     = errors.New("autodiff: variable used after its episode ended")
	ErrNotInnermost = errors.New("autodiff: episode is not the innermost active episode")
	ErrNoEpisode    = errors.New("autodiff: no active episode")
	ErrMixedStacks  = errors.New("autodiff: variables from different stacks")
	ErrMixedModes   = errors.New("autodiff: differentiable scalar is not a reverse-mode variable")
	ErrShape        = errors.New("autodiff: shape mismatch")
)

func panicf(err error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{err}, args...)...))
}
