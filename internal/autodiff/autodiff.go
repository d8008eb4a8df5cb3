// Package autodiff implements reverse-mode automatic differentiation over a
// scalar expression tape.
//
// Architecture:
//   - Stack: the execution context. Owns one Tape and the arenas backing
//     operand lists and precomputed partials.
//   - Episode: a recording window. Episodes nest; ending one discards its
//     nodes and rewinds the arenas to where it began.
//   - Var: a value plus a reference to the node that produced it. Arithmetic
//     on Vars evaluates eagerly and appends one node per operation.
//   - Reverse sweep: walks the tape from the newest node back to the start of
//     the active episode, applying each node's chain rule (see package ops).
//
// Usage:
//
//	s := autodiff.NewStack()
//	ep := s.Begin()
//	x := ep.Var(3)
//	y := x.Mul(x).Add(x.Scale(2)) // y = x² + 2x = 15
//	g := ep.Grad(y, x)            // dy/dx = 2x + 2 = 8
//	ep.End()
//
// Nested episodes compute inner derivatives without disturbing the outer
// recording:
//
//	err := s.Nested(func(inner *autodiff.Episode) error {
//		u := inner.Var(x.Value())
//		_ = inner.Grad(u.Exp(), u)
//		return nil
//	})
//
// A Stack is single-threaded. Run independent episodes concurrently on
// separate Stacks (see package parallel).
package autodiff
