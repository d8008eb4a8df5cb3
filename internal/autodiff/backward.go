package autodiff

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/stanmath/internal/autodiff/ops"
)

// Gradient runs one reverse sweep over the episode and returns the adjoints
// of wrt.
//
// Algorithm:
//  1. Zero the adjoints of the episode's nodes; save and zero the adjoints
//     of enclosing-episode nodes the sweep will write to
//  2. Seed each output's adjoint with seeds[i] (1 when seeds is nil)
//  3. Walk the episode's nodes in reverse creation order, applying each
//     node's chain rule to its operands
//  4. Read the adjoints of wrt
//
// Nodes of enclosing episodes are treated as inputs: their adjoints receive
// contributions but their own chain rules do not run. Their previous
// adjoints are restored when the episode ends or sweeps again, so a nested
// sweep never disturbs gradients an enclosing episode already computed.
// Constants in wrt get 0. The adjoints stay readable through Var.Adj until
// the next sweep.
func (e *Episode) Gradient(outputs []Var, seeds []float64, wrt []Var) []float64 {
	e.requireTop()
	if seeds != nil && len(seeds) != len(outputs) {
		panicf(ErrShape, "%d outputs and %d seeds", len(outputs), len(seeds))
	}
	s := e.s
	s.backward(e.depth, outputs, seeds)

	grads := make([]float64, len(wrt))
	for i, x := range wrt {
		if x.s == nil {
			continue
		}
		s.own(x)
		grads[i] = s.tape.At(x.id).adj
	}
	return grads
}

// Grad returns dy/dx for each x in wrt.
func (e *Episode) Grad(y Var, wrt ...Var) []float64 {
	return e.Gradient([]Var{y}, nil, wrt)
}

// Backward sweeps from y with seed 1. Read the results with Var.Adj.
func (e *Episode) Backward(y Var) {
	e.requireTop()
	e.s.backward(e.depth, []Var{y}, nil)
}

// Jacobian returns the len(ys)×len(xs) matrix of dy_i/dx_j, one sweep per row.
func (e *Episode) Jacobian(ys, xs []Var) *mat.Dense {
	if len(ys) == 0 || len(xs) == 0 {
		return &mat.Dense{}
	}
	jac := mat.NewDense(len(ys), len(xs), nil)
	out := make([]Var, 1)
	for i, y := range ys {
		out[0] = y
		jac.SetRow(i, e.Gradient(out, nil, xs))
	}
	return jac
}

// ZeroAdjoints clears the adjoints of the episode's nodes and restores those
// of enclosing-episode nodes its sweeps wrote to.
func (e *Episode) ZeroAdjoints() {
	e.requireTop()
	e.s.restoreAdjoints(e.s.frames[e.depth].saved)
	e.s.zeroAdjoints(e.s.frames[e.depth].start)
}

// own panics unless v is a live variable of s.
func (s *Stack) own(v Var) {
	if v.s != s {
		panicf(ErrMixedStacks, "%v", v)
	}
	s.live(v)
}

func (s *Stack) backward(depth int, outputs []Var, seeds []float64) {
	from := s.frames[depth].start
	s.restoreAdjoints(s.frames[depth].saved)
	s.zeroAdjoints(from)
	s.isolate(from, outputs)
	for i, y := range outputs {
		if y.s == nil {
			continue
		}
		s.own(y)
		seed := 1.0
		if seeds != nil {
			seed = seeds[i]
		}
		s.tape.At(y.id).adj += seed
	}

	var start time.Time
	if s.metrics != nil {
		start = time.Now()
	}
	for id := NodeID(s.tape.Len()) - 1; id >= from; id-- {
		s.chain(s.tape.At(id))
	}
	s.sweeps++
	if s.metrics != nil {
		s.metrics.ObserveSweep(time.Since(start))
	}
}

// zeroAdjoints clears the adjoints of the nodes from id on.
func (s *Stack) zeroAdjoints(from NodeID) {
	for id := from; id < NodeID(s.tape.Len()); id++ {
		n := s.tape.At(id)
		n.adj = 0
		if n.nout > 0 {
			_, _, outAdj := n.hubSegments()
			clear(outAdj)
		}
	}
}

// savedAdj is the adjoint an enclosing-episode node held before a nested
// sweep wrote to it.
type savedAdj struct {
	id  NodeID
	adj float64
}

// isolate saves and zeroes every adjoint below from that a sweep over the
// nodes from id on, seeded at outputs, can write to. Projections always sit
// in the episode of their hub, so only node adjoints cross the boundary.
// Duplicates are harmless because restoreAdjoints replays the log in reverse.
func (s *Stack) isolate(from NodeID, outputs []Var) {
	for _, y := range outputs {
		if y.s != nil && y.id < from {
			s.saveAdj(y.id)
		}
	}
	for id := from; id < NodeID(s.tape.Len()); id++ {
		for _, op := range s.tape.At(id).Operands() {
			if op != NoNode && op < from {
				s.saveAdj(op)
			}
		}
	}
}

func (s *Stack) saveAdj(id NodeID) {
	n := s.tape.At(id)
	s.saved = append(s.saved, savedAdj{id: id, adj: n.adj})
	n.adj = 0
}

// restoreAdjoints undoes the saves logged since mark, newest first.
func (s *Stack) restoreAdjoints(mark int) {
	for i := len(s.saved) - 1; i >= mark; i-- {
		s.tape.At(s.saved[i].id).adj = s.saved[i].adj
	}
	s.saved = s.saved[:mark]
}

// chain propagates n's adjoint to its operands.
func (s *Stack) chain(n *Node) {
	r := s.rule(n.kind)
	switch r.Class {
	case ops.ClassLeaf:
	case ops.ClassUnary:
		x := s.tape.At(n.a)
		x.adj += n.adj * r.Unary.Deriv(x.val, n.val, n.aux)
	case ops.ClassBinary:
		a, b := s.tape.At(n.a), s.tape.At(n.b)
		da := r.Binary.DA(a.val, b.val, n.val)
		db := r.Binary.DB(a.val, b.val, n.val)
		a.adj += n.adj * da
		b.adj += n.adj * db
	case ops.ClassNary:
		for i, id := range n.args {
			s.tape.At(id).adj += n.adj * n.coef[i]
		}
	case ops.ClassProjection:
		_, _, outAdj := s.tape.At(n.a).hubSegments()
		outAdj[n.dims[0]] += n.adj
	case ops.ClassHub:
		in, out, outAdj := n.hubSegments()
		inAdj := s.scratchN(len(in))
		clear(inAdj)
		r.Hub.Backward(n.dims, in, out, outAdj, inAdj)
		for i, id := range n.args {
			if id != NoNode {
				s.tape.At(id).adj += inAdj[i]
			}
		}
	}
}
