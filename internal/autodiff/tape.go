package autodiff

import (
	"iter"
	"time"

	"github.com/born-ml/stanmath/internal/arena"
	"github.com/born-ml/stanmath/internal/autodiff/ops"
	"github.com/born-ml/stanmath/internal/serialization"
)

// Tape records nodes during the forward pass in creation order.
//
// Nodes are only ever appended. The sole removal is truncation back to an
// episode start when that episode ends. A tape belongs to one Stack and is
// never shared across goroutines.
type Tape struct {
	nodes *arena.Seq[Node]
}

func newTape(cfg arena.Config) *Tape {
	return &Tape{nodes: arena.NewSeq[Node](cfg)}
}

// push appends n and returns its ID.
func (t *Tape) push(n Node) NodeID {
	return NodeID(t.nodes.Push(n))
}

// truncate drops every node from id onwards.
func (t *Tape) truncate(id NodeID) {
	t.nodes.Truncate(int(id))
}

// Len returns the number of recorded nodes.
func (t *Tape) Len() int {
	return t.nodes.Len()
}

// At returns the node with the given ID. The pointer stays valid until the
// episode that created the node ends.
func (t *Tape) At(id NodeID) *Node {
	return t.nodes.At(int(id))
}

// All iterates over the nodes in creation order.
func (t *Tape) All() iter.Seq2[NodeID, *Node] {
	return func(yield func(NodeID, *Node) bool) {
		for i := range t.nodes.Len() {
			if !yield(NodeID(i), t.nodes.At(i)) {
				return
			}
		}
	}
}

// Backward iterates over the nodes in reverse creation order.
func (t *Tape) Backward() iter.Seq2[NodeID, *Node] {
	return func(yield func(NodeID, *Node) bool) {
		for i := t.nodes.Len() - 1; i >= 0; i-- {
			if !yield(NodeID(i), t.nodes.At(i)) {
				return
			}
		}
	}
}

// Stats reports the memory held by the node sequence.
func (t *Tape) Stats() arena.Stats {
	return t.nodes.Stats()
}

// Snapshot exports the tape as plain data.
//
// Kinds are recorded by name since kind numbers depend on registration order.
func (t *Tape) Snapshot(episodes int) serialization.TapeSnapshot {
	snap := serialization.TapeSnapshot{
		Created:  time.Now().UTC(),
		Episodes: episodes,
		Nodes:    make([]serialization.NodeRecord, 0, t.Len()),
	}
	for id, n := range t.All() {
		rec := serialization.NodeRecord{
			ID:      int32(id),
			Kind:    n.Name(),
			Class:   ops.Lookup(n.kind).Class.String(),
			Value:   n.val,
			Adjoint: n.adj,
		}
		for _, op := range n.Operands() {
			rec.Operands = append(rec.Operands, int32(op))
		}
		switch ops.Lookup(n.kind).Class {
		case ops.ClassUnary:
			rec.Const = n.aux
		case ops.ClassNary:
			rec.Partials = append([]float64(nil), n.coef...)
		case ops.ClassHub:
			rec.Dims = []int32{n.dims[0], n.dims[1], n.dims[2]}
		case ops.ClassProjection:
			rec.Dims = []int32{n.dims[0]}
		}
		snap.Nodes = append(snap.Nodes, rec)
	}
	return snap
}
