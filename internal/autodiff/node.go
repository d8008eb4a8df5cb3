package autodiff

import "github.com/born-ml/stanmath/internal/autodiff/ops"

// NodeID is the position of a node on the tape. Operands always have a
// smaller ID than the node that consumes them, so reverse ID order is a
// valid reverse topological order.
type NodeID int32

// NoNode marks a constant operand slot of an n-ary or hub node.
const NoNode NodeID = -1

// Node is one entry of the tape.
//
// The layout is shared by every class:
//   - unary: a is the operand, aux the scalar constant
//   - binary: a and b are the operands
//   - nary: args are the operands, coef the partials fixed at construction
//   - hub: args are the inputs (NoNode for constants), coef holds
//     [inputs | outputs | output adjoints], dims the shape parameters
//   - projection: a is the hub, dims[0] the output index
type Node struct {
	val  float64
	adj  float64
	aux  float64
	kind ops.Kind
	nout int32
	a, b NodeID
	dims [3]int32
	args []NodeID
	coef []float64
}

// Value returns the forward value.
func (n *Node) Value() float64 { return n.val }

// Adjoint returns the accumulated adjoint.
func (n *Node) Adjoint() float64 { return n.adj }

// Kind returns the registered operation kind.
func (n *Node) Kind() ops.Kind { return n.kind }

// Name returns the registered name of the node's kind.
func (n *Node) Name() string { return ops.Name(n.kind) }

// Const returns the scalar constant of a unary node.
func (n *Node) Const() float64 { return n.aux }

// Operands returns the IDs this node reads, in order. Constant hub inputs
// are reported as NoNode.
func (n *Node) Operands() []NodeID {
	switch {
	case n.args != nil:
		return n.args
	case n.a == NoNode:
		return nil
	case n.b == NoNode:
		return []NodeID{n.a}
	}
	return []NodeID{n.a, n.b}
}

// hubSegments returns the input, output and output-adjoint segments of a hub.
func (n *Node) hubSegments() (in, out, outAdj []float64) {
	nIn := len(n.args)
	nOut := int(n.nout)
	return n.coef[:nIn], n.coef[nIn : nIn+nOut], n.coef[nIn+nOut : nIn+2*nOut]
}
