package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "STAD"
	FormatVersion   = 1
	ChecksumSize    = 32 // SHA-256
	FixedHeaderSize = 4 + 4 + 8 + ChecksumSize
)

// TapeSnapshot is a plain-data copy of a tape.
type TapeSnapshot struct {
	Created  time.Time    `cbor:"created"`
	Episodes int          `cbor:"episodes"` // Open episodes when the snapshot was taken.
	Nodes    []NodeRecord `cbor:"nodes"`
}

// NodeRecord describes one tape node.
type NodeRecord struct {
	ID       int32     `cbor:"id"`
	Kind     string    `cbor:"kind"`
	Class    string    `cbor:"class"`
	Value    float64   `cbor:"value"`
	Adjoint  float64   `cbor:"adjoint"`
	Const    float64   `cbor:"const,omitempty"`
	Operands []int32   `cbor:"operands,omitempty"` // -1 marks a constant hub input.
	Partials []float64 `cbor:"partials,omitempty"`
	Dims     []int32   `cbor:"dims,omitempty"`
}

// Kinds counts nodes per kind name.
func (s TapeSnapshot) Kinds() map[string]int {
	out := make(map[string]int)
	for _, n := range s.Nodes {
		out[n.Kind]++
	}
	return out
}

// Edges returns the total number of operand references.
func (s TapeSnapshot) Edges() int {
	var e int
	for _, n := range s.Nodes {
		e += len(n.Operands)
	}
	return e
}
