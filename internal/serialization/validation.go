package serialization

import "fmt"

// Validation limits for resource protection.
const (
	MaxPayloadSize = 1 << 30    // 1GB - maximum CBOR payload
	MaxNodeCount   = 50_000_000 // Maximum nodes in a snapshot
	MaxKindNameLen = 256        // Maximum kind name length
)

// ValidateSnapshot checks the structural invariants of a snapshot:
// node IDs are consecutive from 0, every operand refers to an earlier node,
// n-ary nodes carry one partial per operand, and projections point at hubs.
func ValidateSnapshot(s TapeSnapshot) error {
	if len(s.Nodes) > MaxNodeCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyNodes, len(s.Nodes), MaxNodeCount)
	}

	for i, n := range s.Nodes {
		if n.ID != int32(i) {
			return &ValidationError{
				Type:    "id_order",
				Node:    n.ID,
				Operand: -1,
				Details: fmt.Sprintf("found at position %d", i),
			}
		}
		if n.Kind == "" || len(n.Kind) > MaxKindNameLen {
			return &ValidationError{
				Type:    "invalid_kind",
				Node:    n.ID,
				Operand: -1,
				Details: fmt.Sprintf("kind name of length %d", len(n.Kind)),
			}
		}
		if err := validateOperands(s.Nodes, n); err != nil {
			return err
		}
	}
	return nil
}

func validateOperands(nodes []NodeRecord, n NodeRecord) error {
	for _, op := range n.Operands {
		switch {
		case op == -1 && n.Class == "hub":
			continue
		case op < 0:
			return &ValidationError{
				Type:    "negative_operand",
				Node:    n.ID,
				Operand: op,
				Details: fmt.Sprintf("only hub inputs may be constant, node is %s", n.Class),
			}
		case op >= n.ID:
			// Operands must precede their consumer or the reverse sweep
			// would read adjoints that are not final yet.
			return &ValidationError{
				Type:    "forward_reference",
				Node:    n.ID,
				Operand: op,
				Details: "operand does not precede the node",
			}
		}
	}

	switch n.Class {
	case "nary":
		if len(n.Partials) != len(n.Operands) {
			return &ValidationError{
				Type:    "partials_mismatch",
				Node:    n.ID,
				Operand: -1,
				Details: fmt.Sprintf("%d operands, %d partials", len(n.Operands), len(n.Partials)),
			}
		}
	case "projection":
		if len(n.Operands) != 1 || nodes[n.Operands[0]].Class != "hub" {
			return &ValidationError{
				Type:    "projection_target",
				Node:    n.ID,
				Operand: -1,
				Details: "projection must reference exactly one hub",
			}
		}
	}
	return nil
}
