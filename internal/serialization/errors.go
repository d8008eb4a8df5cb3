package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrPayloadTooLarge    = errors.New("payload exceeds maximum size")
	ErrTooManyNodes       = errors.New("too many nodes in snapshot")
	ErrShortBuffer        = errors.New("not enough values to deserialize")
	ErrTrailingValues     = errors.New("values left after deserializing")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "forward_reference", "id_order")
	Node    int32  // Node involved
	Operand int32  // Operand involved, -1 when not applicable
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Operand >= 0 {
		return fmt.Sprintf("%s: node %d operand %d: %s", e.Type, e.Node, e.Operand, e.Details)
	}
	return fmt.Sprintf("%s: node %d: %s", e.Type, e.Node, e.Details)
}
