package serialization

import (
	"crypto/sha256"
	"fmt"
)

// ComputeChecksum computes the SHA-256 checksum of a payload.
func ComputeChecksum(payload []byte) [ChecksumSize]byte {
	return sha256.Sum256(payload)
}

// ValidateChecksum recomputes the checksum of payload and compares it with
// the stored one. Returns ErrChecksumMismatch if they differ.
func ValidateChecksum(payload []byte, stored [ChecksumSize]byte) error {
	if got := ComputeChecksum(payload); got != stored {
		return fmt.Errorf("%w: stored %x, computed %x", ErrChecksumMismatch, stored[:4], got[:4])
	}
	return nil
}
