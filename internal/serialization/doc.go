// Package serialization stores tape snapshots and flattens structured
// arguments into gradient vectors.
//
// A tape snapshot file is laid out as:
//
//	Format Structure:
//	  [4 bytes: Magic "STAD"]
//	  [4 bytes: Version (uint32 LE)]
//	  [8 bytes: Payload Size (uint64 LE)]
//	  [32 bytes: SHA-256 of the payload]
//	  [Payload: CBOR-encoded TapeSnapshot]
//
// Snapshots are a debugging aid: they record what a tape held at one moment
// (kinds by name, values, adjoints, operands) and are validated on read,
// including the rule that every operand precedes the node that uses it.
//
// Example usage:
//
//	snap := stack.Tape().Snapshot(stack.Depth())
//	if err := serialization.WriteTapeFile("tape.stad", snap); err != nil {
//	    log.Fatal(err)
//	}
//
//	snap, err := serialization.ReadTapeFile("tape.stad")
//
// Serializer and Deserializer pack scalars, slices and matrices into one
// []float64 and read them back in the same order.
package serialization
