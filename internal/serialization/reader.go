package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

var decMode = mustDecMode(cbor.DecOptions{
	MaxArrayElements: MaxNodeCount,
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("serialization: invalid cbor options: %v", err))
	}
	return dm
}

// ReadTape reads and validates a snapshot written by WriteTape.
func ReadTape(r io.Reader) (TapeSnapshot, error) {
	var snap TapeSnapshot

	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return snap, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != MagicBytes {
		return snap, fmt.Errorf("%w: expected %q, got %q", ErrInvalidMagic, MagicBytes, magic)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return snap, fmt.Errorf("failed to read version: %w", err)
	}
	if version != FormatVersion {
		return snap, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return snap, fmt.Errorf("failed to read payload size: %w", err)
	}
	if size > MaxPayloadSize {
		return snap, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}

	var sum [ChecksumSize]byte
	if _, err := io.ReadFull(r, sum[:]); err != nil {
		return snap, fmt.Errorf("failed to read checksum: %w", err)
	}

	// The buffer grows with the bytes actually read, so a forged size word
	// cannot force a large allocation up front.
	payload, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return snap, fmt.Errorf("failed to read payload: %w", err)
	}
	if uint64(len(payload)) != size {
		return snap, fmt.Errorf("failed to read payload: %w", io.ErrUnexpectedEOF)
	}
	if err := ValidateChecksum(payload, sum); err != nil {
		return snap, err
	}

	if err := decMode.Unmarshal(payload, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := ValidateSnapshot(snap); err != nil {
		return snap, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

// ReadTapeFile reads a snapshot from the file at path.
func ReadTapeFile(path string) (TapeSnapshot, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for snapshot loading
	f, err := os.Open(path)
	if err != nil {
		return TapeSnapshot{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadTape(bufio.NewReader(f))
}
