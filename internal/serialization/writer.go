package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

var encMode = mustEncMode(cbor.EncOptions{
	Time:          cbor.TimeRFC3339Nano,
	ShortestFloat: cbor.ShortestFloatNone,
})

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("serialization: invalid cbor options: %v", err))
	}
	return em
}

// WriteTape writes snap to w in the snapshot file format.
func WriteTape(w io.Writer, snap TapeSnapshot) error {
	payload, err := encMode.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	// Write magic bytes
	if _, err := io.WriteString(w, MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}

	// Write version
	if err := binary.Write(w, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	// Write payload size
	if err := binary.Write(w, binary.LittleEndian, uint64(len(payload))); err != nil {
		return fmt.Errorf("failed to write payload size: %w", err)
	}

	// Write checksum
	sum := ComputeChecksum(payload)
	if _, err := w.Write(sum[:]); err != nil {
		return fmt.Errorf("failed to write checksum: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// WriteTapeFile writes snap to a new file at path.
func WriteTapeFile(path string, snap TapeSnapshot) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for snapshot dumps
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := WriteTape(bw, snap); err != nil {
		return err
	}
	return bw.Flush()
}
