package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// sizePrefixLen is the length of the uncompressed-size header.
const sizePrefixLen = 4

// ErrCorruptPayload is returned when a compressed payload cannot be decoded.
var ErrCorruptPayload = errors.New("corrupt compressed payload")

// Compress encodes data as an LZ4 block preceded by its uncompressed length.
// Incompressible input is stored as is, flagged by a zero-length block.
func Compress(data []byte) []byte {
	out := make([]byte, sizePrefixLen+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out, uint32(len(data))) //nolint:gosec // payloads are far below 4 GiB

	written, err := lz4.CompressBlock(data, out[sizePrefixLen:], nil)
	if err != nil || written == 0 {
		raw := make([]byte, sizePrefixLen+len(data))
		copy(raw[sizePrefixLen:], data)

		return raw
	}

	return out[:sizePrefixLen+written]
}

// Decompress reverses Compress.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) < sizePrefixLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptPayload, len(payload))
	}

	size := int(binary.LittleEndian.Uint32(payload))
	body := payload[sizePrefixLen:]

	if size == 0 {
		out := make([]byte, len(body))
		copy(out, body)

		return out, nil
	}

	out := make([]byte, size)

	n, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	if n != size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptPayload, n, size)
	}

	return out, nil
}
