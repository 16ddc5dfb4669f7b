// Package blockstore wraps a datablock's committed bytes with an optional
// at-rest compression codec, layered entirely outside the block's fixed
// wire format: the compression header lives in front of the block bytes,
// never inside them.
package blockstore

import (
	"encoding/binary"
	"fmt"

	"github.com/coreflux/fcmstore/compress"
	"github.com/coreflux/fcmstore/fcmerr"
	"github.com/coreflux/fcmstore/format"
)

// frameHeaderSize is the size of the small frame this package prefixes
// onto compressed bytes: one byte for the algorithm tag, four for the
// original (decompressed) length, needed because some codecs require
// the destination size up front.
const frameHeaderSize = 1 + 4

// Store compresses and decompresses committed block bytes for storage.
// It holds no block-format knowledge; it treats the block as an opaque
// byte string.
type Store struct {
	compressionType format.CompressionType
	codec           compress.Codec
}

// New returns a Store using compressionType for all future Freeze calls.
// Thaw auto-detects the algorithm from the frame header regardless of
// which type New was called with, so a single Store can read blocks
// written under a different configuration.
func New(compressionType format.CompressionType) (*Store, error) {
	codec, err := compress.GetCodec(compressionType)
	if err != nil {
		return nil, fmt.Errorf("blockstore: %w", err)
	}

	return &Store{compressionType: compressionType, codec: codec}, nil
}

// Freeze compresses blockBytes (a fully committed datablock) and prefixes
// the result with a small frame recording the algorithm used and the
// original length, so Thaw can undo it without external bookkeeping.
func (s *Store) Freeze(blockBytes []byte) ([]byte, error) {
	compressed, err := s.codec.Compress(blockBytes)
	if err != nil {
		return nil, fmt.Errorf("blockstore: compress: %w", err)
	}

	out := make([]byte, frameHeaderSize+len(compressed))
	out[0] = byte(s.compressionType)
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(blockBytes))) //nolint:gosec
	copy(out[frameHeaderSize:], compressed)

	return out, nil
}

// Thaw reverses Freeze, returning the original block bytes. It reads the
// algorithm tag from the frame itself rather than trusting the Store's
// own configured type, so blocks compressed with different algorithms
// can coexist in the same storage tier.
func (s *Store) Thaw(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("blockstore: frame too short (%d bytes): %w", len(frame), fcmerr.ErrBadData)
	}

	compressionType := format.CompressionType(frame[0])
	originalLen := binary.LittleEndian.Uint32(frame[1:5])

	codec := s.codec
	if compressionType != s.compressionType {
		var err error
		codec, err = compress.GetCodec(compressionType)
		if err != nil {
			return nil, fmt.Errorf("blockstore: %w", err)
		}
	}

	out, err := codec.Decompress(frame[frameHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("blockstore: decompress: %w: %w", fcmerr.ErrBadData, err)
	}
	if uint32(len(out)) != originalLen { //nolint:gosec
		return nil, fmt.Errorf("blockstore: decompressed length %d does not match frame header %d: %w",
			len(out), originalLen, fcmerr.ErrBadData)
	}

	return out, nil
}
