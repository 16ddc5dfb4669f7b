// Package format defines small value types shared across the compression
// core and its storage-facing wrappers.
package format

// CompressionType selects the at-rest codec a blockstore applies to a
// committed data block. It has no bearing on the block's own wire format,
// which is fixed by the datablock package.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone disables at-rest compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd selects Zstandard.
	CompressionS2   CompressionType = 0x3 // CompressionS2 selects S2 (Snappy-compatible).
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 selects LZ4.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
