// Package compress provides compression and decompression codecs for time-series payloads.
//
// This package offers multiple compression algorithms optimized for different characteristics
// of time-series data. Compression is applied at the block level after encoding, providing
// an additional layer of space savings beyond the FCM/DeltaRLE encoding stage.
//
// # Overview
//
// The compression core applies a two-stage strategy:
//
//  1. **Encoding**: Exploits patterns in the data (delta-run-length, FCM XOR prediction)
//  2. **Compression**: Further reduces encoded data using general-purpose algorithms
//
// The compress package implements the second stage, supporting multiple algorithms:
//   - None: No compression (fastest, largest)
//   - Zstd: Excellent compression ratio, moderate speed
//   - S2: Balanced compression and speed
//   - LZ4: Fast decompression, moderate compression
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
// **NoOp Compression** (format.CompressionNone)
//
//	codec := compress.NewNoOpCompressor()
//	compressed, _ := codec.Compress(data)  // Returns data unchanged
//	original, _ := codec.Decompress(compressed)  // Returns data unchanged
//
// Use when:
//   - Data is already well-compressed by the FCM/DeltaRLE encoding stage
//   - CPU is more critical than storage
//   - Data is incompressible (random, encrypted)
//
// **Zstandard (Zstd)** (format.CompressionZstd)
//
//	codec := compress.NewZstdCompressor()
//	compressed, _ := codec.Compress(data)  // Best compression ratio
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Excellent (typically 2-4x on top of encoding)
//   - Speed: Moderate (compression: ~400 MB/s, decompression: ~1000 MB/s)
//   - Memory: ~2-4 MB for compression, ~1-2 MB for decompression
//   - Latency: Medium (adds ~0.5-2ms for typical blocks)
//
// Use when:
//   - Storage cost is primary concern
//   - Network bandwidth is limited
//   - Can tolerate moderate compression overhead
//
// Best for:
//   - Cold blocks written once and read rarely
//   - Data blocks with predictable, repetitive residuals
//   - Cold storage / archival
//
// **S2 (Snappy Alternative)** (format.CompressionS2)
//
//	codec := compress.NewS2Compressor()
//	compressed, _ := codec.Compress(data)  // Fast with good compression
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Good (typically 1.5-2.5x on top of encoding)
//   - Speed: Fast (compression: ~1000 MB/s, decompression: ~2000 MB/s)
//   - Memory: ~256KB for compression, ~64KB for decompression
//   - Latency: Low (adds ~0.2-0.5ms for typical blocks)
//
// Use when:
//   - Need balance between compression and speed
//   - Latency is important
//   - Moderate storage savings are acceptable
//
// Best for:
//   - Actively written data blocks
//   - Hot path query responses
//   - Streaming ingestion
//
// **LZ4** (format.CompressionLZ4)
//
//	codec := compress.NewLZ4Compressor()
//	compressed, _ := codec.Compress(data)  // Very fast decompression
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Moderate (typically 1.3-2x on top of encoding)
//   - Speed: Very fast decompression (~3000 MB/s), moderate compression (~800 MB/s)
//   - Memory: ~64KB for compression, ~16KB for decompression
//   - Latency: Very low (adds ~0.1-0.3ms for typical blocks)
//
// Use when:
//   - Read performance is critical
//   - Decompression speed matters more than compression ratio
//   - Low latency is required
//
// Best for:
//   - Query-heavy workloads
//   - Low-latency applications
//   - Cache-friendly scenarios
//
// # Algorithm Selection Guide
//
// **Choose based on workload**:
//
// | Workload Type          | Recommended | Reason                              |
// |------------------------|-------------|-------------------------------------|
// | Storage-constrained    | Zstd        | Best compression ratio              |
// | Real-time ingestion    | S2          | Balanced speed and compression      |
// | Query-heavy            | LZ4         | Fastest decompression               |
// | CPU-constrained        | None        | No compression overhead             |
// | Cold storage           | Zstd        | Maximize space savings              |
// | Hot path               | LZ4 or S2   | Minimize latency                    |
// | Network transmission   | Zstd        | Reduce bandwidth usage              |
//
// # Memory Management
//
// Output buffers are freshly allocated on every call and owned by the caller;
// only codec state is pooled:
//   - Zstd: encoders and decoders come from sync.Pool and are returned after use
//   - LZ4: the block compressor comes from sync.Pool; decompression starts with
//     a buffer 4x the compressed size and doubles it on short-buffer errors
//   - S2 and NoOp: no pooling
//
// Memory overhead:
//   - NoOp: Zero overhead
//   - LZ4: ~64KB compression, ~16KB decompression
//   - S2: ~256KB compression, ~64KB decompression
//   - Zstd: ~2-4MB compression, ~1-2MB decompression
//
// # Thread Safety
//
// All codec implementations are thread-safe and can be safely shared across goroutines.
// However, for best performance, consider using a codec per goroutine to avoid
// internal lock contention.
//
// # Error Handling
//
// Compression errors are rare but can occur:
//   - Input too large (exceeds algorithm limits)
//   - Memory allocation failure
//
// Decompression errors are more common:
//   - Corrupted compressed data
//   - Invalid compression format
//   - Decompressed size exceeds limits
//
// All errors are wrapped with context for debugging.
//
// # Integration with Blockstore
//
// The blockstore package uses this package to compress a committed data
// block's bytes at rest, independently of the block's own fixed wire
// format:
//
//	store, _ := blockstore.New(format.CompressionZstd)
//	compressed, _ := store.Freeze(blockBytes)
//	original, _ := store.Thaw(compressed)
//
// # Advanced Usage
//
// For custom compression needs, implement the Compressor/Decompressor interfaces:
//
//	type MyCodec struct{}
//
//	func (c *MyCodec) Compress(data []byte) ([]byte, error) {
//	    // Custom compression logic
//	    return compressedData, nil
//	}
//
//	func (c *MyCodec) Decompress(data []byte) ([]byte, error) {
//	    // Custom decompression logic
//	    return originalData, nil
//	}
package compress
