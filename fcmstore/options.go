package fcmstore

import (
	"fmt"

	"github.com/coreflux/fcmstore/endian"
	"github.com/coreflux/fcmstore/format"
	"github.com/coreflux/fcmstore/internal/options"
)

// Option configures a Store at construction time.
type Option = options.Option[*config]

type config struct {
	chunkSize       int
	engine          endian.EndianEngine
	compressionType format.CompressionType
}

func defaultConfig() *config {
	return &config{
		chunkSize:       chunkcodecDefaultChunkSize,
		engine:          endian.GetNativeEngine(),
		compressionType: format.CompressionNone,
	}
}

// chunkcodecDefaultChunkSize mirrors datablock.ChunkSize: a Store that
// never overrides WithChunkSize batches pending points one data block
// chunk at a time.
const chunkcodecDefaultChunkSize = 128

// WithChunkSize sets how many pending (timestamp, value) pairs a series
// accumulates before they are flushed into a compressed data block chunk.
// It must be a positive power of two to line up with a data block chunk
// boundary; anything else is rejected at Store construction.
func WithChunkSize(n int) Option {
	return options.New(func(c *config) error {
		if n <= 0 || n&(n-1) != 0 {
			return fmt.Errorf("fcmstore: chunk size %d must be a positive power of two", n)
		}
		c.chunkSize = n

		return nil
	})
}

// WithEndian pins the byte order used for every data block a Store
// writes. The default is the host's native order, matching the
// compression core's host-endian-by-design non-goal; pass an explicit
// engine only when the on-disk layout must be reproducible across
// architectures.
func WithEndian(engine endian.EndianEngine) Option {
	return options.New(func(c *config) error {
		if engine == nil {
			return fmt.Errorf("fcmstore: endian engine cannot be nil")
		}
		c.engine = engine

		return nil
	})
}

// WithCompression selects the at-rest codec applied to committed data
// blocks before they're retained in memory. The default is
// format.CompressionNone.
func WithCompression(compressionType format.CompressionType) Option {
	return options.New(func(c *config) error {
		c.compressionType = compressionType

		return nil
	})
}
