// Package fcmstore provides a small top-level facade over the compression
// core: it hashes caller-supplied series names into data block paramids,
// batches points into fixed-size chunks, and freezes committed blocks
// through an optional at-rest codec.
//
// This package is a convenience wrapper. Callers who need direct control
// over chunking, endianness, or block layout should use the datablock,
// chunkcodec, and blockstore packages directly.
package fcmstore

import (
	"fmt"

	"github.com/coreflux/fcmstore/blockstore"
	"github.com/coreflux/fcmstore/datablock"
	"github.com/coreflux/fcmstore/fcmerr"
	"github.com/coreflux/fcmstore/internal/hash"
	"github.com/coreflux/fcmstore/internal/options"
)

// worstCaseBytesPerPair mirrors datablock.WorstCasePairMargin's per-pair
// share: 11 bytes worst case for a DeltaRLE timestamp plus 9 for an
// FCM-encoded value.
const worstCaseBytesPerPair = 11 + 9

// maxBlockGrowthAttempts bounds the buffer-growth retry loop in flush: a
// data block that still won't fit after this many doublings indicates a
// bug in the size estimate, not a transient condition.
const maxBlockGrowthAttempts = 8

type pair struct {
	ts    uint64
	value float64
}

type series struct {
	pending []pair
	blocks  [][]byte
}

// Store batches (timestamp, value) points per series name and freezes
// them into compressed data blocks.
//
// Store is not safe for concurrent use. Each Store instance should be
// used by a single goroutine at a time.
type Store struct {
	cfg    *config
	bs     *blockstore.Store
	series map[uint64]*series
}

// New constructs a Store. With no options it batches 128 points per
// series before compressing them into a data block chunk, uses the
// host's native byte order, and applies no at-rest compression.
func New(opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, fmt.Errorf("fcmstore: %w", err)
	}

	bs, err := blockstore.New(cfg.compressionType)
	if err != nil {
		return nil, fmt.Errorf("fcmstore: %w", err)
	}

	return &Store{cfg: cfg, bs: bs, series: make(map[uint64]*series)}, nil
}

// Put appends one (timestamp, value) point to the named series. Points
// accumulate in memory until enough have arrived to fill a chunk, at
// which point they're compressed and frozen; Query still sees points
// that haven't reached that threshold yet.
func (s *Store) Put(seriesName string, ts int64, value float64) error {
	id := hash.ID(seriesName)

	sr, ok := s.series[id]
	if !ok {
		sr = &series{}
		s.series[id] = sr
	}

	sr.pending = append(sr.pending, pair{ts: uint64(ts), value: value}) //nolint:gosec

	if len(sr.pending) >= s.cfg.chunkSize {
		if err := s.flush(id, sr); err != nil {
			return fmt.Errorf("fcmstore: put %q: %w", seriesName, err)
		}
	}

	return nil
}

// Flush forces any pending, not-yet-compressed points for seriesName into
// a frozen data block. Query already includes pending points on its own,
// so calling Flush is never required for correctness; it only trades
// memory for CPU ahead of schedule.
func (s *Store) Flush(seriesName string) error {
	id := hash.ID(seriesName)

	sr, ok := s.series[id]
	if !ok || len(sr.pending) == 0 {
		return nil
	}

	if err := s.flush(id, sr); err != nil {
		return fmt.Errorf("fcmstore: flush %q: %w", seriesName, err)
	}

	return nil
}

func (s *Store) flush(id uint64, sr *series) error {
	blockBytes, err := buildBlock(id, sr.pending, s.cfg)
	if err != nil {
		return err
	}

	frozen, err := s.bs.Freeze(blockBytes)
	if err != nil {
		return fmt.Errorf("freezing block: %w", err)
	}

	sr.blocks = append(sr.blocks, frozen)
	sr.pending = sr.pending[:0]

	return nil
}

// buildBlock commits pairs into a single data block, growing the backing
// buffer and retrying whenever the estimate undershoots. The estimate
// only needs to be close: RoomForChunk decides the real compressed/tail
// split, so a generous first guess just avoids most retries.
func buildBlock(id uint64, pairs []pair, cfg *config) ([]byte, error) {
	size := datablock.HeaderSize + len(pairs)*worstCaseBytesPerPair + 64

	for attempt := 0; attempt < maxBlockGrowthAttempts; attempt++ {
		buf := make([]byte, size)
		w := datablock.NewWriterEndian(buf, id, cfg.engine)

		overflowed := false
		for _, p := range pairs {
			if err := w.Put(p.ts, p.value); err != nil {
				overflowed = true

				break
			}
		}

		if !overflowed {
			n, err := w.Commit()
			if err != nil {
				overflowed = true
			} else {
				return buf[:n], nil
			}
		}

		size *= 2
	}

	return nil, fmt.Errorf("building block for %d points: %w", len(pairs), fcmerr.ErrOverflow)
}

// Iterator yields the (timestamp, value) points of one series, in the
// order they were written: frozen blocks first, then whatever hasn't
// reached the flush threshold yet.
type Iterator struct {
	pairs []pair
	idx   int
}

// Next returns the next point, or ok=false once the series is exhausted.
func (it *Iterator) Next() (ts int64, value float64, ok bool) {
	if it.idx >= len(it.pairs) {
		return 0, 0, false
	}

	p := it.pairs[it.idx]
	it.idx++

	return int64(p.ts), p.value, true //nolint:gosec
}

// Query returns an Iterator over every point recorded for seriesName. It
// returns fcmerr.ErrNoData if the series has never been written to.
func (s *Store) Query(seriesName string) (*Iterator, error) {
	id := hash.ID(seriesName)

	sr, ok := s.series[id]
	if !ok {
		return nil, fmt.Errorf("fcmstore: query %q: %w", seriesName, fcmerr.ErrNoData)
	}

	pairs := make([]pair, 0, len(sr.pending))

	for _, frozen := range sr.blocks {
		raw, err := s.bs.Thaw(frozen)
		if err != nil {
			return nil, fmt.Errorf("fcmstore: query %q: thawing block: %w", seriesName, err)
		}

		r := datablock.NewReaderEndian(raw, s.cfg.engine)
		for {
			ts, v, ok := r.Next()
			if !ok {
				break
			}
			pairs = append(pairs, pair{ts: ts, value: v})
		}
	}

	pairs = append(pairs, sr.pending...)

	return &Iterator{pairs: pairs}, nil
}
