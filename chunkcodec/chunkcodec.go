// Package chunkcodec implements the chunk-level serializer: a framer that
// composes the paramid, timestamp, and value sub-streams of an
// UncompressedChunk into one contiguous byte range, and decomposes it back.
//
// Wire layout, sequential:
//
//	u32 ids_bytes        | DeltaRLE bytes for paramids
//	u32 ts_bytes         | DeltaRLE bytes for timestamps
//	u32 ncolumns (=1)
//	u32 values_count     | not a byte length, see decode note below
//	FCM double-codec bytes for values
//
// The doubles sub-stream's length prefix intentionally stores a value
// count rather than a byte count, unlike the two DeltaRLE-backed
// prefixes before it. The decoder relies on this asymmetry to know how
// many doubles to pull from the double codec. This is preserved for
// wire compatibility with the format this codec was distilled from; a
// future revision might normalize all three prefixes to byte counts.
package chunkcodec

import (
	"fmt"

	"github.com/coreflux/fcmstore/bytestream"
	"github.com/coreflux/fcmstore/deltarle"
	"github.com/coreflux/fcmstore/doublecodec"
	"github.com/coreflux/fcmstore/fcmerr"
)

// UncompressedChunk holds one chunk's worth of parallel triples prior to
// encoding, or after decoding.
type UncompressedChunk struct {
	ParamIDs   []uint64
	Timestamps []uint64
	Values     []float64
}

// EncodeResult carries the out-of-band values the caller needs after a
// successful encode: the element count and the timestamp range observed
// while framing the timestamp sub-stream.
type EncodeResult struct {
	NElements int
	TSBegin   uint64
	TSEnd     uint64
}

// EncodeChunk serializes data into stream. It aborts and returns an error
// on the first sub-stream that cannot fit; partial writes left in stream
// are not valid output and the caller must discard the buffer.
func EncodeChunk(stream *bytestream.Writer, data UncompressedChunk) (EncodeResult, error) {
	if len(data.ParamIDs) != len(data.Timestamps) || len(data.ParamIDs) != len(data.Values) {
		return EncodeResult{}, fmt.Errorf("chunkcodec: mismatched column lengths: ids=%d ts=%d values=%d",
			len(data.ParamIDs), len(data.Timestamps), len(data.Values))
	}

	idsSlot, ok := stream.ReserveUint32()
	if !ok {
		return EncodeResult{}, fmt.Errorf("chunkcodec: reserving ids length prefix: %w", fcmerr.ErrOverflow)
	}
	idsWriter := deltarle.NewWriter()
	defer idsWriter.Release()
	for _, id := range data.ParamIDs {
		idsWriter.Put(id)
	}
	idsWriter.Commit()
	if !stream.PutBytes(idsWriter.Bytes()) {
		return EncodeResult{}, fmt.Errorf("chunkcodec: writing ids stream: %w", fcmerr.ErrOverflow)
	}
	idsSlot.Set(uint32(idsWriter.Size())) //nolint:gosec

	tsSlot, ok := stream.ReserveUint32()
	if !ok {
		return EncodeResult{}, fmt.Errorf("chunkcodec: reserving timestamps length prefix: %w", fcmerr.ErrOverflow)
	}
	tsWriter := deltarle.NewWriter()
	defer tsWriter.Release()
	var tsBegin, tsEnd uint64
	if len(data.Timestamps) > 0 {
		tsBegin = data.Timestamps[0]
		tsEnd = data.Timestamps[0]
	}
	for _, ts := range data.Timestamps {
		if ts < tsBegin {
			tsBegin = ts
		}
		if ts > tsEnd {
			tsEnd = ts
		}
		tsWriter.Put(ts)
	}
	tsWriter.Commit()
	if !stream.PutBytes(tsWriter.Bytes()) {
		return EncodeResult{}, fmt.Errorf("chunkcodec: writing timestamp stream: %w", fcmerr.ErrOverflow)
	}
	tsSlot.Set(uint32(tsWriter.Size())) //nolint:gosec

	if !stream.PutUint32(1) { // ncolumns
		return EncodeResult{}, fmt.Errorf("chunkcodec: writing ncolumns: %w", fcmerr.ErrOverflow)
	}

	valuesSlot, ok := stream.ReserveUint32()
	if !ok {
		return EncodeResult{}, fmt.Errorf("chunkcodec: reserving values length prefix: %w", fcmerr.ErrOverflow)
	}
	dw := doublecodec.NewWriter(stream)
	if !dw.PutSlice(data.Values) {
		return EncodeResult{}, fmt.Errorf("chunkcodec: writing values stream: %w", fcmerr.ErrOverflow)
	}
	// Length prefix stores the value COUNT, not a byte length; see package doc.
	valuesSlot.Set(uint32(len(data.Values))) //nolint:gosec

	return EncodeResult{
		NElements: len(data.ParamIDs),
		TSBegin:   tsBegin,
		TSEnd:     tsEnd,
	}, nil
}

// DecodeChunk reads nelements paramids and timestamps, then decodes the
// doubles stream, from data. The ids and timestamp length prefixes are
// read but not otherwise validated, matching the upstream decoder's
// contract: it trusts nelements over the recorded byte counts.
func DecodeChunk(data []byte, nelements int) (UncompressedChunk, error) {
	r := bytestream.NewReader(data)

	idsSize, ok := r.ReadUint32()
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading ids length prefix: %w", fcmerr.ErrBadData)
	}
	idsBytes, ok := r.ReadBytes(int(idsSize))
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading ids stream: %w", fcmerr.ErrBadData)
	}
	ids := make([]uint64, 0, nelements)
	idsReader := deltarle.NewReader(idsBytes)
	for i := 0; i < nelements; i++ {
		v, ok := idsReader.Next()
		if !ok {
			return UncompressedChunk{}, fmt.Errorf("chunkcodec: decoding paramid %d: %w", i, fcmerr.ErrBadData)
		}
		ids = append(ids, v)
	}

	tsSize, ok := r.ReadUint32()
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading timestamps length prefix: %w", fcmerr.ErrBadData)
	}
	tsBytes, ok := r.ReadBytes(int(tsSize))
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading timestamp stream: %w", fcmerr.ErrBadData)
	}
	timestamps := make([]uint64, 0, nelements)
	tsReader := deltarle.NewReader(tsBytes)
	for i := 0; i < nelements; i++ {
		v, ok := tsReader.Next()
		if !ok {
			return UncompressedChunk{}, fmt.Errorf("chunkcodec: decoding timestamp %d: %w", i, fcmerr.ErrBadData)
		}
		timestamps = append(timestamps, v)
	}

	if _, ok := r.ReadUint32(); !ok { // ncolumns, ignored
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading ncolumns: %w", fcmerr.ErrBadData)
	}

	nblocks, ok := r.ReadUint32()
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: reading values count: %w", fcmerr.ErrBadData)
	}
	if int(nblocks) != nelements {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: values count %d disagrees with nelements %d: %w",
			nblocks, nelements, fcmerr.ErrBadData)
	}

	dr := doublecodec.NewReader(r)
	values, ok := dr.DecodeSlice(int(nblocks))
	if !ok {
		return UncompressedChunk{}, fmt.Errorf("chunkcodec: decoding values: %w", fcmerr.ErrBadData)
	}

	return UncompressedChunk{ParamIDs: ids, Timestamps: timestamps, Values: values}, nil
}
