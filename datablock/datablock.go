// Package datablock implements the on-disk data block: a header, a run of
// fixed-size compressed chunks, and a trailing run of uncompressed pairs
// for whatever didn't fill a final chunk.
//
// Block layout, host-endian:
//
//	offset  size  field
//	0       2     version (u16)
//	2       2     nchunks (u16)
//	4       2     ntail   (u16)
//	6       8     paramid (u64)
//	14      *     nchunks x compressed_chunk
//	*       *     ntail x (u64 ts, f64 value)
//
// Each compressed_chunk holds CHUNK_SIZE timestamps DeltaRLE-encoded
// followed by CHUNK_SIZE values FCM-encoded; there are no length prefixes
// inside a block's chunks, since the fixed chunk size and the header's
// nchunks count are sufficient to delimit them.
package datablock

import (
	"fmt"

	"github.com/coreflux/fcmstore/bytestream"
	"github.com/coreflux/fcmstore/deltarle"
	"github.com/coreflux/fcmstore/doublecodec"
	"github.com/coreflux/fcmstore/endian"
	"github.com/coreflux/fcmstore/fcmerr"
	"github.com/coreflux/fcmstore/internal/pool"
)

// Version is the on-disk block format version written into every header.
const Version uint16 = 1

// ChunkSize is the number of (timestamp, value) pairs batched into one
// compressed chunk. Must be a power of two and identical between writer
// and reader.
const ChunkSize = 128

const chunkMask = ChunkSize - 1

// WorstCasePairMargin is the guard `Writer.RoomForChunk` uses to decide
// whether another compressed chunk could still fit: 11 bytes worst case
// per timestamp (a DeltaRLE delta varint of up to 10 bytes plus a 1-byte
// run length) plus 9 bytes worst case per value, times ChunkSize since
// flushChunk writes a whole chunk's worth of pairs in one shot and must
// not be left to overflow partway through.
const WorstCasePairMargin = (11 + 9) * ChunkSize

// HeaderSize is the fixed size in bytes of the block header.
const HeaderSize = 14

// Writer batches (timestamp, value) pairs into fixed-size compressed
// chunks, spilling whatever remains at Commit as an uncompressed tail.
type Writer struct {
	stream        *bytestream.Writer
	nchunksSl     bytestream.Uint16Slot
	ntailSl       bytestream.Uint16Slot
	writeIndex    int
	tailMode      bool
	tsBuf         []uint64
	valBuf        []float64
	tsBufRelease  func()
	valBufRelease func()
}

// NewWriter constructs a Writer over buf using the host's native byte
// order, writing the header immediately. It panics if buf is too small
// to hold the header: a buffer too small for the header is a logic bug
// in the caller, not a data error.
func NewWriter(buf []byte, paramID uint64) *Writer {
	return NewWriterEndian(buf, paramID, endian.GetNativeEngine())
}

// NewWriterEndian is like NewWriter but with an explicit byte order, for
// callers that need a pinned on-disk layout regardless of host
// architecture.
func NewWriterEndian(buf []byte, paramID uint64, engine endian.EndianEngine) *Writer {
	stream := bytestream.NewWriterEndian(buf, engine)

	okVersion := stream.PutUint16(Version)
	nchunksSl, okN := stream.ReserveUint16()
	ntailSl, okT := stream.ReserveUint16()
	okID := stream.PutUint64(paramID)

	if !okVersion || !okN || !okT || !okID {
		panic("datablock: buffer too small for header")
	}

	nchunksSl.Set(0)
	ntailSl.Set(0)

	tsBuf, tsRelease := pool.GetUint64Slice(ChunkSize)
	valBuf, valRelease := pool.GetFloat64Slice(ChunkSize)

	return &Writer{
		stream:        stream,
		nchunksSl:     nchunksSl,
		ntailSl:       ntailSl,
		tsBuf:         tsBuf,
		valBuf:        valBuf,
		tsBufRelease:  tsRelease,
		valBufRelease: valRelease,
	}
}

// RoomForChunk reports whether enough space remains in the buffer to
// safely flush one more full compressed chunk without risking overflow
// mid-flush.
func (w *Writer) RoomForChunk() bool {
	return w.stream.SpaceLeft() >= WorstCasePairMargin
}

// Put appends one (timestamp, value) pair. The decision to fall back to
// the uncompressed tail is only made at a chunk boundary, when the
// scratch buffer is empty and about to start filling again; once made,
// it never switches back, so the compressed hot path and the tail are
// mutually exclusive in time.
func (w *Writer) Put(ts uint64, value float64) error {
	if !w.tailMode && w.writeIndex&chunkMask == 0 && !w.RoomForChunk() {
		w.tailMode = true
	}

	if !w.tailMode {
		idx := w.writeIndex & chunkMask
		w.tsBuf[idx] = ts
		w.valBuf[idx] = value
		w.writeIndex++

		if w.writeIndex&chunkMask == 0 {
			if err := w.flushChunk(); err != nil {
				return err
			}
		}

		return nil
	}

	// Invariant: the scratch buffer must be empty once tail mode starts;
	// the boundary check above guarantees this.
	if w.writeIndex&chunkMask != 0 {
		panic("datablock: scratch buffer non-empty when switching to uncompressed tail")
	}

	if !w.stream.PutUint64(ts) || !w.stream.PutFloat64(value) {
		return fmt.Errorf("datablock: appending uncompressed tail pair: %w", fcmerr.ErrOverflow)
	}
	w.ntailSl.Set(w.ntailSl.Get() + 1)

	return nil
}

func (w *Writer) flushChunk() error {
	tsWriter := deltarle.NewWriter()
	defer tsWriter.Release()
	for _, ts := range w.tsBuf {
		tsWriter.Put(ts)
	}
	tsWriter.Commit()
	if !w.stream.PutBytes(tsWriter.Bytes()) {
		// room_for_chunk() guaranteed space; reaching here means it
		// mis-estimated the required margin, which is a logic bug.
		panic("datablock: chunk flush overflowed after room_for_chunk approved it")
	}

	valWriter := doublecodec.NewWriter(w.stream)
	if !valWriter.PutSlice(w.valBuf) {
		panic("datablock: chunk flush overflowed after room_for_chunk approved it")
	}

	return nil
}

// Commit flushes any partially filled chunk as uncompressed tail entries,
// back-patches the header, and returns the total number of bytes written.
// It returns the writer's pooled scratch buffers regardless of outcome:
// a Writer must not be reused after Commit, successful or not.
func (w *Writer) Commit() (int, error) {
	defer w.tsBufRelease()
	defer w.valBufRelease()

	buftail := w.writeIndex & chunkMask
	nchunks := w.writeIndex / ChunkSize

	if buftail > 0 {
		if w.ntailSl.Get() != 0 {
			panic("datablock: write buffer non-empty but tail already started")
		}
		for i := 0; i < buftail; i++ {
			if !w.stream.PutUint64(w.tsBuf[i]) || !w.stream.PutFloat64(w.valBuf[i]) {
				return 0, fmt.Errorf("datablock: flushing remainder at commit: %w", fcmerr.ErrOverflow)
			}
			w.ntailSl.Set(w.ntailSl.Get() + 1)
		}
	}

	if nchunks > 0xFFFF {
		panic("datablock: too many chunks to fit in header field")
	}
	w.nchunksSl.Set(uint16(nchunks)) //nolint:gosec

	return w.stream.Size(), nil
}

// Reader yields the (timestamp, value) pairs stored in a block written by
// Writer, in original order, strictly forward-sequential.
type Reader struct {
	raw       []byte
	stream    *bytestream.Reader
	valReader *doublecodec.Reader
	engine    endian.EndianEngine
	tsScratch [ChunkSize]uint64
	readIndex int
}

// NewReader wraps a complete block's bytes for reading, assuming the
// host's native byte order.
func NewReader(buf []byte) *Reader {
	return NewReaderEndian(buf, endian.GetNativeEngine())
}

// NewReaderEndian is like NewReader but with an explicit byte order,
// matching whatever order the block was written with.
func NewReaderEndian(buf []byte, engine endian.EndianEngine) *Reader {
	if len(buf) < HeaderSize {
		panic("datablock: buffer too small for header")
	}
	body := bytestream.NewReaderEndian(buf[HeaderSize:], engine)

	return &Reader{raw: buf, stream: body, engine: engine}
}

func (r *Reader) header() (version uint16, nchunks uint16, ntail uint16, paramID uint64) {
	hdr := bytestream.NewReaderEndian(r.raw, r.engine)
	version, _ = hdr.ReadUint16()
	nchunks, _ = hdr.ReadUint16()
	ntail, _ = hdr.ReadUint16()
	paramID, _ = hdr.ReadUint64()

	return
}

// Version returns the block's format version.
func (r *Reader) Version() uint16 {
	v, _, _, _ := r.header()

	return v
}

// ID returns the block's paramid.
func (r *Reader) ID() uint64 {
	_, _, _, id := r.header()

	return id
}

// NElements returns the total number of (ts, value) pairs stored, whether
// via compressed chunks or the uncompressed tail.
func (r *Reader) NElements() int {
	_, nchunks, ntail, _ := r.header()

	return int(nchunks)*ChunkSize + int(ntail)
}

func (r *Reader) mainSize() int {
	_, nchunks, _, _ := r.header()

	return int(nchunks) * ChunkSize
}

// Next returns the next (timestamp, value) pair, or ok=false once the
// block is exhausted.
func (r *Reader) Next() (ts uint64, value float64, ok bool) {
	mainSize := r.mainSize()

	if r.readIndex < mainSize {
		chunkIdx := r.readIndex & chunkMask
		if chunkIdx == 0 {
			// Each chunk's value stream was encoded by its own fresh
			// doublecodec.Writer (see flushChunk), so decoding must
			// likewise start a fresh predictor at each chunk boundary.
			if !r.decodeTimestampChunk() {
				return 0, 0, false
			}
			r.valReader = doublecodec.NewReader(r.stream)
		}
		v, valOK := r.valReader.Next()
		if !valOK {
			return 0, 0, false
		}
		r.readIndex++

		return r.tsScratch[chunkIdx], v, true
	}

	if r.readIndex < r.NElements() {
		ts, tsOK := r.stream.ReadUint64()
		v, vOK := r.stream.ReadFloat64()
		if !tsOK || !vOK {
			return 0, 0, false
		}
		r.readIndex++

		return ts, v, true
	}

	return 0, 0, false
}

// decodeTimestampChunk decodes one full chunk of timestamps from the
// current stream position into tsScratch. The timestamp sub-stream for a
// chunk is not length-prefixed (see package doc): DeltaRLE is
// self-delimiting for a known element count, so we decode exactly
// ChunkSize values directly off the shared cursor's remaining bytes and
// then advance that cursor by however many bytes DeltaRLE consumed.
func (r *Reader) decodeTimestampChunk() bool {
	tsr := deltarle.NewReader(r.stream.PeekRemaining())
	for i := 0; i < ChunkSize; i++ {
		v, ok := tsr.Next()
		if !ok {
			return false
		}
		r.tsScratch[i] = v
	}

	return r.stream.Advance(tsr.Pos())
}
