// Package deltarle implements the DeltaRLE integer codec: the external
// collaborator the compression core's chunk and block layers use to store
// series identifiers and timestamps.
//
// Values are encoded as zigzag-varint deltas from the previous value, with
// consecutive equal deltas collapsed into a single (delta, run length)
// pair. This is exceptionally cheap for the core's two intended streams:
// monotonically increasing timestamps at a regular sampling interval
// (delta is constant, run length grows without bound) and ascending or
// clustered series identifiers.
//
// The encoding is grounded in the same zigzag+varint machinery the
// upstream time-series codec uses for its delta-of-delta timestamp
// encoder, adapted here to a flat single-delta scheme plus run-length
// so that a single component serves both identifiers (not necessarily
// evenly spaced) and timestamps (usually evenly spaced) well.
package deltarle

import (
	"encoding/binary"

	"github.com/coreflux/fcmstore/internal/pool"
)

// Writer accumulates a run-length-collapsed delta stream.
type Writer struct {
	buf      *pool.ByteBuffer
	temp     [binary.MaxVarintLen64]byte
	havePrev bool
	prev     uint64
	haveRun  bool
	runDelta uint64
	runLen   uint64
	count    int
}

// NewWriter returns a ready-to-use Writer backed by a pooled buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.GetBlobBuffer()}
}

func zigzagEncode(delta int64) uint64 {
	return (uint64(delta) << 1) ^ uint64(delta>>63)
}

func zigzagDecode(z uint64) int64 {
	return int64(z>>1) ^ -int64(z&1)
}

func (w *Writer) putVarint(v uint64) {
	n := binary.PutUvarint(w.temp[:], v)
	w.buf.MustWrite(w.temp[:n])
}

// flushRun emits the pending (delta, run) pair, if any.
func (w *Writer) flushRun() {
	if !w.haveRun {
		return
	}
	w.putVarint(zigzagEncode(int64(w.runDelta)))
	w.putVarint(w.runLen)
	w.haveRun = false
}

// Put appends v to the stream. It always succeeds (the pool buffer grows
// as needed) but mirrors the boolean-success contract spec.md's ByteStream
// requires of its collaborators; a data block or chunk encoder that needs
// to bound total size should check Size() against its own budget.
func (w *Writer) Put(v uint64) bool {
	w.count++

	if !w.havePrev {
		w.havePrev = true
		w.prev = v
		w.putVarint(v)

		return true
	}

	delta := int64(v - w.prev)
	w.prev = v
	udelta := uint64(delta)

	if w.haveRun && udelta == w.runDelta {
		w.runLen++

		return true
	}

	w.flushRun()
	w.haveRun = true
	w.runDelta = udelta
	w.runLen = 1

	return true
}

// Commit flushes any pending run. It must be called before Bytes/Size are
// considered final.
func (w *Writer) Commit() bool {
	w.flushRun()

	return true
}

// Bytes returns the encoded byte slice. Valid until the writer is reused
// or released.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int {
	return w.buf.Len()
}

// Len returns the number of values put so far.
func (w *Writer) Len() int {
	return w.count
}

// Release returns the writer's backing buffer to the pool. The writer must
// not be used afterward.
func (w *Writer) Release() {
	pool.PutBlobBuffer(w.buf)
	w.buf = nil
}

// Reader decodes a DeltaRLE stream produced by Writer.
type Reader struct {
	data     []byte
	off      int
	havePrev bool
	prev     uint64
	haveRun  bool
	runDelta int64
	runLeft  uint64
	yielded  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos returns the number of bytes of data consumed so far, letting a
// caller who handed us a shared buffer's tail know where its own cursor
// should resume.
func (r *Reader) Pos() int {
	return r.off
}

// Next returns the next decoded value. ok is false once the stream is
// exhausted or malformed.
func (r *Reader) Next() (uint64, bool) {
	if !r.havePrev {
		v, n := binary.Uvarint(r.data[r.off:])
		if n <= 0 {
			return 0, false
		}
		r.off += n
		r.havePrev = true
		r.prev = v
		r.yielded++

		return v, true
	}

	if !r.haveRun {
		if r.off >= len(r.data) {
			return 0, false
		}
		z, n := binary.Uvarint(r.data[r.off:])
		if n <= 0 {
			return 0, false
		}
		r.off += n
		runLen, n2 := binary.Uvarint(r.data[r.off:])
		if n2 <= 0 {
			return 0, false
		}
		r.off += n2

		r.haveRun = true
		r.runDelta = zigzagDecode(z)
		r.runLeft = runLen
	}

	r.prev = uint64(int64(r.prev) + r.runDelta)
	r.runLeft--
	if r.runLeft == 0 {
		r.haveRun = false
	}
	r.yielded++

	return r.prev, true
}
