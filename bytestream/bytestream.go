// Package bytestream provides a forward writer and reader over a
// caller-owned byte buffer.
//
// Writer supports raw fixed-width appends and reservation of a length-prefix
// slot that can be back-patched once the size of a sub-stream it precedes is
// known. Reader mirrors it with fixed-width reads. Both are strictly
// forward-sequential and host-endian by default, matching the on-disk block
// format's non-portability-by-design.
package bytestream

import (
	"math"

	"github.com/coreflux/fcmstore/endian"
)

// Writer is an append-only cursor into a fixed-capacity buffer.
type Writer struct {
	buf    []byte
	pos    int
	engine endian.EndianEngine
}

// NewWriter wraps buf for sequential writing using the host's native byte
// order. The writer never grows buf; once pos reaches len(buf), further
// appends fail.
func NewWriter(buf []byte) *Writer {
	return NewWriterEndian(buf, endian.GetNativeEngine())
}

// NewWriterEndian is like NewWriter but with an explicit byte order,
// primarily useful for tests that want to pin the on-disk layout.
func NewWriterEndian(buf []byte, engine endian.EndianEngine) *Writer {
	return &Writer{buf: buf, engine: engine}
}

// SpaceLeft reports how many bytes remain before the buffer is exhausted.
func (w *Writer) SpaceLeft() int {
	return len(w.buf) - w.pos
}

// Size returns the number of bytes written so far.
func (w *Writer) Size() int {
	return w.pos
}

// Commit is a no-op that mirrors the reserve-slot writer's contract in the
// external `DeltaRLE` collaborator; ByteStream itself has nothing to flush.
func (w *Writer) Commit() bool {
	return true
}

// PutByte appends a single byte.
func (w *Writer) PutByte(v byte) bool {
	if w.SpaceLeft() < 1 {
		return false
	}
	w.buf[w.pos] = v
	w.pos++

	return true
}

// PutBytes appends n raw bytes verbatim.
func (w *Writer) PutBytes(v []byte) bool {
	if w.SpaceLeft() < len(v) {
		return false
	}
	copy(w.buf[w.pos:], v)
	w.pos += len(v)

	return true
}

// PutUint16 appends a fixed-width uint16 in the writer's byte order.
func (w *Writer) PutUint16(v uint16) bool {
	if w.SpaceLeft() < 2 {
		return false
	}
	w.engine.PutUint16(w.buf[w.pos:], v)
	w.pos += 2

	return true
}

// PutUint32 appends a fixed-width uint32 in the writer's byte order.
func (w *Writer) PutUint32(v uint32) bool {
	if w.SpaceLeft() < 4 {
		return false
	}
	w.engine.PutUint32(w.buf[w.pos:], v)
	w.pos += 4

	return true
}

// PutUint64 appends a fixed-width uint64 in the writer's byte order.
func (w *Writer) PutUint64(v uint64) bool {
	if w.SpaceLeft() < 8 {
		return false
	}
	w.engine.PutUint64(w.buf[w.pos:], v)
	w.pos += 8

	return true
}

// PutFloat64 appends a fixed-width IEEE 754 double, bit-reinterpreted and
// stored via PutUint64.
func (w *Writer) PutFloat64(v float64) bool {
	return w.PutUint64(math.Float64bits(v))
}

// Uint32Slot is a handle to a reserved 4-byte slot inside the writer's
// buffer, to be back-patched once the value it describes (typically a
// sub-stream's length) is known.
type Uint32Slot struct {
	buf    []byte
	off    int
	engine endian.EndianEngine
}

// Set writes v into the reserved slot.
func (s Uint32Slot) Set(v uint32) {
	s.engine.PutUint32(s.buf[s.off:], v)
}

// ReserveUint32 allocates a 4-byte slot at the writer's current position,
// initializes it to zero, and returns a handle the caller can back-patch
// later without needing to track the offset itself.
func (w *Writer) ReserveUint32() (Uint32Slot, bool) {
	if w.SpaceLeft() < 4 {
		return Uint32Slot{}, false
	}
	off := w.pos
	w.engine.PutUint32(w.buf[off:], 0)
	w.pos += 4

	return Uint32Slot{buf: w.buf, off: off, engine: w.engine}, true
}

// Uint16Slot is the 2-byte analogue of Uint32Slot, used for the block
// header's nchunks/ntail fields.
type Uint16Slot struct {
	buf    []byte
	off    int
	engine endian.EndianEngine
}

// Set writes v into the reserved slot.
func (s Uint16Slot) Set(v uint16) {
	s.engine.PutUint16(s.buf[s.off:], v)
}

// Get reads the current value of the reserved slot.
func (s Uint16Slot) Get() uint16 {
	return s.engine.Uint16(s.buf[s.off:])
}

// ReserveUint16 allocates a 2-byte slot, see ReserveUint32.
func (w *Writer) ReserveUint16() (Uint16Slot, bool) {
	if w.SpaceLeft() < 2 {
		return Uint16Slot{}, false
	}
	off := w.pos
	w.engine.PutUint16(w.buf[off:], 0)
	w.pos += 2

	return Uint16Slot{buf: w.buf, off: off, engine: w.engine}, true
}

// Reader is a forward cursor over a byte slice produced by a Writer.
type Reader struct {
	buf    []byte
	pos    int
	engine endian.EndianEngine
}

// NewReader wraps buf for sequential reading using the host's native byte order.
func NewReader(buf []byte) *Reader {
	return NewReaderEndian(buf, endian.GetNativeEngine())
}

// NewReaderEndian is like NewReader but with an explicit byte order.
func NewReaderEndian(buf []byte, engine endian.EndianEngine) *Reader {
	return &Reader{buf: buf, engine: engine}
}

// Pos returns the current read offset into the underlying buffer.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// PeekRemaining returns the unread tail of the buffer without advancing
// the cursor, for collaborators (like deltarle.Reader) that decode a
// self-delimiting stream and report back how many bytes they consumed.
func (r *Reader) PeekRemaining() []byte {
	return r.buf[r.pos:]
}

// Advance moves the cursor forward by n bytes, as reported by a
// collaborator that decoded directly from PeekRemaining's slice. ok is
// false if n overruns the buffer.
func (r *Reader) Advance(n int) bool {
	if n < 0 || r.Remaining() < n {
		return false
	}
	r.pos += n

	return true
}

// ReadByte reads a single byte. ok is false if the buffer is exhausted.
func (r *Reader) ReadByte() (byte, bool) {
	if r.Remaining() < 1 {
		return 0, false
	}
	v := r.buf[r.pos]
	r.pos++

	return v, true
}

// ReadBytes reads n raw bytes verbatim. ok is false if not enough remain.
func (r *Reader) ReadBytes(n int) ([]byte, bool) {
	if r.Remaining() < n {
		return nil, false
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n

	return v, true
}

// ReadUint16 reads a fixed-width uint16.
func (r *Reader) ReadUint16() (uint16, bool) {
	if r.Remaining() < 2 {
		return 0, false
	}
	v := r.engine.Uint16(r.buf[r.pos:])
	r.pos += 2

	return v, true
}

// ReadUint32 reads a fixed-width uint32.
func (r *Reader) ReadUint32() (uint32, bool) {
	if r.Remaining() < 4 {
		return 0, false
	}
	v := r.engine.Uint32(r.buf[r.pos:])
	r.pos += 4

	return v, true
}

// ReadUint64 reads a fixed-width uint64.
func (r *Reader) ReadUint64() (uint64, bool) {
	if r.Remaining() < 8 {
		return 0, false
	}
	v := r.engine.Uint64(r.buf[r.pos:])
	r.pos += 8

	return v, true
}

// ReadFloat64 reads a fixed-width IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, bool) {
	bits, ok := r.ReadUint64()
	if !ok {
		return 0, false
	}

	return math.Float64frombits(bits), true
}
