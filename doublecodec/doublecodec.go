// Package doublecodec implements the FCM XOR codec for IEEE 754 doubles.
//
// Each value is XORed against the FCM predictor's guess; the resulting
// diff is stored as a variable-width run of bytes described by a 4-bit
// flag (number of bytes, and whether they are the diff's high or low
// bytes). Values are packed two to a flag byte: the flag for an
// even-indexed value occupies the high nibble, the following odd-indexed
// value's flag the low nibble. An odd total count is padded with a
// synthetic zero diff so the pairing always closes cleanly.
//
// See https://akumuli.org and the "Gorilla" paper
// (https://www.vldb.org/pvldb/vol8/p1816-teller.pdf) for the family of
// techniques this codec draws on; unlike Gorilla's bitstream, this codec
// works in whole bytes, trading a little compression for branch-free,
// byte-aligned encode/decode.
package doublecodec

import (
	"math"
	"math/bits"

	"github.com/coreflux/fcmstore/bytestream"
	"github.com/coreflux/fcmstore/predictor"
)

// flagFor computes the 4-bit encoding flag for diff: bits [0..3) hold
// nbytes-1 (0..7), bit 3 selects whether the stored bytes are the diff's
// high bytes (1) or low bytes (0).
func flagFor(diff uint64) byte {
	leading, trailing := 64, 64
	if diff != 0 {
		trailing = bits.TrailingZeros64(diff)
		leading = bits.LeadingZeros64(diff)
	}

	var n int
	var flag byte
	if trailing > leading {
		// Low-precision case: nonzero bits cluster in the high bytes.
		n = 8 - trailing/8
		if n > 0 {
			n--
		}
		flag = 0x8 | byte(n&7)
	} else {
		n = 8 - leading/8
		if n > 0 {
			n--
		}
		flag = byte(n & 7)
	}

	return flag
}

// putDiff appends the bytes described by (diff, flag) to w.
func putDiff(w *bytestream.Writer, diff uint64, flag byte) bool {
	nbytes := int(flag&7) + 1
	shift := (64 - nbytes*8) * int((flag>>3)&1)
	diff >>= shift

	for i := 0; i < nbytes; i++ {
		if !w.PutByte(byte(diff)) {
			return false
		}
		diff >>= 8
	}

	return true
}

// readDiff reconstructs the diff value described by flag from r.
func readDiff(r *bytestream.Reader, flag byte) (uint64, bool) {
	nbytes := int(flag&7) + 1

	var diff uint64
	for i := 0; i < nbytes; i++ {
		b, ok := r.ReadByte()
		if !ok {
			return 0, false
		}
		diff |= uint64(b) << (i * 8)
	}

	shift := (64 - nbytes*8) * int((flag>>3)&1)
	diff <<= shift

	return diff, true
}

// Writer streams doubles through an FCM predictor, packing their XOR diffs
// in pairs.
type Writer struct {
	stream   *bytestream.Writer
	pred     predictor.Predictor
	pendDiff uint64
	pendFlag byte
	count    int
}

// NewWriter returns a Writer over stream, seeded with a fresh FCM predictor.
func NewWriter(stream *bytestream.Writer) *Writer {
	return &Writer{stream: stream, pred: predictor.NewFCM()}
}

// Put encodes a single value. It returns false if the underlying stream
// refuses the append (out of space); in that case the writer's stream may
// hold a partial pair and must be discarded by the caller, per the
// overflow-is-clean-for-caller-intent contract: the caller retries with a
// larger buffer rather than attempting to repair the partial write.
func (w *Writer) Put(value float64) bool {
	bitsVal := math.Float64bits(value)
	predicted := w.pred.PredictNext()
	w.pred.Update(bitsVal)
	diff := bitsVal ^ predicted
	flag := flagFor(diff)

	if w.count%2 == 0 {
		w.pendDiff = diff
		w.pendFlag = flag
		w.count++

		return true
	}

	flags := (w.pendFlag << 4) | (flag & 0x0F)
	if !w.stream.PutByte(flags) {
		return false
	}
	if !putDiff(w.stream, w.pendDiff, w.pendFlag) {
		return false
	}
	if !putDiff(w.stream, diff, flag) {
		return false
	}
	w.count++

	return true
}

// Commit flushes a trailing odd value, if any, padded with a synthetic
// zero diff and zero flag as its pair partner.
func (w *Writer) Commit() bool {
	if w.count%2 == 0 {
		return true
	}

	flags := w.pendFlag << 4
	if !w.stream.PutByte(flags) {
		return false
	}
	if !putDiff(w.stream, w.pendDiff, w.pendFlag) {
		return false
	}

	return putDiff(w.stream, 0, 0)
}

// PutSlice encodes every value in values then commits. This mirrors the
// slice-level compress_doubles entry point of the original algorithm,
// distinct from streaming Put/Commit.
func (w *Writer) PutSlice(values []float64) bool {
	for _, v := range values {
		if !w.Put(v) {
			return false
		}
	}

	return w.Commit()
}

// Reader decodes a stream produced by Writer, one value per Next call.
type Reader struct {
	stream    *bytestream.Reader
	pred      predictor.Predictor
	flagsByte byte
	index     int
}

// NewReader returns a Reader over stream, seeded with a fresh FCM predictor
// that must observe the exact same sequence of decoded values as the
// writer's predictor did of encoded ones.
func NewReader(stream *bytestream.Reader) *Reader {
	return &Reader{stream: stream, pred: predictor.NewFCM()}
}

// Next decodes and returns the next value. ok is false if the stream is
// exhausted or malformed.
func (r *Reader) Next() (float64, bool) {
	var flag byte
	if r.index%2 == 0 {
		b, ok := r.stream.ReadByte()
		if !ok {
			return 0, false
		}
		r.flagsByte = b
		flag = b >> 4
	} else {
		flag = r.flagsByte & 0x0F
	}
	r.index++

	diff, ok := readDiff(r.stream, flag)
	if !ok {
		return 0, false
	}

	predicted := r.pred.PredictNext()
	bitsVal := predicted ^ diff
	r.pred.Update(bitsVal)

	return math.Float64frombits(bitsVal), true
}

// DecodeSlice decodes exactly n values, returning false if the stream runs
// out early. When the last value decoded is the first of its pair, it also
// consumes the synthetic padding diff Commit wrote after it, so a missing
// padding byte is reported as a short stream.
func (r *Reader) DecodeSlice(n int) ([]float64, bool) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, ok := r.Next()
		if !ok {
			return nil, false
		}
		out[i] = v
	}

	if r.index%2 == 1 {
		if _, ok := readDiff(r.stream, r.flagsByte&0x0F); !ok {
			return nil, false
		}
		r.index++
	}

	return out, true
}
