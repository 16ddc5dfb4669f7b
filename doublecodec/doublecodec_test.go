package doublecodec

import (
	"math"
	"testing"

	"github.com/coreflux/fcmstore/bytestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeValues(t *testing.T, values []float64) []byte {
	t.Helper()
	buf := make([]byte, 4096)
	sw := bytestream.NewWriter(buf)
	w := NewWriter(sw)
	require.True(t, w.PutSlice(values))

	return buf[:sw.Size()]
}

func decodeValues(data []byte, n int) ([]float64, bool) {
	sr := bytestream.NewReader(data)
	r := NewReader(sr)

	return r.DecodeSlice(n)
}

func TestRoundTrip_Empty(t *testing.T) {
	data := encodeValues(t, nil)
	assert.Empty(t, data)
	got, ok := decodeValues(data, 0)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestRoundTrip_Single(t *testing.T) {
	data := encodeValues(t, []float64{1.0})
	got, ok := decodeValues(data, 1)
	require.True(t, ok)
	assert.Equal(t, []float64{1.0}, got)
}

func TestRoundTrip_TwoIdentical(t *testing.T) {
	data := encodeValues(t, []float64{42.0, 42.0})
	got, ok := decodeValues(data, 2)
	require.True(t, ok)
	assert.Equal(t, []float64{42.0, 42.0}, got)
}

func TestRoundTrip_ThreeLinear(t *testing.T) {
	data := encodeValues(t, []float64{1.0, 2.0, 3.0})
	got, ok := decodeValues(data, 3)
	require.True(t, ok)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, got)
}

func TestRoundTrip_SpecialValues(t *testing.T) {
	nan := math.Float64frombits(0x7FF8000000000001)
	values := []float64{nan, math.Inf(1), math.Copysign(0, -1), 0.0, math.Inf(-1)}
	data := encodeValues(t, values)
	got, ok := decodeValues(data, len(values))
	require.True(t, ok)

	for i, want := range values {
		assert.Equal(t, math.Float64bits(want), math.Float64bits(got[i]), "index %d", i)
	}
}

func TestRoundTrip_LargeRandomLikeSequence(t *testing.T) {
	values := make([]float64, 257) // odd length exercises the synthetic-pad path
	for i := range values {
		values[i] = math.Sin(float64(i)) * 1000
	}
	data := encodeValues(t, values)
	got, ok := decodeValues(data, len(values))
	require.True(t, ok)
	assert.Equal(t, values, got)
}

func TestOddTail_SyntheticPairDoesNotAffectLength(t *testing.T) {
	values := []float64{1.5, 2.5, 3.5}
	data := encodeValues(t, values)
	// one flag byte per pair: ceil(3/2) = 2 flag bytes, plus diff bytes.
	got, ok := decodeValues(data, 3)
	require.True(t, ok)
	assert.Len(t, got, 3)
	assert.Equal(t, values, got)
}

func TestPredictorAgreement_EncoderDecoderInStep(t *testing.T) {
	buf := make([]byte, 4096)
	sw := bytestream.NewWriter(buf)
	w := NewWriter(sw)

	values := []float64{10, 10, 10.5, 20, 20, 5, -5, 0}
	for _, v := range values {
		require.True(t, w.Put(v))
	}
	require.True(t, w.Commit())

	got, ok := decodeValues(buf[:sw.Size()], len(values))
	require.True(t, ok)
	assert.Equal(t, values, got)
}

func TestWriter_OverflowOnTinyBuffer(t *testing.T) {
	buf := make([]byte, 1)
	sw := bytestream.NewWriter(buf)
	w := NewWriter(sw)
	assert.False(t, w.PutSlice([]float64{1.0, 2.0, 3.0}))
}

func TestFlagFor_HighPrecisionVsLowPrecision(t *testing.T) {
	// A diff with nonzero bits only in the low byte should get a
	// trailing-orientation flag (bit 3 clear).
	lowFlag := flagFor(0x00000000000000FF)
	assert.Equal(t, byte(0), lowFlag&0x8)

	// A diff with nonzero bits only in the high byte should get a
	// leading-orientation flag (bit 3 set).
	highFlag := flagFor(0xFF00000000000000)
	assert.Equal(t, byte(0x8), highFlag&0x8)
}

func TestFlagFor_ZeroDiff(t *testing.T) {
	// all-zero diff: both leading and trailing counted as 64, ties go to
	// the trailing/high-precision branch per spec (tz > lz is false when equal).
	flag := flagFor(0)
	nbytes := int(flag&7) + 1
	assert.Equal(t, 1, nbytes)
}
