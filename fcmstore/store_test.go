package fcmstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreflux/fcmstore/endian"
	"github.com/coreflux/fcmstore/fcmerr"
	"github.com/coreflux/fcmstore/format"
)

func drain(t *testing.T, it *Iterator) []pair {
	t.Helper()

	var got []pair
	for {
		ts, v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, pair{ts: uint64(ts), value: v}) //nolint:gosec
	}

	return got
}

func TestStore_PutQuery_SinglePendingPoint(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	require.NoError(t, store.Put("cpu.usage", 1000, 42.5))

	it, err := store.Query("cpu.usage")
	require.NoError(t, err)

	got := drain(t, it)
	require.Len(t, got, 1)
	require.Equal(t, uint64(1000), got[0].ts)
	require.InEpsilon(t, 42.5, got[0].value, 1e-9)
}

func TestStore_PutQuery_ExactlyOneChunkFlushes(t *testing.T) {
	store, err := New(WithChunkSize(8))
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, store.Put("temp", int64(1000+i), float64(i)))
	}

	it, err := store.Query("temp")
	require.NoError(t, err)

	got := drain(t, it)
	require.Len(t, got, 8)
	for i, p := range got {
		require.Equal(t, uint64(1000+i), p.ts)
		require.Equal(t, float64(i), p.value)
	}
}

func TestStore_PutQuery_FlushedBlocksPlusPendingRemainder(t *testing.T) {
	store, err := New(WithChunkSize(4))
	require.NoError(t, err)

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, store.Put("disk.io", int64(i), float64(i)*1.5))
	}

	it, err := store.Query("disk.io")
	require.NoError(t, err)

	got := drain(t, it)
	require.Len(t, got, n)
	for i, p := range got {
		require.Equal(t, uint64(i), p.ts)
		require.Equal(t, float64(i)*1.5, p.value)
	}
}

func TestStore_MultipleSeriesAreIndependent(t *testing.T) {
	store, err := New(WithChunkSize(4))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Put("a", int64(i), float64(i)))
		require.NoError(t, store.Put("b", int64(i), float64(-i)))
	}

	itA, err := store.Query("a")
	require.NoError(t, err)
	gotA := drain(t, itA)
	require.Len(t, gotA, 6)

	itB, err := store.Query("b")
	require.NoError(t, err)
	gotB := drain(t, itB)
	require.Len(t, gotB, 6)

	for i := 0; i < 6; i++ {
		require.Equal(t, float64(i), gotA[i].value)
		require.Equal(t, float64(-i), gotB[i].value)
	}
}

func TestStore_Query_UnknownSeriesReturnsErrNoData(t *testing.T) {
	store, err := New()
	require.NoError(t, err)

	_, err = store.Query("never-written")
	require.ErrorIs(t, err, fcmerr.ErrNoData)
}

func TestStore_Flush_IsIdempotentAndOptional(t *testing.T) {
	store, err := New(WithChunkSize(128))
	require.NoError(t, err)

	require.NoError(t, store.Put("mem", 1, 1))
	require.NoError(t, store.Flush("mem"))
	require.NoError(t, store.Flush("mem")) // no pending left, must not panic or error

	it, err := store.Query("mem")
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 1)
}

func TestStore_WithCompression_RoundTrips(t *testing.T) {
	store, err := New(WithChunkSize(4), WithCompression(format.CompressionZstd))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Put("net.bytes", int64(i*1000), float64(i*i)))
	}

	it, err := store.Query("net.bytes")
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 12)
	for i, p := range got {
		require.Equal(t, uint64(i*1000), p.ts)
		require.Equal(t, float64(i*i), p.value)
	}
}

func TestStore_WithEndian_PinnedByteOrderRoundTrips(t *testing.T) {
	store, err := New(WithChunkSize(4), WithEndian(endian.GetBigEndianEngine()))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put("s", int64(i), float64(i)))
	}

	it, err := store.Query("s")
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 5)
}

func TestWithChunkSize_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := New(WithChunkSize(3))
	require.Error(t, err)
}

func TestWithChunkSize_RejectsZeroOrNegative(t *testing.T) {
	_, err := New(WithChunkSize(0))
	require.Error(t, err)

	_, err = New(WithChunkSize(-4))
	require.Error(t, err)
}

func TestWithEndian_RejectsNil(t *testing.T) {
	_, err := New(WithEndian(nil))
	require.Error(t, err)
}

func TestNew_DefaultsBatchAtDatablockChunkSize(t *testing.T) {
	store, err := New()
	require.NoError(t, err)
	require.Equal(t, 128, store.cfg.chunkSize)
}
