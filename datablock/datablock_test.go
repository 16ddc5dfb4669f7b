package datablock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_SingleFullChunk(t *testing.T) {
	buf := make([]byte, 8192)
	w := NewWriter(buf, 42)
	for i := 0; i < ChunkSize; i++ {
		require.NoError(t, w.Put(uint64(1000+i*10), float64(i)*1.5))
	}
	n, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:n])
	assert.Equal(t, Version, r.Version())
	assert.Equal(t, uint64(42), r.ID())
	assert.Equal(t, ChunkSize, r.NElements())

	for i := 0; i < ChunkSize; i++ {
		ts, v, ok := r.Next()
		require.True(t, ok)
		assert.Equal(t, uint64(1000+i*10), ts)
		assert.Equal(t, float64(i)*1.5, v)
	}
	_, _, ok := r.Next()
	assert.False(t, ok)
}

func TestRoundTrip_PartialChunkGoesToTail(t *testing.T) {
	buf := make([]byte, 8192)
	w := NewWriter(buf, 7)
	n := ChunkSize/2 + 3
	for i := 0; i < n; i++ {
		require.NoError(t, w.Put(uint64(i), float64(i)))
	}
	size, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:size])
	assert.Equal(t, n, r.NElements())
	for i := 0; i < n; i++ {
		ts, v, ok := r.Next()
		require.True(t, ok)
		assert.Equal(t, uint64(i), ts)
		assert.Equal(t, float64(i), v)
	}
	_, _, ok := r.Next()
	assert.False(t, ok)
}

func TestRoundTrip_MultipleChunksPlusTail(t *testing.T) {
	buf := make([]byte, 65536)
	w := NewWriter(buf, 99)
	total := ChunkSize*3 + 17
	for i := 0; i < total; i++ {
		require.NoError(t, w.Put(uint64(i*5), float64(i)-0.25))
	}
	size, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:size])
	assert.Equal(t, total, r.NElements())
	for i := 0; i < total; i++ {
		ts, v, ok := r.Next()
		require.True(t, ok)
		assert.Equal(t, uint64(i*5), ts)
		assert.Equal(t, float64(i)-0.25, v)
	}
}

func TestCommit_BackpatchesHeaderConsistentWithElementCount(t *testing.T) {
	buf := make([]byte, 65536)
	w := NewWriter(buf, 1)
	total := ChunkSize*2 + 5
	for i := 0; i < total; i++ {
		require.NoError(t, w.Put(uint64(i), float64(i)))
	}
	size, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:size])
	_, nchunks, ntail, _ := r.header()
	assert.Equal(t, int(nchunks)*ChunkSize+int(ntail), total)
}

func TestBlockWithOverflow_CommitsWhatFitsAndStopsCleanly(t *testing.T) {
	buf := make([]byte, 256)
	w := NewWriter(buf, 3)

	put := 0
	for {
		err := w.Put(uint64(put), float64(put))
		if err != nil {
			break
		}
		put++
		if put > 100 {
			t.Fatal("writer accepted far more pairs than a 256-byte buffer can hold")
		}
	}
	require.Positive(t, put, "at least one pair should fit before overflow")

	size, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:size])
	assert.Equal(t, put, r.NElements())

	for i := 0; i < put; i++ {
		ts, v, ok := r.Next()
		require.True(t, ok)
		assert.Equal(t, uint64(i), ts)
		assert.Equal(t, float64(i), v)
	}
	_, _, ok := r.Next()
	assert.False(t, ok, "reader must report no_data once nelements() pairs are consumed")
}

func TestNewWriter_PanicsOnBufferTooSmallForHeader(t *testing.T) {
	assert.Panics(t, func() {
		NewWriter(make([]byte, 4), 1)
	})
}

func TestNewReader_PanicsOnBufferTooSmallForHeader(t *testing.T) {
	assert.Panics(t, func() {
		NewReader(make([]byte, 4))
	})
}

func TestRoomForChunk_FalseWhenMarginExceedsSpaceLeft(t *testing.T) {
	buf := make([]byte, HeaderSize+WorstCasePairMargin-1)
	w := NewWriter(buf, 1)
	assert.False(t, w.RoomForChunk())
}

func TestEmptyBlock_RoundTrips(t *testing.T) {
	buf := make([]byte, 64)
	w := NewWriter(buf, 5)
	size, err := w.Commit()
	require.NoError(t, err)

	r := NewReader(buf[:size])
	assert.Equal(t, 0, r.NElements())
	_, _, ok := r.Next()
	assert.False(t, ok)
}
