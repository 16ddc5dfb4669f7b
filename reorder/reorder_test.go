package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByTimestamp_SortsAscending(t *testing.T) {
	ids := []uint64{1, 2, 3}
	ts := []uint64{30, 10, 20}
	vals := []float64{3, 1, 2}

	oIds, oTs, oVals, err := ByTimestamp(ids, ts, vals)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, oTs)
	assert.Equal(t, []uint64{2, 3, 1}, oIds)
	assert.Equal(t, []float64{1, 2, 3}, oVals)
}

func TestByParamID_SortsAscending(t *testing.T) {
	ids := []uint64{3, 1, 2}
	ts := []uint64{100, 200, 300}
	vals := []float64{1, 2, 3}

	oIds, oTs, oVals, err := ByParamID(ids, ts, vals)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, oIds)
	assert.Equal(t, []uint64{200, 300, 100}, oTs)
	assert.Equal(t, []float64{2, 3, 1}, oVals)
}

func TestReorder_MismatchedLengthsErrors(t *testing.T) {
	_, _, _, err := ByTimestamp([]uint64{1, 2}, []uint64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestReorder_StableOnTies(t *testing.T) {
	ids := []uint64{1, 2, 3}
	ts := []uint64{5, 5, 5}
	vals := []float64{1, 2, 3}

	oIds, _, _, err := ByTimestamp(ids, ts, vals)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, oIds, "equal keys must preserve original relative order")
}

func TestReorder_PreservesMultiset(t *testing.T) {
	ids := []uint64{5, 3, 9, 1}
	ts := []uint64{40, 20, 10, 30}
	vals := []float64{5, 3, 9, 1}

	byTS, err1 := reorderAsTripleSet(ids, ts, vals, ByTimestamp)
	require.NoError(t, err1)
	byID, err2 := reorderAsTripleSet(ids, ts, vals, ByParamID)
	require.NoError(t, err2)

	assert.ElementsMatch(t, byTS, byID)
}

func TestReorder_ComposingByParamIDThenByTimestampMatchesDirect(t *testing.T) {
	ids := []uint64{5, 3, 9, 1, 3}
	ts := []uint64{40, 20, 10, 30, 20}
	vals := []float64{5, 3, 9, 1, 3.5}

	pIds, pTs, pVals, err := ByParamID(ids, ts, vals)
	require.NoError(t, err)
	viaID, err := reorderAsTripleSet(pIds, pTs, pVals, ByTimestamp)
	require.NoError(t, err)

	direct, err := reorderAsTripleSet(ids, ts, vals, ByTimestamp)
	require.NoError(t, err)

	assert.Equal(t, direct, viaID)
}

func reorderAsTripleSet(ids, ts []uint64, vals []float64, fn func([]uint64, []uint64, []float64) ([]uint64, []uint64, []float64, error)) ([]Triple, error) {
	oIds, oTs, oVals, err := fn(ids, ts, vals)
	if err != nil {
		return nil, err
	}
	out := make([]Triple, len(oIds))
	for i := range oIds {
		out[i] = Triple{ParamID: oIds[i], Timestamp: oTs[i], Value: oVals[i]}
	}

	return out, nil
}
