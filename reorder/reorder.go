// Package reorder provides stable reordering of parallel (paramid,
// timestamp, value) triples by a caller-chosen key, used to reshuffle
// chunks between identifier-major and time-major orderings.
package reorder

import (
	"fmt"
	"sort"
)

// Triple is one (paramid, timestamp, value) row.
type Triple struct {
	ParamID   uint64
	Timestamp uint64
	Value     float64
}

// checkLengths validates that the three parallel slices agree in length.
func checkLengths(paramIDs []uint64, timestamps []uint64, values []float64) error {
	if len(paramIDs) != len(timestamps) || len(paramIDs) != len(values) {
		return fmt.Errorf("reorder: mismatched lengths: ids=%d ts=%d values=%d",
			len(paramIDs), len(timestamps), len(values))
	}

	return nil
}

func stableReorderBy(paramIDs []uint64, timestamps []uint64, values []float64, less func(i, j int) bool) ([]uint64, []uint64, []float64, error) {
	if err := checkLengths(paramIDs, timestamps, values); err != nil {
		return nil, nil, nil, err
	}

	n := len(paramIDs)
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	sort.SliceStable(index, func(a, b int) bool { return less(index[a], index[b]) })

	outIDs := make([]uint64, n)
	outTS := make([]uint64, n)
	outVals := make([]float64, n)
	for pos, ix := range index {
		outIDs[pos] = paramIDs[ix]
		outTS[pos] = timestamps[ix]
		outVals[pos] = values[ix]
	}

	return outIDs, outTS, outVals, nil
}

// ByTimestamp stably reorders the parallel triples by ascending timestamp.
func ByTimestamp(paramIDs []uint64, timestamps []uint64, values []float64) ([]uint64, []uint64, []float64, error) {
	return stableReorderBy(paramIDs, timestamps, values, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})
}

// ByParamID stably reorders the parallel triples by ascending paramid.
func ByParamID(paramIDs []uint64, timestamps []uint64, values []float64) ([]uint64, []uint64, []float64, error) {
	return stableReorderBy(paramIDs, timestamps, values, func(i, j int) bool {
		return paramIDs[i] < paramIDs[j]
	})
}
