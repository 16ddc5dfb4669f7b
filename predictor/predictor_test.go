package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCM_ZeroInitialized(t *testing.T) {
	p := NewFCM()
	assert.Equal(t, uint64(0), p.PredictNext())
}

func TestFCM_PredictsLastStoredValueAtHash(t *testing.T) {
	p := NewFCM()
	p.Update(0xdeadbeef)

	// 0xdeadbeef>>48 is 0, so the hash stays on slot 0 and the prediction
	// is the value just stored there.
	assert.Equal(t, uint64(0xdeadbeef), p.PredictNext())

	// A repeated identical stream must reproduce the same prediction sequence.
	p2 := NewFCM()
	p2.Update(0xdeadbeef)
	assert.Equal(t, p.PredictNext(), p2.PredictNext())
}

func TestFCM_ConstantSequenceConverges(t *testing.T) {
	p := NewFCM()
	for i := 0; i < 8; i++ {
		p.Update(42)
	}
	require.Equal(t, uint64(42), p.PredictNext())
}

func TestDFCM_ZeroInitialized(t *testing.T) {
	p := NewDFCM()
	assert.Equal(t, uint64(0), p.PredictNext())
}

func TestDFCM_ConstantDeltaConverges(t *testing.T) {
	p := NewDFCM()
	v := uint64(100)
	for i := 0; i < 8; i++ {
		p.Update(v)
		v += 10
	}
	// delta has stabilized at 10, last value is v-10; prediction should be v.
	assert.Equal(t, v, p.PredictNext())
}

func TestPredictorAgreement_EncoderDecoderInSync(t *testing.T) {
	// Feeding identical sequences into two independently constructed
	// predictors must yield identical predictions at every step.
	seq := []uint64{1, 1, 2, 3, 5, 8, 13, 21, 0, 0xffffffffffffffff}

	enc := NewFCM()
	dec := NewFCM()
	for _, v := range seq {
		require.Equal(t, enc.PredictNext(), dec.PredictNext())
		enc.Update(v)
		dec.Update(v)
	}
}
