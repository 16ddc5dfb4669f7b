// Package predictor implements the finite-context value predictors used by
// the FCM XOR double codec.
//
// A predictor hashes recent output into a fixed-size table slot and offers
// the stored word back as its guess for the next value. Two variants are
// provided: FCM predicts the raw value, DFCM predicts the delta from the
// last observed value. Only FCM is wired into the double codec; DFCM is
// exposed for callers and tests that want to compare compression ratios.
package predictor

// N is the predictor table size. Must stay a power of two; mask depends on it.
const N = 1024

const mask = N - 1

// Predictor is a stateful predictor over a stream of uint64-encoded values.
type Predictor interface {
	// PredictNext returns the predictor's current guess for the next value
	// without consuming any input.
	PredictNext() uint64

	// Update folds an observed value into the predictor's state.
	Update(value uint64)
}

// FCM is the Finite Context Method predictor: it hashes a short history of
// recently observed 64-bit words into a table slot and predicts whatever
// value was last stored there.
type FCM struct {
	table    [N]uint64
	lastHash uint64
}

var _ Predictor = (*FCM)(nil)

// NewFCM returns a zero-initialized FCM predictor.
func NewFCM() *FCM {
	return &FCM{}
}

// PredictNext returns the value last written to the current hash slot, or 0
// if nothing has been written there yet.
func (p *FCM) PredictNext() uint64 {
	return p.table[p.lastHash]
}

// Update records value under the current hash slot and advances the hash.
func (p *FCM) Update(value uint64) {
	p.table[p.lastHash] = value
	p.lastHash = ((p.lastHash << 6) ^ (value >> 48)) & mask
}

// DFCM is the Differential FCM predictor: it predicts the delta from the
// last observed value rather than the value itself, which tracks slowly
// drifting series better than plain FCM.
type DFCM struct {
	table     [N]uint64
	lastHash  uint64
	lastValue uint64
}

var _ Predictor = (*DFCM)(nil)

// NewDFCM returns a zero-initialized DFCM predictor.
func NewDFCM() *DFCM {
	return &DFCM{}
}

// PredictNext returns the table's stored delta added to the last observed value.
func (p *DFCM) PredictNext() uint64 {
	return p.table[p.lastHash] + p.lastValue
}

// Update records the delta between value and the last observed value, then
// advances the hash and remembers value for the next prediction.
func (p *DFCM) Update(value uint64) {
	delta := value - p.lastValue
	p.table[p.lastHash] = delta
	p.lastHash = ((p.lastHash << 2) ^ (delta >> 40)) & mask
	p.lastValue = value
}
