// Package fcmerr defines the sentinel errors shared across the
// compression core: every failure a caller can act on collapses to one
// of these three.
package fcmerr

import "errors"

var (
	// ErrOverflow means a write could not complete because the
	// destination buffer ran out of space. The caller must discard the
	// buffer and retry with a larger one; partial bytes already written
	// are not valid output.
	ErrOverflow = errors.New("fcmerr: overflow")

	// ErrBadData means a decode failed against malformed or truncated
	// input.
	ErrBadData = errors.New("fcmerr: bad data")

	// ErrNoData means a reader has no more elements to yield. Unlike the
	// other two, this is an expected end-of-stream condition rather than
	// a failure.
	ErrNoData = errors.New("fcmerr: no data")
)
