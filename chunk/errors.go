package chunk

import (
	"errors"
	"fmt"
)

// Sentinel errors for store and validation failures.
var (
	// ErrInvalidAddress is returned when an address is empty or not hex.
	ErrInvalidAddress = errors.New("chunk: invalid address")

	// ErrUnsupportedAlgorithm is returned for an unknown hash algorithm.
	ErrUnsupportedAlgorithm = errors.New("chunk: unsupported hash algorithm")

	// ErrNotFound is returned by Update and Delete when no chunk exists
	// at the address. Read-style operations return an absent value instead.
	ErrNotFound = errors.New("chunk: not found")

	// ErrRangeInvalid is returned when a partial read requests a negative
	// offset or an offset past the end of the chunk.
	ErrRangeInvalid = errors.New("chunk: invalid read range")

	// ErrHashMismatch is returned when content does not hash to its address.
	ErrHashMismatch = errors.New("chunk: hash mismatch")

	// ErrCorruptedData is returned when a hash check fails on data read
	// back from a store, implicating the store rather than the caller.
	ErrCorruptedData = errors.New("chunk: corrupted data")

	// ErrSizeExceeded is returned when a chunk is larger than the
	// validator's configured limit.
	ErrSizeExceeded = errors.New("chunk: size limit exceeded")

	// ErrHandleClosed is returned when reading from a closed handle.
	ErrHandleClosed = errors.New("chunk: handle closed")
)

// HashMismatchError reports a failed digest comparison with both values.
type HashMismatchError struct {
	Expected string
	Actual   string
	OnRead   bool
}

// Error implements the error interface.
func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("chunk: hash mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// Unwrap returns ErrCorruptedData for read-side mismatches and
// ErrHashMismatch otherwise, so callers can distinguish who is at fault.
func (e *HashMismatchError) Unwrap() error {
	if e.OnRead {
		return ErrCorruptedData
	}
	return ErrHashMismatch
}
