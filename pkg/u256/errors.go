package u256

import "errors"

// Conversion errors. Callers match them with errors.Is; the returned error
// carries the offending input in its message.
var (
	// ErrMalformedInput indicates empty input or invalid digits
	ErrMalformedInput = errors.New("malformed uint256 input")

	// ErrNonIntegerValue indicates a decimal with a nonzero fractional remainder
	ErrNonIntegerValue = errors.New("non-integer value cannot be represented as uint256")

	// ErrNegativeValue indicates a decimal below zero
	ErrNegativeValue = errors.New("negative value cannot be represented as uint256")

	// ErrValueOutOfRange indicates a magnitude that needs more than 32 bytes
	ErrValueOutOfRange = errors.New("value exceeds 256 bits")
)
