// Package u256 converts 256-bit unsigned integers between their text forms
// (decimal and 0x-prefixed hex) and their storage form (NUMERIC with scale 0)
// without loss of precision.
package u256

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// maxBytes is the widest payload a Uint256 can hold
const maxBytes = 32

// Uint256 is an unsigned integer in [0, 2^256-1].
// The zero value is 0 and is ready to use.
type Uint256 struct {
	v uint256.Int
}

// Zero returns 0
func Zero() Uint256 {
	return Uint256{}
}

// Max returns 2^256-1
func Max() Uint256 {
	var u Uint256
	u.v.SetAllOne()
	return u
}

// FromUint64 returns x as a Uint256
func FromUint64(x uint64) Uint256 {
	var u Uint256
	u.v.SetUint64(x)
	return u
}

// FromBig converts a big.Int, rejecting negative and oversized values
func FromBig(b *big.Int) (Uint256, error) {
	if b == nil {
		return Uint256{}, nil
	}
	if b.Sign() < 0 {
		return Uint256{}, fmt.Errorf("%w: %s", ErrNegativeValue, b.String())
	}
	if b.BitLen() > 256 {
		return Uint256{}, fmt.Errorf("%w: %s", ErrValueOutOfRange, b.String())
	}
	var u Uint256
	u.v.SetFromBig(b)
	return u, nil
}

// FromBytes interprets b as a big-endian integer of at most 32 bytes
func FromBytes(b []byte) (Uint256, error) {
	if len(b) > maxBytes {
		return Uint256{}, fmt.Errorf("%w: %d bytes", ErrValueOutOfRange, len(b))
	}
	var u Uint256
	u.v.SetBytes(b)
	return u, nil
}

// Parse accepts a decimal string or a 0x/0X prefixed hex string.
// Hex digits are case-insensitive and an odd number of digits is padded
// with a leading zero nibble. Surrounding whitespace is ignored.
func Parse(s string) (Uint256, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Uint256{}, fmt.Errorf("%w: empty string", ErrMalformedInput)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return parseHex(s[2:])
	}
	return parseDecimal(s)
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Uint256 {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func parseHex(digits string) (Uint256, error) {
	if digits == "" {
		return Uint256{}, fmt.Errorf("%w: empty hex payload", ErrMalformedInput)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return Uint256{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(b) > maxBytes {
		return Uint256{}, fmt.Errorf("%w: hex payload is %d bytes", ErrValueOutOfRange, len(b))
	}
	var u Uint256
	u.v.SetBytes(b)
	return u, nil
}

func parseDecimal(s string) (Uint256, error) {
	digits := strings.TrimPrefix(s, "+")
	if digits == "" {
		return Uint256{}, fmt.Errorf("%w: %q", ErrMalformedInput, s)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Uint256{}, fmt.Errorf("%w: invalid decimal digit %q in %q", ErrMalformedInput, digits[i], s)
		}
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Uint256{}, fmt.Errorf("%w: %q", ErrMalformedInput, s)
	}
	return FromBig(b)
}

// String renders the canonical decimal form
func (u Uint256) String() string {
	return u.v.Dec()
}

// Hex renders the canonical minimal-width hex form. Zero renders as 0x0.
func (u Uint256) Hex() string {
	return u.v.Hex()
}

// Big returns a new big.Int holding the value
func (u Uint256) Big() *big.Int {
	return u.v.ToBig()
}

// Bytes32 returns the big-endian 32-byte encoding
func (u Uint256) Bytes32() [32]byte {
	return u.v.Bytes32()
}

// Uint64 returns the value and whether it fits in a uint64
func (u Uint256) Uint64() (uint64, bool) {
	return u.v.Uint64(), u.v.IsUint64()
}

// IsZero reports whether the value is 0
func (u Uint256) IsZero() bool {
	return u.v.IsZero()
}

// Cmp compares u and other and returns -1, 0 or +1
func (u Uint256) Cmp(other Uint256) int {
	return u.v.Cmp(&other.v)
}

// Eq reports whether u and other hold the same integer
func (u Uint256) Eq(other Uint256) bool {
	return u.v.Eq(&other.v)
}

// CacheKey derives a cache key from the canonical hex form, so decimal and hex
// inputs for the same integer share one key.
func CacheKey(prefix string, u Uint256) string {
	return prefix + ":" + u.Hex()
}
