package u256

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Decimal returns the storage form: an arbitrary-precision decimal with scale 0
func (u Uint256) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(u.v.ToBig(), 0)
}

// FromDecimal converts a stored decimal back to a Uint256.
// Values such as 123.000 are accepted because the fractional remainder is zero.
func FromDecimal(d decimal.Decimal) (Uint256, error) {
	if !d.IsInteger() {
		return Uint256{}, fmt.Errorf("%w: %s", ErrNonIntegerValue, d.String())
	}
	if d.Sign() < 0 {
		return Uint256{}, fmt.Errorf("%w: %s", ErrNegativeValue, d.String())
	}
	return FromBig(d.BigInt())
}

// ParseDecimal parses a decimal literal (optionally signed, optionally with a
// fractional part) and converts it with FromDecimal.
func ParseDecimal(s string) (Uint256, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Uint256{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return FromDecimal(d)
}

// NumericValue implements pgtype.NumericValuer so a Uint256 binds directly to a
// NUMERIC parameter.
func (u Uint256) NumericValue() (pgtype.Numeric, error) {
	return pgtype.Numeric{Int: u.v.ToBig(), Exp: 0, Valid: true}, nil
}

// ScanNumeric implements pgtype.NumericScanner. NULL, NaN and infinities are
// rejected; nullable columns scan into **Uint256 instead.
func (u *Uint256) ScanNumeric(n pgtype.Numeric) error {
	if !n.Valid {
		return fmt.Errorf("%w: cannot scan NULL into Uint256", ErrMalformedInput)
	}
	if n.NaN {
		return fmt.Errorf("%w: NaN", ErrNonIntegerValue)
	}
	if n.InfinityModifier != pgtype.Finite {
		return fmt.Errorf("%w: infinity", ErrValueOutOfRange)
	}
	coef := n.Int
	if coef == nil {
		coef = new(big.Int)
	}
	v, err := FromDecimal(decimal.NewFromBigInt(coef, n.Exp))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
