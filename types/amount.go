package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
)

// Amount is a signed 128-bit integer in the token's base unit.
// All arithmetic is integer-only and overflow-checked — no floating point,
// no rounding. The zero value is the amount 0.
//
// Amounts are stored as two 64-bit words and serialized as decimal strings,
// since 128-bit values do not survive a round trip through float64-based
// JSON numbers.
type Amount struct {
	hi int64
	lo uint64
}

// Arithmetic failure sentinels.
var (
	ErrAmountOverflow = errors.New("types: amount overflow")
	ErrInvalidAmount  = errors.New("types: invalid amount")
)

var (
	maxI128   = bigFromParts(^uint64(0)>>1, ^uint64(0))
	minI128   = new(big.Int).Neg(new(big.Int).Add(maxI128, big.NewInt(1)))
	twoPow128 = new(big.Int).Lsh(big.NewInt(1), 128)
	mask128   = new(big.Int).Sub(twoPow128, big.NewInt(1))
	mask64    = new(big.Int).SetUint64(^uint64(0))
)

func bigFromParts(hi, lo uint64) *big.Int {
	b := new(big.Int).SetUint64(hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(lo))
}

// NewAmount creates an Amount from an int64 value.
func NewAmount(v int64) Amount {
	a := Amount{lo: uint64(v)}
	if v < 0 {
		a.hi = -1
	}
	return a
}

// ParseAmount parses a decimal string (optionally signed) into an Amount.
// The value must fit in a signed 128-bit integer.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return amountFromBig(b)
}

// MustParseAmount is like ParseAmount but panics on error.
// Use for hardcoded literals.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("types: must parse amount %q: %v", s, err))
	}
	return a
}

func amountFromBig(b *big.Int) (Amount, error) {
	if b.Cmp(maxI128) > 0 || b.Cmp(minI128) < 0 {
		return Amount{}, ErrAmountOverflow
	}
	// Two's complement representation of b modulo 2^128.
	m := new(big.Int).And(new(big.Int).Add(b, twoPow128), mask128)
	lo := new(big.Int).And(m, mask64).Uint64()
	hi := new(big.Int).Rsh(m, 64).Uint64()
	return Amount{hi: int64(hi), lo: lo}, nil
}

func (a Amount) bigInt() *big.Int {
	hi := new(big.Int).SetInt64(a.hi)
	hi.Lsh(hi, 64)
	return hi.Add(hi, new(big.Int).SetUint64(a.lo))
}

// Arithmetic operations

// Add returns a + b, or ErrAmountOverflow if the sum does not fit in i128.
func (a Amount) Add(b Amount) (Amount, error) {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi := uint64(a.hi) + uint64(b.hi) + carry
	sum := Amount{hi: int64(hi), lo: lo}
	// Overflow iff the operands share a sign and the result sign differs.
	if (a.hi < 0) == (b.hi < 0) && (sum.hi < 0) != (a.hi < 0) {
		return Amount{}, ErrAmountOverflow
	}
	return sum, nil
}

// Sub returns a - b, or ErrAmountOverflow on underflow.
func (a Amount) Sub(b Amount) (Amount, error) {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi := uint64(a.hi) - uint64(b.hi) - borrow
	diff := Amount{hi: int64(hi), lo: lo}
	// Overflow iff the operands have different signs and the result sign
	// differs from the minuend's.
	if (a.hi < 0) != (b.hi < 0) && (diff.hi < 0) != (a.hi < 0) {
		return Amount{}, ErrAmountOverflow
	}
	return diff, nil
}

// Neg returns -a. Negating the minimum i128 value overflows.
func (a Amount) Neg() (Amount, error) {
	return Amount{}.Sub(a)
}

// Comparison methods

// Cmp returns -1 if a < b, 0 if a == b, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// Sign returns -1, 0, or +1 depending on the sign of a.
func (a Amount) Sign() int {
	if a.hi < 0 {
		return -1
	}
	if a.hi == 0 && a.lo == 0 {
		return 0
	}
	return 1
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.hi == 0 && a.lo == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.Sign() > 0 }

// IsNegative returns true if the amount is less than zero.
func (a Amount) IsNegative() bool { return a.Sign() < 0 }

// Equal returns true if both amounts are equal.
func (a Amount) Equal(b Amount) bool { return a == b }

// LessThan returns true if a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThan returns true if a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.Cmp(b) > 0 }

// String returns the decimal representation.
func (a Amount) String() string {
	return a.bigInt().String()
}

// MarshalJSON implements json.Marshaler. Amounts serialize as decimal
// strings.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler. It accepts a decimal string
// or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Fall back to a bare number.
		s = string(data)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts persist as decimal strings.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		return a.Scan(string(v))
	case int64:
		*a = NewAmount(v)
		return nil
	case nil:
		*a = Amount{}
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

// SumAmounts adds the given amounts, failing on overflow.
func SumAmounts(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
