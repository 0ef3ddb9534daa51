package types

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Arithmetic errors. Amount arithmetic never wraps and never saturates.
var (
	ErrOverflow     = errors.New("escrow: arithmetic overflow")
	ErrUnderflow    = errors.New("escrow: arithmetic underflow")
	ErrDivideByZero = errors.New("escrow: division by zero")
	ErrPrecision    = errors.New("escrow: amount exceeds asset precision")
)

// Add returns a + b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a - b or ErrUnderflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// Sum adds every value with overflow checking.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		var err error
		if total, err = Add(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// MulDiv computes a*b/d truncating toward zero. The product is held in a
// 128-bit intermediate so only a quotient that does not fit in 64 bits
// overflows.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// Pow10 returns 10^n for n <= 19.
func Pow10(n uint8) (uint64, error) {
	if n > 19 {
		return 0, ErrOverflow
	}
	p := uint64(1)
	for range n {
		p *= 10
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Display units
// ──────────────────────────────────────────────────

// FormatUnits renders a base-unit amount as a decimal string with the
// asset's number of decimals, e.g. FormatUnits(1500000, 6) = "1.500000".
func FormatUnits(amount uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// ParseUnits converts a decimal display string into base units. Inputs with
// more fractional digits than the asset supports are rejected rather than
// rounded.
func ParseUnits(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("escrow: parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("escrow: parse amount %q: %w", s, ErrUnderflow)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("escrow: parse amount %q: %w", s, ErrPrecision)
	}
	bi := shifted.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("escrow: parse amount %q: %w", s, ErrOverflow)
	}
	return bi.Uint64(), nil
}
