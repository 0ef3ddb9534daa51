// Package withdrawal turns an earned amount into the amount that may be
// transferred now: it caps by what is left, rounds to the asset's
// transferable precision and applies minimum-withdrawal and dust policy.
package withdrawal

import (
	"errors"
	"fmt"

	"github.com/xraph/escrow/types"
)

var (
	ErrBelowMinimum     = errors.New("escrow: amount below minimum withdrawal")
	ErrInconsistent     = errors.New("escrow: released amount exceeds earned amount")
	ErrNothingAvailable = errors.New("escrow: nothing available to withdraw")
)

// CanonicalDecimals is the precision amounts are truncated to for assets
// with more decimals.
const CanonicalDecimals uint8 = 6

// RoundDown truncates amount to CanonicalDecimals of precision.
func RoundDown(amount uint64, decimals uint8) uint64 {
	if decimals <= CanonicalDecimals {
		return amount
	}
	factor, err := types.Pow10(decimals - CanonicalDecimals)
	if err != nil {
		return 0
	}
	return amount / factor * factor
}

// DustThreshold is the smallest amount worth transferring for an asset with
// the given decimals.
func DustThreshold(decimals uint8) uint64 {
	switch decimals {
	case 6:
		return 100
	case 9:
		return 100_000
	}
	if decimals < 4 {
		return 1
	}
	t, err := types.Pow10(decimals - 4)
	if err != nil {
		return ^uint64(0)
	}
	return t
}

// IsDust reports whether a non-zero amount is below the dust threshold.
func IsDust(amount uint64, decimals uint8) bool {
	return amount > 0 && amount < DustThreshold(decimals)
}

// Thresholds configures minimum withdrawals per asset precision.
type Thresholds struct {
	// Minimums maps asset decimals to a minimum withdrawal in base units.
	Minimums map[uint8]uint64 `json:"minimums" yaml:"minimums"`
}

// DefaultThresholds returns ten whole units for 6-decimal assets and
// 0.01 units for 9-decimal assets.
func DefaultThresholds() Thresholds {
	return Thresholds{Minimums: map[uint8]uint64{
		6: 10_000_000,
		9: 10_000_000,
	}}
}

// Minimum returns the minimum withdrawal for an asset. A non-zero override
// from the asset's own metadata wins; decimals without a configured minimum
// fall back to the dust threshold.
func (t Thresholds) Minimum(decimals uint8, override uint64) uint64 {
	if override > 0 {
		return override
	}
	if m, ok := t.Minimums[decimals]; ok {
		return m
	}
	return DustThreshold(decimals)
}

// Input is everything Compute needs about an account.
type Input struct {
	Earned    uint64
	Released  uint64
	Total     uint64
	Locked    uint64
	Decimals  uint8
	Minimum   uint64
	MaxAmount *uint64
}

// Quote is the outcome of Compute.
type Quote struct {
	Earned uint64 `json:"earned"`
	// Owed is earned minus released before any cap.
	Owed uint64 `json:"owed"`
	// Available is Owed after the locked and caller caps.
	Available uint64 `json:"available"`
	// Amount is Available rounded down; the transferable amount.
	Amount uint64 `json:"amount"`
	// Remainder is the rounding remainder; it stays owed for the next call.
	Remainder    uint64 `json:"remainder"`
	Minimum      uint64 `json:"minimum"`
	BelowMinimum bool   `json:"below_minimum"`
}

// Compute derives the withdrawable amount. It never mutates anything: only
// an Amount that was actually transferred may later be added to the
// released total.
func Compute(in Input) (Quote, error) {
	owed, err := types.Sub(in.Earned, in.Released)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: released %d, earned %d", ErrInconsistent, in.Released, in.Earned)
	}

	withdrawable, err := types.Sub(in.Total, in.Locked)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: locked %d exceeds total %d", ErrInconsistent, in.Locked, in.Total)
	}
	headroom, err := types.Sub(withdrawable, in.Released)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: released %d exceeds unlocked %d", ErrInconsistent, in.Released, withdrawable)
	}

	available := min(owed, headroom)
	if in.MaxAmount != nil {
		available = min(available, *in.MaxAmount)
	}
	amount := RoundDown(available, in.Decimals)

	return Quote{
		Earned:       in.Earned,
		Owed:         owed,
		Available:    available,
		Amount:       amount,
		Remainder:    available - amount,
		Minimum:      in.Minimum,
		BelowMinimum: amount < in.Minimum,
	}, nil
}

// NextDust returns the dust balance to record after this quote was rejected
// as below the minimum. Dust tracks the outstanding sub-minimum amount: it
// never shrinks between successful withdrawals and never exceeds what is
// owed, so released plus dust stays within earned.
func (q Quote) NextDust(prev uint64) uint64 {
	return min(max(prev, q.Amount), q.Owed)
}

// DustAfter returns the dust balance to keep once q.Amount has been
// transferred: whatever part of prev is still owed.
func (q Quote) DustAfter(prev uint64) uint64 {
	return min(prev, q.Owed-min(q.Amount, q.Owed))
}
