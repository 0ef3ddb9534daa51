package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/escrow/types"
)

// ErrInvariant reports a violated bookkeeping invariant.
var ErrInvariant = errors.New("escrow: account invariant violated")

// Remaining is the part of the pool not yet released.
func (a *Account) Remaining() uint64 {
	if a.ReleasedAmount >= a.TotalAmount {
		return 0
	}
	return a.TotalAmount - a.ReleasedAmount
}

// Withdrawable is the part of the pool that can still be released: the total
// less locked and released amounts.
func (a *Account) Withdrawable() uint64 {
	unlocked := a.TotalAmount - min(a.LockedAmount, a.TotalAmount)
	if a.ReleasedAmount >= unlocked {
		return 0
	}
	return unlocked - a.ReleasedAmount
}

// Drained reports whether nothing more can be released.
func (a *Account) Drained() bool {
	return a.Withdrawable() == 0
}

// Expired reports whether the hard cutoff has passed.
func (a *Account) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// WindowElapsed reports whether a purely time-based schedule has fully
// elapsed. Paused time, including an ongoing pause, extends the window.
func (a *Account) WindowElapsed(now time.Time) bool {
	_, end, ok := a.Schedule.Window()
	if !ok || len(a.Schedule.Conditions()) > 0 {
		return false
	}
	shift := types.SatAdd(a.Pause.TotalPaused, a.Pause.Current(now))
	return !now.Before(end.Add(shift))
}

// ScheduleDuration is the original length of the schedule window, zero for
// schedules without one.
func (a *Account) ScheduleDuration() time.Duration {
	start, end, ok := a.Schedule.Window()
	if !ok {
		return 0
	}
	return end.Sub(start)
}

// AutoClosed reports whether the ongoing pause has outlasted the original
// schedule window.
func (a *Account) AutoClosed(now time.Time) bool {
	return a.Pause.AutoClosed(now, a.ScheduleDuration())
}

// Ended reports whether the account may be closed: it expired, was fully
// released, its window elapsed, or it was auto-closed by an excessive pause.
func (a *Account) Ended(now time.Time) bool {
	return a.Expired(now) ||
		(a.TotalAmount > 0 && a.ReleasedAmount >= a.TotalAmount) ||
		a.WindowElapsed(now) ||
		a.AutoClosed(now)
}

// CheckInvariants verifies the amounts are mutually consistent.
func (a *Account) CheckInvariants() error {
	if a.ReleasedAmount > a.TotalAmount {
		return fmt.Errorf("%w: released %d > total %d", ErrInvariant, a.ReleasedAmount, a.TotalAmount)
	}
	if a.LockedAmount > a.TotalAmount {
		return fmt.Errorf("%w: locked %d > total %d", ErrInvariant, a.LockedAmount, a.TotalAmount)
	}
	if a.FundedAmount > a.TotalAmount {
		return fmt.Errorf("%w: funded %d > total %d", ErrInvariant, a.FundedAmount, a.TotalAmount)
	}
	out, err := types.Add(a.ReleasedAmount, a.RefundedAmount)
	if err != nil || out > a.FundedAmount {
		return fmt.Errorf("%w: released %d + refunded %d > funded %d",
			ErrInvariant, a.ReleasedAmount, a.RefundedAmount, a.FundedAmount)
	}
	return nil
}
