package types

import (
	"math"
	"time"
)

// Time arithmetic in this package saturates instead of failing. Adversarial
// timestamps clamp to zero or to the representable bound.

// Elapsed returns to - from, or zero when to is before from.
func Elapsed(from, to time.Time) time.Duration {
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}

// SatSub returns a - b clamped at zero.
func SatSub(a, b time.Duration) time.Duration {
	if b >= a {
		return 0
	}
	return a - b
}

// SatAdd returns a + b clamped at the largest representable duration.
// Negative inputs are treated as zero.
func SatAdd(a, b time.Duration) time.Duration {
	a, b = max(a, 0), max(b, 0)
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// AddDuration returns a + b or ErrOverflow. Used where a duration is
// persisted as part of ledger state.
func AddDuration(a, b time.Duration) (time.Duration, error) {
	if a < 0 || b < 0 {
		return 0, ErrUnderflow
	}
	if a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Nanos returns d in nanoseconds, zero for negative durations.
func Nanos(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d)
}
