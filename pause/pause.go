// Package pause tracks the pause state of a release account and maps wall
// clock time onto the pause-adjusted timeline schedules are evaluated on.
//
// Time arithmetic here saturates. The only checked operation is the addition
// to the persisted paused total.
package pause

import (
	"errors"
	"time"

	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/types"
)

// DefaultCap bounds the number of pause and resume transitions per account.
const DefaultCap uint8 = 3

var (
	ErrAlreadyPaused  = errors.New("escrow: account already paused")
	ErrNotPaused      = errors.New("escrow: account not paused")
	ErrCapReached     = errors.New("escrow: pause/resume limit reached")
	ErrExcessivePause = errors.New("escrow: paused longer than the schedule duration")
)

// Ledger is the pause state of one account. Count includes both pauses and
// resumes.
type Ledger struct {
	Paused      bool          `json:"paused"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	TotalPaused time.Duration `json:"total_paused"`
	Count       uint8         `json:"count"`
}

// Pause starts a pause at now. window is the original schedule duration used
// for the auto-close check. A rejected call leaves the ledger unchanged.
func (l *Ledger) Pause(now time.Time, limit uint8, window time.Duration) error {
	if err := l.guard(now, limit, window); err != nil {
		return err
	}
	if l.Paused {
		return ErrAlreadyPaused
	}

	started := now.UTC()
	l.Paused = true
	l.StartedAt = &started
	l.Count++
	return nil
}

// Resume ends the current pause at now and folds its length into
// TotalPaused. A rejected call leaves the ledger unchanged.
func (l *Ledger) Resume(now time.Time, limit uint8, window time.Duration) error {
	if err := l.guard(now, limit, window); err != nil {
		return err
	}
	if !l.Paused {
		return ErrNotPaused
	}

	total, err := types.AddDuration(l.TotalPaused, l.Current(now))
	if err != nil {
		return err
	}

	l.TotalPaused = total
	l.Paused = false
	l.StartedAt = nil
	l.Count++
	return nil
}

func (l *Ledger) guard(now time.Time, limit uint8, window time.Duration) error {
	if l.AutoClosed(now, window) {
		return ErrExcessivePause
	}
	if l.Count >= limit {
		return ErrCapReached
	}
	return nil
}

// Current returns how long the ongoing pause has lasted at now, or zero when
// not paused.
func (l Ledger) Current(now time.Time) time.Duration {
	if !l.Paused || l.StartedAt == nil {
		return 0
	}
	return types.Elapsed(*l.StartedAt, now)
}

// AutoClosed reports whether the ongoing pause has outlasted the original
// schedule window. Such an account is forfeit and only Close may proceed.
// A zero window never auto-closes.
func (l Ledger) AutoClosed(now time.Time, window time.Duration) bool {
	return window > 0 && l.Current(now) > window
}

// EffectiveNow is the instant schedules are evaluated at: frozen at the start
// of the ongoing pause, otherwise now.
func (l Ledger) EffectiveNow(now time.Time) time.Time {
	if l.Paused && l.StartedAt != nil {
		return *l.StartedAt
	}
	return now
}

// EffectiveEnd pushes a deadline out by the accumulated paused time.
func (l Ledger) EffectiveEnd(end time.Time) time.Time {
	return end.Add(l.TotalPaused)
}

// Elapsed is the unpaused time since start, as counted toward release.
func (l Ledger) Elapsed(start, now time.Time) time.Duration {
	return types.SatSub(types.Elapsed(start, l.EffectiveNow(now)), l.TotalPaused)
}

// Timeline returns the pause-adjusted timeline for now.
func (l Ledger) Timeline(now time.Time) schedule.Timeline {
	return schedule.Timeline{Now: l.EffectiveNow(now), Paused: l.TotalPaused}
}

// Clone returns a copy that shares no pointers with l.
func (l Ledger) Clone() Ledger {
	if l.StartedAt != nil {
		at := *l.StartedAt
		l.StartedAt = &at
	}
	return l
}
