package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/token"
)

// UpdateOpts tunes a schedule replacement.
type UpdateOpts struct {
	// Dispute marks the account disputed. Only the arbiter may set it.
	Dispute bool
}

// ──────────────────────────────────────────────────
// Pause and resume
// ──────────────────────────────────────────────────

// Pause freezes release accrual for an active account. Only the depositor
// may pause. Pauses and resumes together are capped by the configured
// count, and an account paused for longer than its schedule window can no
// longer be paused or resumed.
func (e *Engine) Pause(ctx context.Context, accountID id.AccountID, signer string) (*account.Account, error) {
	const op = "pause"
	return e.togglePause(ctx, op, accountID, signer, true)
}

// Resume ends the current pause. Paused time pushes the schedule's deadline
// out and is excluded from the elapsed time release is computed on.
func (e *Engine) Resume(ctx context.Context, accountID id.AccountID, signer string) (*account.Account, error) {
	const op = "resume"
	return e.togglePause(ctx, op, accountID, signer, false)
}

func (e *Engine) togglePause(ctx context.Context, op string, accountID id.AccountID, signer string, pausing bool) (*account.Account, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	now, slot := e.clock.Now(), e.clock.Slot()
	if err := e.guardReplay(a, slot); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "slot", slot)
	}
	if signer != a.Depositor {
		return nil, e.fail(ctx, op, accountID, ErrUnauthorized, "signer", signer)
	}
	if err := a.Require(op, account.StatusActive, account.StatusPaused); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}
	cfg, err := e.config(ctx)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}

	next := a.Clone()
	pausedFor := a.Pause.Current(now)
	window := a.ScheduleDuration()
	target := account.StatusActive
	if pausing {
		err = next.Pause.Pause(now, cfg.MaxPauseResumeCount, window)
		target = account.StatusPaused
	} else {
		err = next.Pause.Resume(now, cfg.MaxPauseResumeCount, window)
	}
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err,
			"count", a.Pause.Count, "cap", cfg.MaxPauseResumeCount, "paused_for", pausedFor)
	}
	if err := next.Transition(target); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	next.LastOperationSlot = slot
	next.TouchAt(now)
	if err := e.commit(ctx, op, next, token.Receipt{}); err != nil {
		return nil, err
	}

	e.logger.Info("escrow "+op,
		"account_id", next.ID.String(),
		"count", next.Pause.Count,
		"total_paused", next.Pause.TotalPaused,
		"slot", slot,
	)
	if pausing {
		e.plugins.EmitPaused(ctx, next)
	} else {
		e.plugins.EmitResumed(ctx, next, pausedFor)
	}
	e.emitStatus(ctx, next, a.Status)
	return next, nil
}

// ──────────────────────────────────────────────────
// Schedule replacement
// ──────────────────────────────────────────────────

// UpdateSchedule replaces an account's schedule. The depositor or the
// arbiter may call it; the new schedule is validated like a new one and may
// not earn less than has already been released. With opts.Dispute the
// arbiter also moves the account to disputed, after which only Close by
// external resolution applies.
func (e *Engine) UpdateSchedule(ctx context.Context, accountID id.AccountID, signer string, sched schedule.Schedule, opts UpdateOpts) (*account.Account, error) {
	const op = "update_schedule"

	unlock := e.locks.lock(accountID)
	defer unlock()

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	now, slot := e.clock.Now(), e.clock.Slot()
	if err := e.guardReplay(a, slot); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "slot", slot)
	}
	cfg, err := e.config(ctx)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	if cfg.Halted {
		return nil, e.fail(ctx, op, accountID, ErrHalted)
	}
	if a.AutoClosed(now) {
		return nil, e.fail(ctx, op, accountID, ErrExcessivePause)
	}
	isArbiter := a.Arbiter != "" && signer == a.Arbiter
	if signer == "" || (signer != a.Depositor && !isArbiter) {
		return nil, e.fail(ctx, op, accountID, ErrUnauthorized, "signer", signer)
	}
	if opts.Dispute && !isArbiter {
		return nil, e.fail(ctx, op, accountID, ErrUnauthorized, "signer", signer, "dispute", true)
	}
	if err := a.Require(op, account.StatusActive, account.StatusFunded, account.StatusPaused); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}

	replacement := sched.Clone()
	replacement.AssignIDs()
	if err := replacement.Validate(a.TotalAmount, cfg.Limits()); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "schedule", replacement.Kind)
	}
	if err := keepsReleased(replacement, a, now); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "released", a.ReleasedAmount)
	}

	next := a.Clone()
	next.Schedule = replacement
	if opts.Dispute {
		if err := next.Transition(account.StatusDisputed); err != nil {
			return nil, e.fail(ctx, op, accountID, err)
		}
	}
	next.LastOperationSlot = slot
	next.TouchAt(now)
	if err := e.commit(ctx, op, next, token.Receipt{}); err != nil {
		return nil, err
	}

	e.logger.Info("escrow schedule updated",
		"account_id", next.ID.String(),
		"previous", a.Schedule.Kind,
		"schedule", next.Schedule.Kind,
		"signer", signer,
		"dispute", opts.Dispute,
	)
	e.plugins.EmitScheduleUpdated(ctx, next, a.Schedule)
	e.emitStatus(ctx, next, a.Status)
	return next, nil
}

// keepsReleased rejects a schedule that would have earned less than is
// already released. Custom schedules are not evaluated.
func keepsReleased(s schedule.Schedule, a *account.Account, now time.Time) error {
	if s.Kind == schedule.KindCustom {
		return nil
	}
	earned, err := s.Earned(a.TotalAmount, a.Pause.Timeline(now))
	if err != nil {
		return err
	}
	if earned < a.ReleasedAmount {
		return fmt.Errorf("%w: replacement earns %d, %d already released",
			ErrInvalidSchedule, earned, a.ReleasedAmount)
	}
	return nil
}
