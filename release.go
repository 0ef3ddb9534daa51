package escrow

import (
	"context"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/token"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
	"github.com/xraph/escrow/withdrawal"
)

// WithdrawOpts tunes a single withdrawal.
type WithdrawOpts struct {
	// MaxAmount caps the amount released by this call.
	MaxAmount *uint64
}

// Withdrawal is the outcome of a successful Withdraw.
type Withdrawal struct {
	Account *account.Account
	Quote   withdrawal.Quote
	Record  *transfer.Record
}

// ──────────────────────────────────────────────────
// Withdrawals
// ──────────────────────────────────────────────────

// Withdraw releases everything the schedule has earned and not yet
// released, subject to rounding, the caller's cap and the asset minimum.
//
// A releasable amount under the minimum is refused with ErrBelowMinimum
// and recorded as dust; it stays owed and is picked up by a later call.
// The minimum is waived for the final payout that drains the account.
func (e *Engine) Withdraw(ctx context.Context, accountID id.AccountID, signer string, opts WithdrawOpts) (*Withdrawal, error) {
	const op = "withdraw"

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
	if a.AutoClosed(now) {
		return nil, e.fail(ctx, op, accountID, ErrExcessivePause)
	}
	if err := a.Require(op, account.StatusActive, account.StatusFunded); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}
	if a.Expired(now) {
		return nil, e.fail(ctx, op, accountID, ErrExpired, "expires_at", *a.ExpiresAt)
	}
	if !a.Authority.CanWithdraw(signer, a.Parties()) {
		return nil, e.fail(ctx, op, accountID, ErrUnauthorized,
			"signer", signer, "authority", a.Authority.String())
	}
	if a.Drained() {
		return nil, e.fail(ctx, op, accountID, ErrNoFunds,
			"released", a.ReleasedAmount, "total", a.TotalAmount)
	}

	q, err := e.quote(ctx, a, now, opts.MaxAmount)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "schedule", a.Schedule.Kind)
	}
	if q.Earned == 0 && notStarted(a, now) {
		start, _, _ := a.Schedule.Window()
		return nil, e.fail(ctx, op, accountID, ErrNotStarted, "start", start)
	}
	if q.Available == 0 {
		return nil, e.fail(ctx, op, accountID, ErrNothingAvailable,
			"earned", q.Earned, "released", a.ReleasedAmount)
	}
	if q.BelowMinimum && !finalPayout(a, q) {
		return nil, e.recordDust(ctx, op, a, q, now, slot)
	}

	if err := e.frozen(ctx, a.Asset, a.Beneficiary, a.VaultAddress()); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	balance, err := e.tokens.Balance(ctx, a.Asset, a.VaultAddress())
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	if balance < q.Amount {
		return nil, e.fail(ctx, op, accountID, ErrInsufficientFunds,
			"vault_balance", balance, "amount", q.Amount)
	}

	next := a.Clone()
	released, err := types.Add(next.ReleasedAmount, q.Amount)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "amount", q.Amount)
	}
	next.ReleasedAmount = released
	next.AccumulatedDust = q.DustAfter(a.AccumulatedDust)
	if released == next.TotalAmount {
		if err := next.Transition(account.StatusCompleted); err != nil {
			return nil, e.fail(ctx, op, accountID, err)
		}
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}

	receipt, err := e.tokens.Transfer(ctx, token.Transfer{
		Asset:     a.Asset,
		From:      a.VaultAddress(),
		To:        a.Beneficiary,
		Amount:    q.Amount,
		Authority: vaultAuthority(a),
		Memo:      "escrow release " + a.ID.String(),
	})
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "amount", q.Amount)
	}

	rec := e.newRecord(next, transfer.KindWithdrawal, q.Amount, a.VaultAddress(), a.Beneficiary, signer, receipt, now, slot)
	next.LastOperationSlot = slot
	next.TouchAt(now)
	if err := e.commit(ctx, op, next, receipt, rec); err != nil {
		return nil, err
	}

	e.logger.Info("escrow withdrawal",
		"account_id", next.ID.String(),
		"amount", q.Amount,
		"earned", q.Earned,
		"released", next.ReleasedAmount,
		"remainder", q.Remainder,
		"slot", slot,
	)
	e.plugins.EmitWithdrawal(ctx, next, rec)
	e.emitStatus(ctx, next, a.Status)
	return &Withdrawal{Account: next, Quote: q, Record: rec}, nil
}

// recordDust persists the outstanding sub-minimum amount and returns the
// below-minimum error. Nothing is transferred.
func (e *Engine) recordDust(ctx context.Context, op string, a *account.Account, q withdrawal.Quote, now time.Time, slot uint64) error {
	dust := q.NextDust(a.AccumulatedDust)
	if dust != a.AccumulatedDust {
		next := a.Clone()
		next.AccumulatedDust = dust
		next.LastOperationSlot = slot
		next.TouchAt(now)
		if err := e.commit(ctx, op, next, token.Receipt{}); err != nil {
			return err
		}
		a = next
	}

	e.logger.Debug("escrow withdrawal below minimum",
		"account_id", a.ID.String(),
		"amount", q.Amount,
		"minimum", q.Minimum,
		"dust", dust,
	)
	e.plugins.EmitBelowMinimum(ctx, a, dust, q.Minimum)
	return e.fail(ctx, op, a.ID, ErrBelowMinimum,
		"amount", q.Amount, "minimum", q.Minimum, "dust", dust, "earned", q.Earned)
}

// Available returns what a withdrawal would release right now, without
// checking the signer or moving anything.
func (e *Engine) Available(ctx context.Context, accountID id.AccountID) (withdrawal.Quote, error) {
	const op = "available"

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return withdrawal.Quote{}, e.fail(ctx, op, accountID, err)
	}
	q, err := e.quote(ctx, a, e.clock.Now(), nil)
	if err != nil {
		return withdrawal.Quote{}, e.fail(ctx, op, accountID, err, "schedule", a.Schedule.Kind)
	}
	return q, nil
}

// Earned returns the cumulative amount the account's schedule has earned at
// the current, pause-adjusted instant.
func (e *Engine) Earned(ctx context.Context, accountID id.AccountID) (uint64, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, e.fail(ctx, "earned", accountID, err)
	}
	earned, err := a.Schedule.Earned(a.TotalAmount, a.Pause.Timeline(e.clock.Now()))
	if err != nil {
		return 0, e.fail(ctx, "earned", accountID, err, "schedule", a.Schedule.Kind)
	}
	return earned, nil
}

// quote evaluates the schedule at now and applies the withdrawal policy.
// Releases are additionally capped by what has actually been deposited.
func (e *Engine) quote(ctx context.Context, a *account.Account, now time.Time, maxAmount *uint64) (withdrawal.Quote, error) {
	earned, err := a.Schedule.Earned(a.TotalAmount, a.Pause.Timeline(now))
	if err != nil {
		return withdrawal.Quote{}, err
	}
	meta, err := e.assets.Lookup(ctx, a.Asset)
	if err != nil {
		return withdrawal.Quote{}, err
	}

	out, err := types.Add(a.ReleasedAmount, a.RefundedAmount)
	if err != nil {
		return withdrawal.Quote{}, err
	}
	limit := a.FundedAmount - min(a.FundedAmount, out)
	if maxAmount != nil {
		limit = min(limit, *maxAmount)
	}

	return withdrawal.Compute(withdrawal.Input{
		Earned:    earned,
		Released:  a.ReleasedAmount,
		Total:     a.TotalAmount,
		Locked:    a.LockedAmount,
		Decimals:  a.Decimals,
		Minimum:   e.thresholds.Minimum(a.Decimals, meta.MinWithdrawal),
		MaxAmount: &limit,
	})
}

// notStarted reports whether a time-based schedule's window lies entirely in
// the future.
func notStarted(a *account.Account, now time.Time) bool {
	start, _, ok := a.Schedule.Window()
	return ok && a.Pause.EffectiveNow(now).Before(start)
}

// finalPayout reports whether the quote drains everything still releasable.
func finalPayout(a *account.Account, q withdrawal.Quote) bool {
	return q.Amount > 0 && q.Amount == a.Withdrawable()
}

// ──────────────────────────────────────────────────
// Milestones
// ──────────────────────────────────────────────────

// CompleteMilestone marks a milestone complete. Only the milestone's
// approver may do so, and only once. The completed amount becomes
// withdrawable immediately.
func (e *Engine) CompleteMilestone(ctx context.Context, accountID id.AccountID, milestoneID id.MilestoneID, signer string) (*account.Account, error) {
	const op = "complete_milestone"

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
	if a.AutoClosed(now) {
		return nil, e.fail(ctx, op, accountID, ErrExcessivePause)
	}
	if err := a.Require(op, account.StatusActive, account.StatusFunded); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}
	if a.Expired(now) {
		return nil, e.fail(ctx, op, accountID, ErrExpired, "expires_at", *a.ExpiresAt)
	}

	next := a.Clone()
	cond, err := next.Schedule.Complete(milestoneID, signer, now)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "milestone_id", milestoneID.String(), "signer", signer)
	}
	if _, err := next.Schedule.Earned(next.TotalAmount, next.Pause.Timeline(now)); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "milestone_id", milestoneID.String())
	}
	next.LastOperationSlot = slot
	next.TouchAt(now)
	if err := e.commit(ctx, op, next, token.Receipt{}); err != nil {
		return nil, err
	}

	e.logger.Info("escrow milestone completed",
		"account_id", next.ID.String(),
		"milestone_id", cond.ID.String(),
		"amount", cond.Amount,
		"approver", cond.Approver,
	)
	e.plugins.EmitMilestoneCompleted(ctx, next, cond)
	return next, nil
}

// Milestone returns one milestone condition of an account.
func (e *Engine) Milestone(ctx context.Context, accountID id.AccountID, milestoneID id.MilestoneID) (schedule.Condition, error) {
	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return schedule.Condition{}, e.fail(ctx, "milestone", accountID, err)
	}
	c, ok := a.Schedule.Condition(milestoneID)
	if !ok {
		return schedule.Condition{}, e.fail(ctx, "milestone", accountID, ErrMilestoneNotFound,
			"milestone_id", milestoneID.String())
	}
	return c, nil
}
