package escrow

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/token"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// CreateInput describes a new release account.
type CreateInput struct {
	Depositor   string
	Beneficiary string
	// Arbiter is optional; it may replace the schedule and approve
	// arbiter-authority withdrawals.
	Arbiter     string
	Asset       string
	TotalAmount uint64
	Schedule    schedule.Schedule
	// Authority defaults to the beneficiary.
	Authority authority.Authority
	// ExpiresAt is an optional hard cutoff for withdrawals.
	ExpiresAt *time.Time
	Metadata  map[string]string
}

// Closure is the outcome of Close.
type Closure struct {
	Account *account.Account
	// Refund is nil when the vault held nothing.
	Refund *transfer.Record
}

// ──────────────────────────────────────────────────
// Account creation and funding
// ──────────────────────────────────────────────────

// CreateAccount validates the input against the engine configuration, opens
// the account's vault and persists the account as initialized. Funds move
// in with Deposit.
func (e *Engine) CreateAccount(ctx context.Context, in CreateInput) (*account.Account, error) {
	const op = "create_account"

	cfg, err := e.config(ctx)
	if err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	if cfg.Halted {
		return nil, e.fail(ctx, op, id.Nil, ErrHalted)
	}

	now := e.clock.Now()
	if err := validateCreate(in, now); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	if in.TotalAmount < cfg.MinEscrowAmount {
		return nil, e.fail(ctx, op, id.Nil, ErrBelowEscrowMin,
			"total_amount", in.TotalAmount, "minimum", cfg.MinEscrowAmount)
	}
	if in.ExpiresAt != nil && cfg.MaxEscrowDuration > 0 && in.ExpiresAt.Sub(now) > cfg.MaxEscrowDuration {
		return nil, e.fail(ctx, op, id.Nil, ErrDurationTooLong,
			"expires_at", *in.ExpiresAt, "max_duration", cfg.MaxEscrowDuration)
	}

	if err := e.network.Check(in.Asset); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err, "asset", in.Asset)
	}
	meta, err := e.assets.Lookup(ctx, in.Asset)
	if err != nil {
		return nil, e.fail(ctx, op, id.Nil, err, "asset", in.Asset)
	}
	if err := e.frozen(ctx, in.Asset, in.Depositor, in.Beneficiary); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err, "asset", in.Asset)
	}

	auth := in.Authority
	if auth.Kind == "" {
		auth = authority.Of(authority.Beneficiary)
	}
	parties := authority.Parties{Depositor: in.Depositor, Beneficiary: in.Beneficiary, Arbiter: in.Arbiter}
	if err := auth.Validate(parties); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err, "authority", auth.String())
	}

	sched := in.Schedule.Clone()
	sched.AssignIDs()
	if err := sched.Validate(in.TotalAmount, cfg.Limits()); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err, "schedule", sched.Kind, "total_amount", in.TotalAmount)
	}

	a := &account.Account{
		Entity:            types.NewEntityAt(now),
		ID:                id.NewAccountID(),
		Depositor:         in.Depositor,
		Beneficiary:       in.Beneficiary,
		Arbiter:           in.Arbiter,
		Asset:             in.Asset,
		Decimals:          meta.Decimals,
		Vault:             id.NewVaultID(),
		TotalAmount:       in.TotalAmount,
		Schedule:          sched,
		Authority:         auth,
		Status:            account.StatusInitialized,
		LastOperationSlot: 0,
		Metadata:          maps.Clone(in.Metadata),
	}
	if in.ExpiresAt != nil {
		at := in.ExpiresAt.UTC()
		a.ExpiresAt = &at
	}

	if err := e.tokens.OpenVault(ctx, a.Asset, a.VaultAddress(), a.VaultSigner()); err != nil {
		return nil, e.fail(ctx, op, a.ID, err, "vault", a.VaultAddress())
	}
	if err := e.store.CreateAccount(ctx, a); err != nil {
		return nil, e.fail(ctx, op, a.ID, err, "vault", a.VaultAddress())
	}

	e.logger.Info("escrow account created",
		"account_id", a.ID.String(),
		"asset", a.Asset,
		"total_amount", a.TotalAmount,
		"schedule", a.Schedule.Kind,
		"authority", a.Authority.String(),
	)
	e.plugins.EmitAccountCreated(ctx, a)
	return a, nil
}

func validateCreate(in CreateInput, now time.Time) error {
	var errs MultiError
	if in.Depositor == "" {
		errs.Add(ValidationError{Field: "depositor", Message: "is required"})
	}
	if in.Beneficiary == "" {
		errs.Add(ValidationError{Field: "beneficiary", Message: "is required"})
	}
	if in.Asset == "" {
		errs.Add(ValidationError{Field: "asset", Message: "is required"})
	}
	if in.TotalAmount == 0 {
		errs.Add(ErrZeroAmount)
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		errs.Add(fmt.Errorf("%w: %s", ErrInvalidExpiry, in.ExpiresAt.UTC().Format(time.RFC3339)))
	}
	return errs.Err()
}

// Deposit moves amount from the depositor into the account's vault. A
// deposit that completes funding activates the account; a partial one
// leaves it funded.
func (e *Engine) Deposit(ctx context.Context, accountID id.AccountID, signer string, amount uint64) (*account.Account, error) {
	const op = "deposit"

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
	if signer != a.Depositor {
		return nil, e.fail(ctx, op, accountID, ErrUnauthorized, "signer", signer)
	}
	if err := a.Require(op, account.StatusInitialized, account.StatusFunded); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}
	if amount == 0 {
		return nil, e.fail(ctx, op, accountID, ErrZeroAmount)
	}
	funded, err := types.Add(a.FundedAmount, amount)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "amount", amount)
	}
	if funded > a.TotalAmount {
		return nil, e.fail(ctx, op, accountID, ErrExceedsTotal,
			"amount", amount, "funded", a.FundedAmount, "total", a.TotalAmount)
	}
	if err := e.frozen(ctx, a.Asset, a.Depositor, a.VaultAddress()); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	balance, err := e.tokens.Balance(ctx, a.Asset, a.Depositor)
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	if balance < amount {
		return nil, e.fail(ctx, op, accountID, ErrInsufficientFunds, "balance", balance, "amount", amount)
	}

	next := a.Clone()
	next.FundedAmount = funded
	target := account.StatusFunded
	if funded == a.TotalAmount {
		target = account.StatusActive
	}
	if err := next.Transition(target); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}

	receipt, err := e.tokens.Transfer(ctx, token.Transfer{
		Asset:     a.Asset,
		From:      a.Depositor,
		To:        a.VaultAddress(),
		Amount:    amount,
		Authority: token.Self(a.Depositor),
		Memo:      "escrow deposit " + a.ID.String(),
	})
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err, "amount", amount)
	}

	rec := e.newRecord(next, transfer.KindDeposit, amount, a.Depositor, a.VaultAddress(), signer, receipt, now, slot)
	next.LastOperationSlot = slot
	next.TouchAt(now)
	if err := e.commit(ctx, op, next, receipt, rec); err != nil {
		return nil, err
	}

	e.logger.Info("escrow deposit",
		"account_id", next.ID.String(),
		"amount", amount,
		"funded", next.FundedAmount,
		"total", next.TotalAmount,
		"slot", slot,
	)
	e.plugins.EmitDeposit(ctx, next, rec)
	e.emitStatus(ctx, next, a.Status)
	return next, nil
}

// ──────────────────────────────────────────────────
// Closing
// ──────────────────────────────────────────────────

// Close refunds whatever the vault still holds to the depositor and closes
// the vault. The account must have ended: expired, fully released, past its
// window, or auto-closed by an excessive pause. An account that was never
// funded can be closed at any time. Fully released accounts stay completed;
// everything else becomes cancelled.
func (e *Engine) Close(ctx context.Context, accountID id.AccountID, signer string) (*Closure, error) {
	const op = "close"

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
	if err := a.Require(op,
		account.StatusInitialized, account.StatusFunded, account.StatusActive,
		account.StatusPaused, account.StatusCompleted,
	); err != nil {
		return nil, e.fail(ctx, op, accountID, err, "status", a.Status)
	}
	if a.FundedAmount > 0 && !a.Ended(now) {
		return nil, e.fail(ctx, op, accountID, ErrNotEnded,
			"released", a.ReleasedAmount, "total", a.TotalAmount)
	}

	balance, err := e.tokens.Balance(ctx, a.Asset, a.VaultAddress())
	if err != nil {
		return nil, e.fail(ctx, op, accountID, err)
	}

	next := a.Clone()
	var refund *transfer.Record
	if balance > 0 {
		outstanding := a.FundedAmount - min(a.FundedAmount, a.ReleasedAmount+a.RefundedAmount)
		refunded, err := types.Add(next.RefundedAmount, min(balance, outstanding))
		if err != nil {
			return nil, e.fail(ctx, op, accountID, err, "balance", balance)
		}
		next.RefundedAmount = refunded
		if err := next.CheckInvariants(); err != nil {
			return nil, e.fail(ctx, op, accountID, err)
		}

		receipt, err := e.tokens.Transfer(ctx, token.Transfer{
			Asset:     a.Asset,
			From:      a.VaultAddress(),
			To:        a.Depositor,
			Amount:    balance,
			Authority: vaultAuthority(a),
			Memo:      "escrow refund " + a.ID.String(),
		})
		if err != nil {
			return nil, e.fail(ctx, op, accountID, err, "amount", balance)
		}
		refund = e.newRecord(next, transfer.KindRefund, balance, a.VaultAddress(), a.Depositor, signer, receipt, now, slot)
	}

	if err := e.tokens.Close(ctx, a.Asset, a.VaultAddress(), a.Depositor, vaultAuthority(a)); err != nil {
		closeErr := e.fail(ctx, op, accountID, err, "vault", a.VaultAddress())
		// The refund already moved; record it so a retried Close only
		// closes the vault.
		if refund != nil {
			next.LastOperationSlot = slot
			next.TouchAt(now)
			if cerr := e.commit(ctx, op, next, token.Receipt{Reference: refund.Reference}, refund); cerr != nil {
				return nil, MultiError{Errors: []error{closeErr, cerr}}
			}
		}
		return nil, closeErr
	}

	if next.Status != account.StatusCompleted {
		if err := next.Transition(account.StatusCancelled); err != nil {
			return nil, e.fail(ctx, op, accountID, err)
		}
	}
	next.LastOperationSlot = slot
	next.TouchAt(now)

	var records []*transfer.Record
	reference := ""
	if refund != nil {
		records = append(records, refund)
		reference = refund.Reference
	}
	if err := e.commit(ctx, op, next, token.Receipt{Reference: reference}, records...); err != nil {
		return nil, err
	}

	e.logger.Info("escrow account closed",
		"account_id", next.ID.String(),
		"refunded", balance,
		"released", next.ReleasedAmount,
		"status", next.Status,
	)
	e.plugins.EmitAccountClosed(ctx, next, refund)
	e.emitStatus(ctx, next, a.Status)
	return &Closure{Account: next, Refund: refund}, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetAccount returns an account by ID.
func (e *Engine) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// ListAccounts lists accounts matching opts.
func (e *Engine) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	return e.store.ListAccounts(ctx, opts)
}

// ListTransfers lists the deposits, withdrawals and refunds of an account.
func (e *Engine) ListTransfers(ctx context.Context, accountID id.AccountID, opts transfer.ListOpts) ([]*transfer.Record, error) {
	return e.store.ListTransfers(ctx, accountID, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) newRecord(a *account.Account, kind transfer.Kind, amount uint64, from, to, signer string, receipt token.Receipt, now time.Time, slot uint64) *transfer.Record {
	return &transfer.Record{
		Entity:    types.NewEntityAt(now),
		ID:        id.NewTransferID(),
		AccountID: a.ID,
		Kind:      kind,
		Asset:     a.Asset,
		Amount:    amount,
		From:      from,
		To:        to,
		Signer:    signer,
		Reference: receipt.Reference,
		Slot:      slot,
	}
}

// commit persists a mutated account with its transfer records. When tokens
// have already moved, a failure here leaves the ledger ahead of the store;
// it is logged with the transfer reference for reconciliation.
func (e *Engine) commit(ctx context.Context, op string, a *account.Account, receipt token.Receipt, records ...*transfer.Record) error {
	if err := e.store.CommitAccount(ctx, a, records...); err != nil {
		if receipt.Reference != "" {
			e.logger.Error("escrow commit failed after token transfer",
				"op", op,
				"account_id", a.ID.String(),
				"reference", receipt.Reference,
				"error", err,
			)
		}
		return e.fail(ctx, op, a.ID, err, "reference", receipt.Reference)
	}
	return nil
}
