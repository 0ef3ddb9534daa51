// Package token defines the external token ledger the engine moves value
// through. The engine never inspects ledger internals beyond balances; it
// supplies an amount and a proof of authority and treats the transfer as the
// final step of every operation.
package token

import (
	"context"
	"errors"
)

var (
	ErrInsufficientFunds = errors.New("escrow: insufficient token balance")
	ErrUnauthorized      = errors.New("escrow: transfer authority rejected")
	ErrUnknownAccount    = errors.New("escrow: unknown token account")
	ErrAccountExists     = errors.New("escrow: token account already exists")
	ErrAccountClosed     = errors.New("escrow: token account closed")
	ErrNonZeroBalance    = errors.New("escrow: cannot close account with remaining balance")
	ErrInvalidAmount     = errors.New("escrow: transfer amount must be positive")
)

// Authority proves control of the account funds are debited from. For a
// participant account Signer is the participant; for a vault it is the
// derived signer the vault was opened with.
type Authority struct {
	Owner  string `json:"owner"`
	Signer string `json:"signer"`
}

// Self is the authority of a principal over its own account.
func Self(principal string) Authority {
	return Authority{Owner: principal, Signer: principal}
}

// Transfer is a single debit/credit instruction.
type Transfer struct {
	Asset     string
	From      string
	To        string
	Amount    uint64
	Authority Authority
	Memo      string
}

// Receipt identifies a completed transfer on the ledger.
type Receipt struct {
	Reference string `json:"reference"`
}

// Ledger moves value between token accounts.
type Ledger interface {
	// OpenVault creates an empty vault account controlled by signer.
	OpenVault(ctx context.Context, asset, vault, signer string) error
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, t Transfer) (Receipt, error)
	// Close closes an emptied vault and releases it to destination.
	Close(ctx context.Context, asset, vault, destination string, auth Authority) error
	// Balance returns the current balance of an account.
	Balance(ctx context.Context, asset, account string) (uint64, error)
}
