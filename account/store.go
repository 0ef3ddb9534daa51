package account

import (
	"context"
	"errors"

	"github.com/xraph/escrow/id"
)

var (
	ErrNotFound = errors.New("escrow: account not found")
	ErrConflict = errors.New("escrow: account was modified concurrently")
)

// Store persists accounts. Update is optimistic: it succeeds only when the
// stored Version equals a.Version, then increments it.
type Store interface {
	Create(ctx context.Context, a *Account) error
	Get(ctx context.Context, accountID id.AccountID) (*Account, error)
	List(ctx context.Context, opts ListOpts) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, accountID id.AccountID) error
}

type ListOpts struct {
	Depositor   string
	Beneficiary string
	Status      Status
	Limit       int
	Offset      int
}
