package store

import (
	"context"
	"errors"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/transfer"
)

// ErrAlreadyExists is returned when a record with the same ID is created twice.
var ErrAlreadyExists = errors.New("escrow: record already exists")

// Store is the unified storage interface for all escrow entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error
	DeleteAccount(ctx context.Context, accountID id.AccountID) error

	// CommitAccount applies an optimistic account update together with the
	// transfer records describing it. Drivers with transactions apply both
	// atomically; the account update is always applied first.
	CommitAccount(ctx context.Context, a *account.Account, records ...*transfer.Record) error

	// Transfer methods
	CreateTransfer(ctx context.Context, r *transfer.Record) error
	GetTransfer(ctx context.Context, transferID id.TransferID) (*transfer.Record, error)
	ListTransfers(ctx context.Context, accountID id.AccountID, opts transfer.ListOpts) ([]*transfer.Record, error)

	// Config methods
	GetConfig(ctx context.Context) (*policy.Config, error)
	SaveConfig(ctx context.Context, c *policy.Config) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
