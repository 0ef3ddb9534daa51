package transfer

import (
	"context"
	"errors"

	"github.com/xraph/escrow/id"
)

var ErrNotFound = errors.New("escrow: transfer record not found")

type Store interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, transferID id.TransferID) (*Record, error)
	List(ctx context.Context, accountID id.AccountID, opts ListOpts) ([]*Record, error)
}

type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}
