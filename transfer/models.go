package transfer

import (
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Kind is the direction of a recorded transfer.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindRefund     Kind = "refund"
)

// Record is an audit entry for value that moved through an account's vault.
type Record struct {
	types.Entity
	ID        id.TransferID     `json:"id"`
	AccountID id.AccountID      `json:"account_id"`
	Kind      Kind              `json:"kind"`
	Asset     string            `json:"asset"`
	Amount    uint64            `json:"amount"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Signer    string            `json:"signer"`
	Reference string            `json:"reference,omitempty"`
	Slot      uint64            `json:"slot"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
