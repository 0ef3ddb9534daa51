package account

import (
	"time"

	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/types"
)

// Account is a release account: a fixed pool of an asset held in a vault and
// released to the beneficiary under a schedule.
type Account struct {
	types.Entity
	ID          id.AccountID `json:"id"`
	Depositor   string       `json:"depositor"`
	Beneficiary string       `json:"beneficiary"`
	Arbiter     string       `json:"arbiter,omitempty"`
	Asset       string       `json:"asset"`
	Decimals    uint8        `json:"decimals"`
	Vault       id.VaultID   `json:"vault"`

	TotalAmount     uint64 `json:"total_amount"`
	FundedAmount    uint64 `json:"funded_amount"`
	ReleasedAmount  uint64 `json:"released_amount"`
	RefundedAmount  uint64 `json:"refunded_amount"`
	LockedAmount    uint64 `json:"locked_amount"`
	AccumulatedDust uint64 `json:"accumulated_dust"`

	Schedule  schedule.Schedule   `json:"schedule"`
	Authority authority.Authority `json:"authority"`
	Pause     pause.Ledger        `json:"pause"`
	Status    Status              `json:"status"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`

	// LastOperationSlot is the logical clock value of the last committed
	// mutation.
	LastOperationSlot uint64 `json:"last_operation_slot"`
	// Version is incremented by every store update.
	Version int64 `json:"version"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Parties returns the principals checked by the release authority.
func (a *Account) Parties() authority.Parties {
	return authority.Parties{Depositor: a.Depositor, Beneficiary: a.Beneficiary, Arbiter: a.Arbiter}
}

// VaultAddress is the token ledger address of the account's vault.
func (a *Account) VaultAddress() string {
	return a.Vault.String()
}

// VaultSigner is the derived signer that controls the vault.
func (a *Account) VaultSigner() string {
	return "escrow:" + a.ID.String()
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Schedule = a.Schedule.Clone()
	cp.Pause = a.Pause.Clone()
	if a.ExpiresAt != nil {
		at := *a.ExpiresAt
		cp.ExpiresAt = &at
	}
	if a.Metadata != nil {
		cp.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
