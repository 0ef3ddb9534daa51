package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// Amounts are unsigned 64-bit and exceed BIGINT, so they are stored as
// decimal text.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:escrow_accounts"`

	ID                string            `grove:"id,pk"`
	Depositor         string            `grove:"depositor"`
	Beneficiary       string            `grove:"beneficiary"`
	Arbiter           string            `grove:"arbiter"`
	Asset             string            `grove:"asset"`
	Decimals          int16             `grove:"decimals"`
	Vault             string            `grove:"vault"`
	TotalAmount       string            `grove:"total_amount"`
	FundedAmount      string            `grove:"funded_amount"`
	ReleasedAmount    string            `grove:"released_amount"`
	RefundedAmount    string            `grove:"refunded_amount"`
	LockedAmount      string            `grove:"locked_amount"`
	AccumulatedDust   string            `grove:"accumulated_dust"`
	Schedule          json.RawMessage   `grove:"schedule,type:jsonb"`
	Authority         json.RawMessage   `grove:"authority,type:jsonb"`
	Pause             json.RawMessage   `grove:"pause,type:jsonb"`
	Status            string            `grove:"status"`
	ExpiresAt         *time.Time        `grove:"expires_at"`
	LastOperationSlot string            `grove:"last_operation_slot"`
	Version           int64             `grove:"version"`
	Metadata          map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt         time.Time         `grove:"created_at"`
	UpdatedAt         time.Time         `grove:"updated_at"`
}

func toAccountModel(a *account.Account) (*accountModel, error) {
	sched, err := json.Marshal(a.Schedule)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	auth, err := json.Marshal(a.Authority)
	if err != nil {
		return nil, fmt.Errorf("encode authority: %w", err)
	}
	pl, err := json.Marshal(a.Pause)
	if err != nil {
		return nil, fmt.Errorf("encode pause: %w", err)
	}

	return &accountModel{
		ID:                a.ID.String(),
		Depositor:         a.Depositor,
		Beneficiary:       a.Beneficiary,
		Arbiter:           a.Arbiter,
		Asset:             a.Asset,
		Decimals:          int16(a.Decimals),
		Vault:             a.Vault.String(),
		TotalAmount:       formatAmount(a.TotalAmount),
		FundedAmount:      formatAmount(a.FundedAmount),
		ReleasedAmount:    formatAmount(a.ReleasedAmount),
		RefundedAmount:    formatAmount(a.RefundedAmount),
		LockedAmount:      formatAmount(a.LockedAmount),
		AccumulatedDust:   formatAmount(a.AccumulatedDust),
		Schedule:          sched,
		Authority:         auth,
		Pause:             pl,
		Status:            string(a.Status),
		ExpiresAt:         a.ExpiresAt,
		LastOperationSlot: formatAmount(a.LastOperationSlot),
		Version:           a.Version,
		Metadata:          a.Metadata,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}, nil
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	vaultID, err := id.ParseVaultID(m.Vault)
	if err != nil {
		return nil, err
	}

	var sched schedule.Schedule
	if err := json.Unmarshal(m.Schedule, &sched); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	var auth authority.Authority
	if err := json.Unmarshal(m.Authority, &auth); err != nil {
		return nil, fmt.Errorf("decode authority: %w", err)
	}
	var pl pause.Ledger
	if len(m.Pause) > 0 {
		if err := json.Unmarshal(m.Pause, &pl); err != nil {
			return nil, fmt.Errorf("decode pause: %w", err)
		}
	}

	var p amountParser
	a := &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                accountID,
		Depositor:         m.Depositor,
		Beneficiary:       m.Beneficiary,
		Arbiter:           m.Arbiter,
		Asset:             m.Asset,
		Decimals:          uint8(m.Decimals), //nolint:gosec // column is constrained to 0..255
		Vault:             vaultID,
		TotalAmount:       p.parse("total_amount", m.TotalAmount),
		FundedAmount:      p.parse("funded_amount", m.FundedAmount),
		ReleasedAmount:    p.parse("released_amount", m.ReleasedAmount),
		RefundedAmount:    p.parse("refunded_amount", m.RefundedAmount),
		LockedAmount:      p.parse("locked_amount", m.LockedAmount),
		AccumulatedDust:   p.parse("accumulated_dust", m.AccumulatedDust),
		Schedule:          sched,
		Authority:         auth,
		Pause:             pl,
		Status:            account.Status(m.Status),
		ExpiresAt:         m.ExpiresAt,
		LastOperationSlot: p.parse("last_operation_slot", m.LastOperationSlot),
		Version:           m.Version,
		Metadata:          m.Metadata,
	}
	if p.err != nil {
		return nil, p.err
	}
	return a, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:escrow_transfers"`

	ID        string            `grove:"id,pk"`
	AccountID string            `grove:"account_id"`
	Kind      string            `grove:"kind"`
	Asset     string            `grove:"asset"`
	Amount    string            `grove:"amount"`
	FromAddr  string            `grove:"from_addr"`
	ToAddr    string            `grove:"to_addr"`
	Signer    string            `grove:"signer"`
	Reference string            `grove:"reference"`
	Slot      string            `grove:"slot"`
	Metadata  map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt time.Time         `grove:"created_at"`
}

func toTransferModel(r *transfer.Record) *transferModel {
	return &transferModel{
		ID:        r.ID.String(),
		AccountID: r.AccountID.String(),
		Kind:      string(r.Kind),
		Asset:     r.Asset,
		Amount:    formatAmount(r.Amount),
		FromAddr:  r.From,
		ToAddr:    r.To,
		Signer:    r.Signer,
		Reference: r.Reference,
		Slot:      formatAmount(r.Slot),
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
	}
}

func fromTransferModel(m *transferModel) (*transfer.Record, error) {
	transferID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}

	var p amountParser
	r := &transfer.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		},
		ID:        transferID,
		AccountID: accountID,
		Kind:      transfer.Kind(m.Kind),
		Asset:     m.Asset,
		Amount:    p.parse("amount", m.Amount),
		From:      m.FromAddr,
		To:        m.ToAddr,
		Signer:    m.Signer,
		Reference: m.Reference,
		Slot:      p.parse("slot", m.Slot),
		Metadata:  m.Metadata,
	}
	if p.err != nil {
		return nil, p.err
	}
	return r, nil
}

// ==================== Config models ====================

// configKey is the primary key of the single configuration row.
const configKey = "default"

type configModel struct {
	grove.BaseModel `grove:"table:escrow_config"`

	ID                    string    `grove:"id,pk"`
	Admin                 string    `grove:"admin"`
	MinEscrowAmount       string    `grove:"min_escrow_amount"`
	MaxEscrowDurationSecs int64     `grove:"max_escrow_duration_secs"`
	MaxPauseResumeCount   int16     `grove:"max_pause_resume_count"`
	Halted                bool      `grove:"halted"`
	AllowCustom           bool      `grove:"allow_custom"`
	RequirePreset         bool      `grove:"require_preset_duration"`
	Version               int64     `grove:"version"`
	CreatedAt             time.Time `grove:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"`
}

func toConfigModel(c *policy.Config) *configModel {
	return &configModel{
		ID:                    configKey,
		Admin:                 c.Admin,
		MinEscrowAmount:       formatAmount(c.MinEscrowAmount),
		MaxEscrowDurationSecs: int64(c.MaxEscrowDuration / time.Second),
		MaxPauseResumeCount:   int16(c.MaxPauseResumeCount),
		Halted:                c.Halted,
		AllowCustom:           c.AllowCustom,
		RequirePreset:         c.RequirePresetDuration,
		Version:               int64(c.Version),
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

func fromConfigModel(m *configModel) (*policy.Config, error) {
	minAmount, err := strconv.ParseUint(m.MinEscrowAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode min_escrow_amount: %w", err)
	}
	return &policy.Config{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Admin:                 m.Admin,
		MinEscrowAmount:       minAmount,
		MaxEscrowDuration:     time.Duration(m.MaxEscrowDurationSecs) * time.Second,
		MaxPauseResumeCount:   uint8(m.MaxPauseResumeCount), //nolint:gosec // written from a uint8
		Halted:                m.Halted,
		AllowCustom:           m.AllowCustom,
		RequirePresetDuration: m.RequirePreset,
		Version:               uint32(m.Version), //nolint:gosec // written from a uint32
	}, nil
}

// ==================== Helpers ====================

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// amountParser decodes text amounts and keeps the first failure.
type amountParser struct {
	err error
}

func (p *amountParser) parse(column, s string) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("decode %s: %w", column, err)
		return 0
	}
	return v
}
