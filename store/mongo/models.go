package mongo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/curve"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// BSON has no unsigned 64-bit integer, so amounts and slots are stored as
// decimal strings.

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:escrow_accounts"`

	ID                string            `grove:"id,pk"               bson:"_id"`
	Depositor         string            `grove:"depositor"           bson:"depositor"`
	Beneficiary       string            `grove:"beneficiary"         bson:"beneficiary"`
	Arbiter           string            `grove:"arbiter"             bson:"arbiter,omitempty"`
	Asset             string            `grove:"asset"               bson:"asset"`
	Decimals          int32             `grove:"decimals"            bson:"decimals"`
	Vault             string            `grove:"vault"               bson:"vault"`
	TotalAmount       string            `grove:"total_amount"        bson:"total_amount"`
	FundedAmount      string            `grove:"funded_amount"       bson:"funded_amount"`
	ReleasedAmount    string            `grove:"released_amount"     bson:"released_amount"`
	RefundedAmount    string            `grove:"refunded_amount"     bson:"refunded_amount"`
	LockedAmount      string            `grove:"locked_amount"       bson:"locked_amount"`
	AccumulatedDust   string            `grove:"accumulated_dust"    bson:"accumulated_dust"`
	Schedule          scheduleModel     `grove:"schedule"            bson:"schedule"`
	Authority         authorityModel    `grove:"authority"           bson:"authority"`
	Pause             pauseModel        `grove:"pause"               bson:"pause"`
	Status            string            `grove:"status"              bson:"status"`
	ExpiresAt         *time.Time        `grove:"expires_at"          bson:"expires_at,omitempty"`
	LastOperationSlot string            `grove:"last_operation_slot" bson:"last_operation_slot"`
	Version           int64             `grove:"version"             bson:"version"`
	Metadata          map[string]string `grove:"metadata"            bson:"metadata,omitempty"`
	CreatedAt         time.Time         `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time         `grove:"updated_at"          bson:"updated_at"`
}

type scheduleModel struct {
	Kind             string           `bson:"kind"`
	Linear           *linearModel     `bson:"linear,omitempty"`
	Milestones       []conditionModel `bson:"milestones,omitempty"`
	LinearPortion    string           `bson:"linear_portion,omitempty"`
	MilestonePortion string           `bson:"milestone_portion,omitempty"`
	CustomData       []byte           `bson:"custom_data,omitempty"`
}

type linearModel struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
	Curve string    `bson:"curve,omitempty"`
}

type conditionModel struct {
	ID          string     `bson:"id"`
	Amount      string     `bson:"amount"`
	Approver    string     `bson:"approver"`
	Description string     `bson:"description,omitempty"`
	Completed   bool       `bson:"completed"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
}

type authorityModel struct {
	Kind    string `bson:"kind"`
	Program string `bson:"program,omitempty"`
}

type pauseModel struct {
	Paused        bool       `bson:"paused"`
	StartedAt     *time.Time `bson:"started_at,omitempty"`
	TotalPausedMS int64      `bson:"total_paused_ms"`
	Count         int32      `bson:"count"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:                a.ID.String(),
		Depositor:         a.Depositor,
		Beneficiary:       a.Beneficiary,
		Arbiter:           a.Arbiter,
		Asset:             a.Asset,
		Decimals:          int32(a.Decimals),
		Vault:             a.Vault.String(),
		TotalAmount:       formatAmount(a.TotalAmount),
		FundedAmount:      formatAmount(a.FundedAmount),
		ReleasedAmount:    formatAmount(a.ReleasedAmount),
		RefundedAmount:    formatAmount(a.RefundedAmount),
		LockedAmount:      formatAmount(a.LockedAmount),
		AccumulatedDust:   formatAmount(a.AccumulatedDust),
		Schedule:          toScheduleModel(a.Schedule),
		Authority:         authorityModel{Kind: string(a.Authority.Kind), Program: a.Authority.Program},
		Pause:             toPauseModel(a.Pause),
		Status:            string(a.Status),
		ExpiresAt:         a.ExpiresAt,
		LastOperationSlot: formatAmount(a.LastOperationSlot),
		Version:           a.Version,
		Metadata:          a.Metadata,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
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
	sched, err := fromScheduleModel(m.Schedule)
	if err != nil {
		return nil, err
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
		Decimals:          uint8(m.Decimals), //nolint:gosec // written from a uint8
		Vault:             vaultID,
		TotalAmount:       p.parse("total_amount", m.TotalAmount),
		FundedAmount:      p.parse("funded_amount", m.FundedAmount),
		ReleasedAmount:    p.parse("released_amount", m.ReleasedAmount),
		RefundedAmount:    p.parse("refunded_amount", m.RefundedAmount),
		LockedAmount:      p.parse("locked_amount", m.LockedAmount),
		AccumulatedDust:   p.parse("accumulated_dust", m.AccumulatedDust),
		Schedule:          sched,
		Authority:         authority.Authority{Kind: authority.Kind(m.Authority.Kind), Program: m.Authority.Program},
		Pause:             fromPauseModel(m.Pause),
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

func toScheduleModel(s schedule.Schedule) scheduleModel {
	m := scheduleModel{Kind: string(s.Kind)}
	switch s.Kind {
	case schedule.KindLinear:
		if s.Linear != nil {
			m.Linear = toLinearModel(*s.Linear)
		}
	case schedule.KindMilestone:
		m.Milestones = toConditionModels(s.Milestones)
	case schedule.KindHybrid:
		if s.Hybrid != nil {
			m.Linear = toLinearModel(s.Hybrid.Linear)
			m.Milestones = toConditionModels(s.Hybrid.Milestones)
			m.LinearPortion = formatAmount(s.Hybrid.LinearPortion)
			m.MilestonePortion = formatAmount(s.Hybrid.MilestonePortion)
		}
	case schedule.KindCustom:
		if s.Custom != nil {
			m.CustomData = s.Custom.Data
		}
	}
	return m
}

func fromScheduleModel(m scheduleModel) (schedule.Schedule, error) {
	conds, err := fromConditionModels(m.Milestones)
	if err != nil {
		return schedule.Schedule{}, err
	}

	switch schedule.Kind(m.Kind) {
	case schedule.KindImmediate:
		return schedule.Immediate(), nil
	case schedule.KindLinear:
		if m.Linear == nil {
			return schedule.Schedule{}, fmt.Errorf("decode schedule: linear payload missing")
		}
		lc, err := fromLinearModel(*m.Linear)
		if err != nil {
			return schedule.Schedule{}, err
		}
		return schedule.Schedule{Kind: schedule.KindLinear, Linear: &lc}, nil
	case schedule.KindMilestone:
		return schedule.Schedule{Kind: schedule.KindMilestone, Milestones: conds}, nil
	case schedule.KindHybrid:
		if m.Linear == nil {
			return schedule.Schedule{}, fmt.Errorf("decode schedule: hybrid linear payload missing")
		}
		lc, err := fromLinearModel(*m.Linear)
		if err != nil {
			return schedule.Schedule{}, err
		}
		var p amountParser
		h := &schedule.HybridConfig{
			LinearPortion:    p.parse("linear_portion", m.LinearPortion),
			MilestonePortion: p.parse("milestone_portion", m.MilestonePortion),
			Linear:           lc,
			Milestones:       conds,
		}
		if p.err != nil {
			return schedule.Schedule{}, p.err
		}
		return schedule.Schedule{Kind: schedule.KindHybrid, Hybrid: h}, nil
	case schedule.KindCustom:
		return schedule.Custom(m.CustomData), nil
	default:
		return schedule.Schedule{}, fmt.Errorf("decode schedule: %w: %q", schedule.ErrUnknownKind, m.Kind)
	}
}

func toLinearModel(l schedule.LinearConfig) *linearModel {
	return &linearModel{Start: l.Start, End: l.End, Curve: l.Curve.String()}
}

func fromLinearModel(m linearModel) (schedule.LinearConfig, error) {
	c, err := curve.Parse(m.Curve)
	if err != nil {
		return schedule.LinearConfig{}, fmt.Errorf("decode schedule: %w", err)
	}
	return schedule.LinearConfig{Start: m.Start.UTC(), End: m.End.UTC(), Curve: c}, nil
}

func toConditionModels(conds []schedule.Condition) []conditionModel {
	if len(conds) == 0 {
		return nil
	}
	out := make([]conditionModel, len(conds))
	for i, c := range conds {
		out[i] = conditionModel{
			ID:          c.ID.String(),
			Amount:      formatAmount(c.Amount),
			Approver:    c.Approver,
			Description: c.Description,
			Completed:   c.Completed,
			CompletedAt: c.CompletedAt,
		}
	}
	return out
}

func fromConditionModels(models []conditionModel) ([]schedule.Condition, error) {
	if len(models) == 0 {
		return nil, nil
	}
	out := make([]schedule.Condition, len(models))
	for i, m := range models {
		msID, err := id.ParseMilestoneID(m.ID)
		if err != nil {
			return nil, err
		}
		amount, err := strconv.ParseUint(m.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode milestone amount: %w", err)
		}
		out[i] = schedule.Condition{
			ID:          msID,
			Amount:      amount,
			Approver:    m.Approver,
			Description: m.Description,
			Completed:   m.Completed,
			CompletedAt: m.CompletedAt,
		}
	}
	return out, nil
}

func toPauseModel(l pause.Ledger) pauseModel {
	return pauseModel{
		Paused:        l.Paused,
		StartedAt:     l.StartedAt,
		TotalPausedMS: l.TotalPaused.Milliseconds(),
		Count:         int32(l.Count),
	}
}

func fromPauseModel(m pauseModel) pause.Ledger {
	return pause.Ledger{
		Paused:      m.Paused,
		StartedAt:   m.StartedAt,
		TotalPaused: time.Duration(m.TotalPausedMS) * time.Millisecond,
		Count:       uint8(m.Count), //nolint:gosec // written from a uint8
	}
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:escrow_transfers"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	AccountID string            `grove:"account_id" bson:"account_id"`
	Kind      string            `grove:"kind"       bson:"kind"`
	Asset     string            `grove:"asset"      bson:"asset"`
	Amount    string            `grove:"amount"     bson:"amount"`
	From      string            `grove:"from_addr"  bson:"from_addr"`
	To        string            `grove:"to_addr"    bson:"to_addr"`
	Signer    string            `grove:"signer"     bson:"signer"`
	Reference string            `grove:"reference"  bson:"reference,omitempty"`
	Slot      string            `grove:"slot"       bson:"slot"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
}

func toTransferModel(r *transfer.Record) *transferModel {
	return &transferModel{
		ID:        r.ID.String(),
		AccountID: r.AccountID.String(),
		Kind:      string(r.Kind),
		Asset:     r.Asset,
		Amount:    formatAmount(r.Amount),
		From:      r.From,
		To:        r.To,
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
		From:      m.From,
		To:        m.To,
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

const configKey = "default"

type configModel struct {
	grove.BaseModel `grove:"table:escrow_config"`

	ID                    string    `grove:"id,pk"                    bson:"_id"`
	Admin                 string    `grove:"admin"                    bson:"admin"`
	MinEscrowAmount       string    `grove:"min_escrow_amount"        bson:"min_escrow_amount"`
	MaxEscrowDurationSecs int64     `grove:"max_escrow_duration_secs" bson:"max_escrow_duration_secs"`
	MaxPauseResumeCount   int32     `grove:"max_pause_resume_count"   bson:"max_pause_resume_count"`
	Halted                bool      `grove:"halted"                   bson:"halted"`
	AllowCustom           bool      `grove:"allow_custom"             bson:"allow_custom"`
	RequirePreset         bool      `grove:"require_preset_duration"  bson:"require_preset_duration"`
	Version               int64     `grove:"version"                  bson:"version"`
	CreatedAt             time.Time `grove:"created_at"               bson:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"               bson:"updated_at"`
}

func toConfigModel(c *policy.Config) *configModel {
	return &configModel{
		ID:                    configKey,
		Admin:                 c.Admin,
		MinEscrowAmount:       formatAmount(c.MinEscrowAmount),
		MaxEscrowDurationSecs: int64(c.MaxEscrowDuration / time.Second),
		MaxPauseResumeCount:   int32(c.MaxPauseResumeCount),
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

type amountParser struct {
	err error
}

func (p *amountParser) parse(field, s string) uint64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("decode %s: %w", field, err)
		return 0
	}
	return v
}
