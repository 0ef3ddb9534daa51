package sqlite

import (
	"math"
	"testing"
	"time"

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

func TestAccountModelRoundTrip(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pausedAt := start.Add(time.Hour)
	a := &account.Account{
		Entity:          types.NewEntityAt(start),
		ID:              id.NewAccountID(),
		Depositor:       "alice",
		Beneficiary:     "bob",
		Asset:           "usdc",
		Decimals:        6,
		Vault:           id.NewVaultID(),
		TotalAmount:     math.MaxUint64,
		FundedAmount:    math.MaxUint64,
		ReleasedAmount:  42,
		AccumulatedDust: 7,
		Schedule: schedule.Hybrid(600, 400,
			schedule.LinearConfig{Start: start, End: start.Add(100 * time.Second), Curve: curve.Quadratic},
			schedule.Condition{ID: id.NewMilestoneID(), Amount: 400, Approver: "carol"},
		),
		Authority:         authority.Delegated("prog"),
		Pause:             pause.Ledger{Paused: true, StartedAt: &pausedAt, TotalPaused: 5 * time.Second, Count: 1},
		Status:            account.StatusPaused,
		LastOperationSlot: 99,
		Version:           3,
		Metadata:          map[string]string{"ref": "po-1"},
	}

	m, err := toAccountModel(a)
	if err != nil {
		t.Fatalf("toAccountModel: %v", err)
	}
	if m.TotalAmount != "18446744073709551615" {
		t.Errorf("total_amount = %q", m.TotalAmount)
	}

	got, err := fromAccountModel(m)
	if err != nil {
		t.Fatalf("fromAccountModel: %v", err)
	}
	if got.ID != a.ID || got.Vault != a.Vault {
		t.Errorf("ids = %v/%v, want %v/%v", got.ID, got.Vault, a.ID, a.Vault)
	}
	if got.TotalAmount != a.TotalAmount || got.ReleasedAmount != 42 || got.AccumulatedDust != 7 {
		t.Errorf("amounts = %d/%d/%d", got.TotalAmount, got.ReleasedAmount, got.AccumulatedDust)
	}
	if got.Schedule.Kind != schedule.KindHybrid || got.Schedule.Hybrid.Linear.Curve != curve.Quadratic {
		t.Errorf("schedule = %+v", got.Schedule)
	}
	if len(got.Schedule.Hybrid.Milestones) != 1 || got.Schedule.Hybrid.Milestones[0].ID != a.Schedule.Hybrid.Milestones[0].ID {
		t.Errorf("milestones = %+v", got.Schedule.Hybrid.Milestones)
	}
	if got.Authority != a.Authority {
		t.Errorf("authority = %+v, want %+v", got.Authority, a.Authority)
	}
	if !got.Pause.Paused || got.Pause.TotalPaused != 5*time.Second || !got.Pause.StartedAt.Equal(pausedAt) {
		t.Errorf("pause = %+v", got.Pause)
	}
	if got.LastOperationSlot != 99 || got.Version != 3 {
		t.Errorf("slot/version = %d/%d", got.LastOperationSlot, got.Version)
	}
}

func TestFromAccountModelRejectsBadAmount(t *testing.T) {
	a := &account.Account{
		ID:        id.NewAccountID(),
		Vault:     id.NewVaultID(),
		Schedule:  schedule.Immediate(),
		Authority: authority.Of(authority.Beneficiary),
	}
	m, err := toAccountModel(a)
	if err != nil {
		t.Fatalf("toAccountModel: %v", err)
	}
	m.ReleasedAmount = "-1"
	if _, err := fromAccountModel(m); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestTransferModelRoundTrip(t *testing.T) {
	r := &transfer.Record{
		ID:        id.NewTransferID(),
		AccountID: id.NewAccountID(),
		Kind:      transfer.KindWithdrawal,
		Asset:     "usdc",
		Amount:    1500,
		From:      "vault_x",
		To:        "bob",
		Signer:    "bob",
		Reference: "mem-1",
		Slot:      12,
	}
	got, err := fromTransferModel(toTransferModel(r))
	if err != nil {
		t.Fatalf("fromTransferModel: %v", err)
	}
	if got.ID != r.ID || got.Amount != 1500 || got.Kind != transfer.KindWithdrawal || got.Slot != 12 {
		t.Errorf("record = %+v", got)
	}
}

func TestConfigModelRoundTrip(t *testing.T) {
	c := policy.Default()
	c.Admin = "admin"
	c.Halted = true

	m := toConfigModel(&c)
	if m.ID != configKey {
		t.Errorf("id = %q, want %q", m.ID, configKey)
	}
	got, err := fromConfigModel(m)
	if err != nil {
		t.Fatalf("fromConfigModel: %v", err)
	}
	if got.MaxEscrowDuration != c.MaxEscrowDuration || !got.Halted || got.Version != policy.CurrentVersion {
		t.Errorf("config = %+v", got)
	}
}

func TestMetadataEncoding(t *testing.T) {
	if got := encodeMetadata(nil); got != "{}" {
		t.Errorf("encodeMetadata(nil) = %q, want {}", got)
	}
	m, err := decodeMetadata(encodeMetadata(map[string]string{"a": "1"}))
	if err != nil {
		t.Fatalf("decodeMetadata: %v", err)
	}
	if m["a"] != "1" {
		t.Errorf("metadata = %v", m)
	}
	if _, err := decodeMetadata("{not json"); err == nil {
		t.Error("expected error for malformed metadata")
	}
}
