package account_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/curve"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/schedule"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func newAccount() *account.Account {
	return &account.Account{
		ID:          id.NewAccountID(),
		Depositor:   "dep",
		Beneficiary: "ben",
		TotalAmount: 1000,
		Schedule:    schedule.Linear(at(0), at(100), curve.Linear),
		Status:      account.StatusActive,
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to account.Status
		want     bool
	}{
		{account.StatusInitialized, account.StatusFunded, true},
		{account.StatusInitialized, account.StatusActive, true},
		{account.StatusFunded, account.StatusFunded, true},
		{account.StatusFunded, account.StatusActive, true},
		{account.StatusActive, account.StatusPaused, true},
		{account.StatusPaused, account.StatusActive, true},
		{account.StatusActive, account.StatusCompleted, true},
		{account.StatusActive, account.StatusDisputed, true},
		{account.StatusInitialized, account.StatusPaused, false},
		{account.StatusPaused, account.StatusCompleted, false},
		{account.StatusCompleted, account.StatusActive, false},
		{account.StatusCancelled, account.StatusActive, false},
		{account.StatusDisputed, account.StatusActive, false},
	}
	for _, tt := range tests {
		if got := account.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionAndRequire(t *testing.T) {
	a := newAccount()
	if err := a.Transition(account.StatusCompleted); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := a.Transition(account.StatusActive); !errors.Is(err, account.ErrInvalidTransition) {
		t.Errorf("completed -> active err = %v", err)
	}
	if a.Status != account.StatusCompleted {
		t.Errorf("rejected transition changed status to %s", a.Status)
	}

	if err := a.Require("withdraw", account.StatusActive, account.StatusFunded); !errors.Is(err, account.ErrInvalidStatus) {
		t.Errorf("Require err = %v", err)
	}
	if err := a.Require("close", account.StatusCompleted); err != nil {
		t.Errorf("Require: %v", err)
	}
}

func TestEnded(t *testing.T) {
	a := newAccount()
	if a.Ended(at(50)) {
		t.Error("active account mid-window should not be ended")
	}
	if !a.Ended(at(100)) {
		t.Error("elapsed window should end the account")
	}

	exp := at(30)
	a.ExpiresAt = &exp
	if !a.Ended(at(31)) {
		t.Error("expired account should be ended")
	}

	b := newAccount()
	b.ReleasedAmount = 1000
	if !b.Ended(at(10)) || !b.Drained() {
		t.Error("fully released account should be ended and drained")
	}

	c := newAccount()
	if err := c.Pause.Pause(at(10), pause.DefaultCap, c.ScheduleDuration()); err != nil {
		t.Fatal(err)
	}
	if c.Ended(at(105)) {
		t.Error("paused account within its extended window should not be ended")
	}
	if !c.AutoClosed(at(111)) || !c.Ended(at(111)) {
		t.Error("excessive pause should auto-close and end the account")
	}
}

func TestMilestoneAccountEndsOnlyWhenReleased(t *testing.T) {
	a := newAccount()
	a.Schedule = schedule.Milestones(schedule.Condition{ID: id.NewMilestoneID(), Amount: 1000, Approver: "arb"})
	if a.Ended(at(1_000_000)) {
		t.Error("milestone account without expiry should not end by time")
	}
}

func TestAmounts(t *testing.T) {
	a := newAccount()
	a.LockedAmount = 200
	a.ReleasedAmount = 300
	a.FundedAmount = 1000
	if a.Remaining() != 700 {
		t.Errorf("Remaining = %d", a.Remaining())
	}
	if a.Withdrawable() != 500 {
		t.Errorf("Withdrawable = %d", a.Withdrawable())
	}
	if err := a.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}

	a.ReleasedAmount = 1001
	if err := a.CheckInvariants(); !errors.Is(err, account.ErrInvariant) {
		t.Errorf("released > total err = %v", err)
	}

	b := newAccount()
	b.FundedAmount = 500
	b.ReleasedAmount = 400
	b.RefundedAmount = 200
	if err := b.CheckInvariants(); !errors.Is(err, account.ErrInvariant) {
		t.Errorf("outflow > funded err = %v", err)
	}
}

func TestClone(t *testing.T) {
	a := newAccount()
	a.Metadata = map[string]string{"k": "v"}
	cp := a.Clone()
	cp.Metadata["k"] = "changed"
	cp.Schedule.Linear.Curve = curve.Cubic
	if a.Metadata["k"] != "v" || a.Schedule.Linear.Curve != curve.Linear {
		t.Error("Clone shares state with the original")
	}
}
