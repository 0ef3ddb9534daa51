package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/escrow/policy"
)

func TestDefault(t *testing.T) {
	c := policy.Default()
	if c.MaxPauseResumeCount != 3 {
		t.Errorf("MaxPauseResumeCount = %d, want 3", c.MaxPauseResumeCount)
	}
	if err := c.RequireVersion(policy.CurrentVersion); err != nil {
		t.Errorf("RequireVersion: %v", err)
	}
	if err := c.RequireVersion(policy.CurrentVersion + 1); !errors.Is(err, policy.ErrIncompatibleVersion) {
		t.Errorf("RequireVersion mismatch err = %v", err)
	}
	if err := c.Validate(); !errors.Is(err, policy.ErrInvalidConfig) {
		t.Errorf("default without admin should be invalid, got %v", err)
	}
	c.Admin = "admin"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestUpdateApply(t *testing.T) {
	minAmount := uint64(500)
	maxDur := 30 * 24 * time.Hour
	allow := true

	c := policy.Update{
		MinEscrowAmount:   &minAmount,
		MaxEscrowDuration: &maxDur,
		AllowCustom:       &allow,
	}.Apply(policy.Default())

	if c.MinEscrowAmount != 500 || c.MaxEscrowDuration != maxDur || !c.AllowCustom {
		t.Errorf("Apply = %+v", c)
	}
	if c.MaxPauseResumeCount != 3 {
		t.Error("untouched field changed")
	}

	l := c.Limits()
	if l.MaxDuration != maxDur || !l.AllowCustom || l.RequirePreset {
		t.Errorf("Limits = %+v", l)
	}
}
