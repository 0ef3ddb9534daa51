package withdrawal_test

import (
	"errors"
	"testing"

	"github.com/xraph/escrow/withdrawal"
)

func ptr(v uint64) *uint64 { return &v }

func TestRoundDown(t *testing.T) {
	tests := []struct {
		amount   uint64
		decimals uint8
		want     uint64
	}{
		{1_234_567, 6, 1_234_567},
		{1_234_567, 2, 1_234_567},
		{1_234_567_891, 9, 1_234_567_000},
		{999, 9, 0},
		{123_456_789_012, 12, 123_456_000_000},
	}
	for _, tt := range tests {
		if got := withdrawal.RoundDown(tt.amount, tt.decimals); got != tt.want {
			t.Errorf("RoundDown(%d, %d) = %d, want %d", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestDustThreshold(t *testing.T) {
	tests := []struct {
		decimals uint8
		want     uint64
	}{
		{6, 100},
		{9, 100_000},
		{8, 10_000},
		{4, 1},
		{2, 1},
	}
	for _, tt := range tests {
		if got := withdrawal.DustThreshold(tt.decimals); got != tt.want {
			t.Errorf("DustThreshold(%d) = %d, want %d", tt.decimals, got, tt.want)
		}
	}
	if !withdrawal.IsDust(99, 6) || withdrawal.IsDust(0, 6) || withdrawal.IsDust(100, 6) {
		t.Error("IsDust boundaries wrong for 6 decimals")
	}
}

func TestMinimum(t *testing.T) {
	th := withdrawal.DefaultThresholds()
	if got := th.Minimum(6, 0); got != 10_000_000 {
		t.Errorf("Minimum(6) = %d", got)
	}
	if got := th.Minimum(9, 0); got != 10_000_000 {
		t.Errorf("Minimum(9) = %d", got)
	}
	if got := th.Minimum(8, 0); got != 10_000 {
		t.Errorf("Minimum(8) falls back to dust = %d", got)
	}
	if got := th.Minimum(6, 42); got != 42 {
		t.Errorf("override ignored: %d", got)
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		in        withdrawal.Input
		amount    uint64
		remainder uint64
		below     bool
		wantErr   error
	}{
		{
			name:   "simple",
			in:     withdrawal.Input{Earned: 500, Total: 1000, Decimals: 6, Minimum: 100},
			amount: 500,
		},
		{
			name:   "subtracts released",
			in:     withdrawal.Input{Earned: 800, Released: 500, Total: 1000, Decimals: 6, Minimum: 100},
			amount: 300,
		},
		{
			name:   "locked cap",
			in:     withdrawal.Input{Earned: 1000, Released: 500, Total: 1000, Locked: 300, Decimals: 6},
			amount: 200,
		},
		{
			name:   "caller cap",
			in:     withdrawal.Input{Earned: 1000, Total: 1000, Decimals: 6, MaxAmount: ptr(250)},
			amount: 250,
		},
		{
			name:      "rounding remainder stays owed",
			in:        withdrawal.Input{Earned: 1_234_567_891, Total: 2_000_000_000, Decimals: 9},
			amount:    1_234_567_000,
			remainder: 891,
		},
		{
			name:   "below minimum",
			in:     withdrawal.Input{Earned: 50, Total: 1000, Decimals: 6, Minimum: 100},
			amount: 50,
			below:  true,
		},
		{
			name:    "released above earned",
			in:      withdrawal.Input{Earned: 100, Released: 200, Total: 1000, Decimals: 6},
			wantErr: withdrawal.ErrInconsistent,
		},
		{
			name:    "locked above total",
			in:      withdrawal.Input{Earned: 100, Total: 100, Locked: 200, Decimals: 6},
			wantErr: withdrawal.ErrInconsistent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := withdrawal.Compute(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if q.Amount != tt.amount {
				t.Errorf("Amount = %d, want %d", q.Amount, tt.amount)
			}
			if q.Remainder != tt.remainder {
				t.Errorf("Remainder = %d, want %d", q.Remainder, tt.remainder)
			}
			if q.BelowMinimum != tt.below {
				t.Errorf("BelowMinimum = %v, want %v", q.BelowMinimum, tt.below)
			}
			if q.Amount > tt.in.Total-tt.in.Released {
				t.Errorf("Amount %d exceeds remaining %d", q.Amount, tt.in.Total-tt.in.Released)
			}
		})
	}
}

func TestDustDoesNotReduceOwed(t *testing.T) {
	in := withdrawal.Input{Earned: 50, Total: 1000, Decimals: 6, Minimum: 100}
	q, err := withdrawal.Compute(in)
	if err != nil {
		t.Fatal(err)
	}
	dust := q.NextDust(0)
	if dust != 50 {
		t.Fatalf("dust = %d, want 50", dust)
	}

	// The next call recomputes from released, not from dust.
	in.Earned = 150
	q, err = withdrawal.Compute(in)
	if err != nil {
		t.Fatal(err)
	}
	if q.Amount != 150 || q.BelowMinimum {
		t.Errorf("second quote = %+v, want 150 above minimum", q)
	}

	// After a capped release only the still-owed part of the dust remains.
	if got := (withdrawal.Quote{Amount: 160, Owed: 200}).DustAfter(50); got != 40 {
		t.Errorf("DustAfter capped = %d, want 40", got)
	}
	if got := (withdrawal.Quote{Amount: 200, Owed: 200}).DustAfter(50); got != 0 {
		t.Errorf("DustAfter drained = %d, want 0", got)
	}

	// Dust never exceeds what is owed.
	if got := (withdrawal.Quote{Amount: 10, Owed: 20}).NextDust(500); got != 20 {
		t.Errorf("NextDust clamp = %d, want 20", got)
	}
}
