package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/go-utils/metrics"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/asset"
	"github.com/xraph/escrow/clock"
	"github.com/xraph/escrow/observability"
	"github.com/xraph/escrow/store/memory"
	tokenmem "github.com/xraph/escrow/token/memory"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

func counter(t *testing.T, c metrics.Counter, want float64) {
	t.Helper()
	if got := c.Value(); got != want {
		t.Errorf("counter = %v, want %v", got, want)
	}
}

func TestMetricsFollowEngineLifecycle(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetricsExtension(metrics.NewMockMetrics())

	clk := clock.NewManual(epoch)
	tokens := tokenmem.New()
	if err := tokens.Mint("unit", "alice", 10_000); err != nil {
		t.Fatal(err)
	}
	e := escrow.New(memory.New(),
		escrow.WithClock(clk),
		escrow.WithTokenLedger(tokens),
		escrow.WithAssets(asset.NewStaticRegistry(asset.Metadata{ID: "unit", Symbol: "UNIT"})),
		escrow.WithPlugin(m),
	)
	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	a, err := e.CreateAccount(ctx, escrow.CreateInput{
		Depositor:   "alice",
		Beneficiary: "bob",
		Asset:       "unit",
		TotalAmount: 1000,
		Schedule:    escrow.Linear(epoch, epoch.Add(100*time.Second), escrow.CurveLinear),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := e.Deposit(ctx, a.ID, "alice", 1000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	clk.Set(epoch.Add(50 * time.Second))
	if _, err := e.Withdraw(ctx, a.ID, "mallory", escrow.WithdrawOpts{}); err == nil {
		t.Fatal("expected unauthorized withdrawal to fail")
	}
	clk.Tick()
	if _, err := e.Withdraw(ctx, a.ID, "bob", escrow.WithdrawOpts{}); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	clk.Set(epoch.Add(200 * time.Second))
	if _, err := e.Withdraw(ctx, a.ID, "bob", escrow.WithdrawOpts{}); err != nil {
		t.Fatalf("final Withdraw: %v", err)
	}

	counter(t, m.AccountCreated, 1)
	counter(t, m.Deposits, 1)
	counter(t, m.Withdrawals, 2)
	counter(t, m.AccountCompleted, 1)
	counter(t, m.Failures[escrow.KindPolicy], 1)
	counter(t, m.Failures[escrow.KindState], 0)
	if got := m.WithdrawalAmount.Sum(); got != 1000 {
		t.Errorf("withdrawn sum = %v, want 1000", got)
	}
	if got := m.DepositAmount.Count(); got != 1 {
		t.Errorf("deposit observations = %d, want 1", got)
	}
}

func TestHookCounters(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetricsExtension(metrics.NewMockMetrics())
	a := &account.Account{Status: account.StatusPaused}

	_ = m.OnPaused(ctx, a)
	_ = m.OnResumed(ctx, a, 1500*time.Millisecond)
	_ = m.OnBelowMinimum(ctx, a, 42, 100)
	_ = m.OnStatusChanged(ctx, a, account.StatusActive, account.StatusDisputed)
	_ = m.OnAccountClosed(ctx, a, nil)
	_ = m.OnOperationFailed(ctx, "withdraw", "", escrow.ErrNothingAvailable)

	counter(t, m.Paused, 1)
	counter(t, m.Resumed, 1)
	counter(t, m.BelowMinimum, 1)
	counter(t, m.AccountDisputed, 1)
	counter(t, m.AccountClosed, 1)
	counter(t, m.Refunds, 0)
	counter(t, m.Failures[escrow.KindState], 1)

	if got := m.PauseDuration.Sum(); got != 1500 {
		t.Errorf("pause duration = %v, want 1500", got)
	}
	if got := m.Dust.Sum(); got != 42 {
		t.Errorf("dust = %v, want 42", got)
	}
}
