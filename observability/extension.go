// Package observability provides a metrics extension for escrow that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/go-utils/metrics"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated     = (*MetricsExtension)(nil)
	_ plugin.OnDeposit            = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawal         = (*MetricsExtension)(nil)
	_ plugin.OnBelowMinimum       = (*MetricsExtension)(nil)
	_ plugin.OnPaused             = (*MetricsExtension)(nil)
	_ plugin.OnResumed            = (*MetricsExtension)(nil)
	_ plugin.OnMilestoneCompleted = (*MetricsExtension)(nil)
	_ plugin.OnScheduleUpdated    = (*MetricsExtension)(nil)
	_ plugin.OnStatusChanged      = (*MetricsExtension)(nil)
	_ plugin.OnAccountClosed      = (*MetricsExtension)(nil)
	_ plugin.OnConfigChanged      = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed    = (*MetricsExtension)(nil)
)

// failureKinds are the error classes counted separately on failure.
var failureKinds = []escrow.Kind{
	escrow.KindValidation,
	escrow.KindState,
	escrow.KindArithmetic,
	escrow.KindPolicy,
	escrow.KindNotFound,
	escrow.KindExternal,
	escrow.KindUnknown,
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an escrow plugin to automatically track release metrics.
type MetricsExtension struct {
	factory metrics.MetricFactory

	// Account metrics
	AccountCreated   metrics.Counter
	AccountClosed    metrics.Counter
	AccountCompleted metrics.Counter
	AccountCanceled  metrics.Counter
	AccountDisputed  metrics.Counter
	ScheduleUpdated  metrics.Counter

	// Funds metrics
	Deposits         metrics.Counter
	DepositAmount    metrics.Histogram
	Withdrawals      metrics.Counter
	WithdrawalAmount metrics.Histogram
	Refunds          metrics.Counter
	RefundAmount     metrics.Histogram
	BelowMinimum     metrics.Counter
	Dust             metrics.Histogram

	// Release control metrics
	Paused             metrics.Counter
	Resumed            metrics.Counter
	PauseDuration      metrics.Histogram
	MilestoneCompleted metrics.Counter

	// Engine metrics
	ConfigChanged metrics.Counter
	Halted        metrics.Gauge
	Failures      map[escrow.Kind]metrics.Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory metrics.MetricFactory) *MetricsExtension {
	m := &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountCreated:   factory.Counter("escrow.account.created"),
		AccountClosed:    factory.Counter("escrow.account.closed"),
		AccountCompleted: factory.Counter("escrow.account.completed"),
		AccountCanceled:  factory.Counter("escrow.account.canceled"),
		AccountDisputed:  factory.Counter("escrow.account.disputed"),
		ScheduleUpdated:  factory.Counter("escrow.schedule.updated"),

		// Funds metrics
		Deposits:         factory.Counter("escrow.deposit.count"),
		DepositAmount:    factory.Histogram("escrow.deposit.amount", metrics.WithUnit("base_units")),
		Withdrawals:      factory.Counter("escrow.withdrawal.count"),
		WithdrawalAmount: factory.Histogram("escrow.withdrawal.amount", metrics.WithUnit("base_units")),
		Refunds:          factory.Counter("escrow.refund.count"),
		RefundAmount:     factory.Histogram("escrow.refund.amount", metrics.WithUnit("base_units")),
		BelowMinimum:     factory.Counter("escrow.withdrawal.below_minimum"),
		Dust:             factory.Histogram("escrow.withdrawal.dust", metrics.WithUnit("base_units")),

		// Release control metrics
		Paused:             factory.Counter("escrow.release.paused"),
		Resumed:            factory.Counter("escrow.release.resumed"),
		PauseDuration:      factory.Histogram("escrow.release.pause.duration_ms", metrics.WithUnit("ms")),
		MilestoneCompleted: factory.Counter("escrow.milestone.completed"),

		// Engine metrics
		ConfigChanged: factory.Counter("escrow.config.changed"),
		Halted:        factory.Gauge("escrow.config.halted"),
		Failures:      make(map[escrow.Kind]metrics.Counter, len(failureKinds)),
	}
	for _, k := range failureKinds {
		m.Failures[k] = factory.Counter("escrow.operation.failed", metrics.WithLabel("kind", string(k)))
	}
	return m
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ *account.Account) error {
	m.AccountCreated.Inc()
	return nil
}

// OnStatusChanged implements plugin.OnStatusChanged.
func (m *MetricsExtension) OnStatusChanged(_ context.Context, _ *account.Account, _, to account.Status) error {
	switch to {
	case account.StatusCompleted:
		m.AccountCompleted.Inc()
	case account.StatusCancelled:
		m.AccountCanceled.Inc()
	case account.StatusDisputed:
		m.AccountDisputed.Inc()
	}
	return nil
}

// OnScheduleUpdated implements plugin.OnScheduleUpdated.
func (m *MetricsExtension) OnScheduleUpdated(_ context.Context, _ *account.Account, _ schedule.Schedule) error {
	m.ScheduleUpdated.Inc()
	return nil
}

// OnAccountClosed implements plugin.OnAccountClosed.
func (m *MetricsExtension) OnAccountClosed(_ context.Context, _ *account.Account, refund *transfer.Record) error {
	m.AccountClosed.Inc()
	if refund != nil {
		m.Refunds.Inc()
		m.RefundAmount.Observe(float64(refund.Amount))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, _ *account.Account, rec *transfer.Record) error {
	m.Deposits.Inc()
	m.DepositAmount.Observe(float64(rec.Amount))
	return nil
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (m *MetricsExtension) OnWithdrawal(_ context.Context, _ *account.Account, rec *transfer.Record) error {
	m.Withdrawals.Inc()
	m.WithdrawalAmount.Observe(float64(rec.Amount))
	return nil
}

// OnBelowMinimum implements plugin.OnBelowMinimum.
func (m *MetricsExtension) OnBelowMinimum(_ context.Context, _ *account.Account, dust, _ uint64) error {
	m.BelowMinimum.Inc()
	m.Dust.Observe(float64(dust))
	return nil
}

// ──────────────────────────────────────────────────
// Release control hooks
// ──────────────────────────────────────────────────

// OnPaused implements plugin.OnPaused.
func (m *MetricsExtension) OnPaused(_ context.Context, _ *account.Account) error {
	m.Paused.Inc()
	return nil
}

// OnResumed implements plugin.OnResumed.
func (m *MetricsExtension) OnResumed(_ context.Context, _ *account.Account, pausedFor time.Duration) error {
	m.Resumed.Inc()
	m.PauseDuration.Observe(float64(pausedFor.Milliseconds()))
	return nil
}

// OnMilestoneCompleted implements plugin.OnMilestoneCompleted.
func (m *MetricsExtension) OnMilestoneCompleted(_ context.Context, _ *account.Account, _ schedule.Condition) error {
	m.MilestoneCompleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Engine hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (m *MetricsExtension) OnConfigChanged(_ context.Context, c *policy.Config) error {
	m.ConfigChanged.Inc()
	if c.Halted {
		m.Halted.Set(1)
	} else {
		m.Halted.Set(0)
	}
	return nil
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _, _ string, err error) error {
	if c, ok := m.Failures[escrow.ErrorKind(err)]; ok {
		c.Inc()
	}
	return nil
}
