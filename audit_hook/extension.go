// Package audithook bridges escrow lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their trail at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnAccountCreated     = (*Extension)(nil)
	_ plugin.OnDeposit            = (*Extension)(nil)
	_ plugin.OnWithdrawal         = (*Extension)(nil)
	_ plugin.OnBelowMinimum       = (*Extension)(nil)
	_ plugin.OnPaused             = (*Extension)(nil)
	_ plugin.OnResumed            = (*Extension)(nil)
	_ plugin.OnMilestoneCompleted = (*Extension)(nil)
	_ plugin.OnScheduleUpdated    = (*Extension)(nil)
	_ plugin.OnStatusChanged      = (*Extension)(nil)
	_ plugin.OnAccountClosed      = (*Extension)(nil)
	_ plugin.OnConfigChanged      = (*Extension)(nil)
	_ plugin.OnOperationFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges escrow lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, a *account.Account) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryLifecycle, nil,
		"depositor", a.Depositor,
		"beneficiary", a.Beneficiary,
		"asset", a.Asset,
		"total_amount", types.FormatUnits(a.TotalAmount, a.Decimals),
		"schedule", string(a.Schedule.Kind),
		"authority", a.Authority.String(),
	)
}

// OnStatusChanged implements plugin.OnStatusChanged.
func (e *Extension) OnStatusChanged(ctx context.Context, a *account.Account, from, to account.Status) error {
	severity := SeverityInfo
	if to == account.StatusDisputed {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionStatusChanged, severity, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryLifecycle, nil,
		"from", string(from),
		"to", string(to),
	)
}

// OnScheduleUpdated implements plugin.OnScheduleUpdated.
func (e *Extension) OnScheduleUpdated(ctx context.Context, a *account.Account, previous schedule.Schedule) error {
	return e.record(ctx, ActionScheduleUpdated, SeverityWarning, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryLifecycle, nil,
		"previous", string(previous.Kind),
		"schedule", string(a.Schedule.Kind),
		"status", string(a.Status),
	)
}

// OnAccountClosed implements plugin.OnAccountClosed.
func (e *Extension) OnAccountClosed(ctx context.Context, a *account.Account, refund *transfer.Record) error {
	if refund != nil {
		if err := e.record(ctx, ActionRefund, SeverityInfo, OutcomeSuccess,
			ResourceTransfer, refund.ID.String(), CategoryFunds, nil,
			"account_id", a.ID.String(),
			"amount", types.FormatUnits(refund.Amount, a.Decimals),
			"to", refund.To,
			"reference", refund.Reference,
		); err != nil {
			return err
		}
	}
	return e.record(ctx, ActionAccountClosed, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryLifecycle, nil,
		"status", string(a.Status),
		"released", types.FormatUnits(a.ReleasedAmount, a.Decimals),
		"refunded", types.FormatUnits(a.RefundedAmount, a.Decimals),
	)
}

// ──────────────────────────────────────────────────
// Funds hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, a *account.Account, rec *transfer.Record) error {
	return e.transfer(ctx, ActionDeposit, a, rec)
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (e *Extension) OnWithdrawal(ctx context.Context, a *account.Account, rec *transfer.Record) error {
	return e.transfer(ctx, ActionWithdrawal, a, rec)
}

// OnBelowMinimum implements plugin.OnBelowMinimum.
func (e *Extension) OnBelowMinimum(ctx context.Context, a *account.Account, dust, minimum uint64) error {
	return e.record(ctx, ActionBelowMinimum, SeverityInfo, OutcomePartial,
		ResourceAccount, a.ID.String(), CategoryFunds, nil,
		"dust", types.FormatUnits(dust, a.Decimals),
		"minimum", types.FormatUnits(minimum, a.Decimals),
	)
}

func (e *Extension) transfer(ctx context.Context, action string, a *account.Account, rec *transfer.Record) error {
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, rec.ID.String(), CategoryFunds, nil,
		"account_id", a.ID.String(),
		"asset", rec.Asset,
		"amount", types.FormatUnits(rec.Amount, a.Decimals),
		"from", rec.From,
		"to", rec.To,
		"signer", rec.Signer,
		"reference", rec.Reference,
		"slot", rec.Slot,
	)
}

// ──────────────────────────────────────────────────
// Release control hooks
// ──────────────────────────────────────────────────

// OnPaused implements plugin.OnPaused.
func (e *Extension) OnPaused(ctx context.Context, a *account.Account) error {
	return e.record(ctx, ActionPaused, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryRelease, nil,
		"count", a.Pause.Count,
	)
}

// OnResumed implements plugin.OnResumed.
func (e *Extension) OnResumed(ctx context.Context, a *account.Account, pausedFor time.Duration) error {
	return e.record(ctx, ActionResumed, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryRelease, nil,
		"count", a.Pause.Count,
		"paused_for", pausedFor.String(),
		"total_paused", a.Pause.TotalPaused.String(),
	)
}

// OnMilestoneCompleted implements plugin.OnMilestoneCompleted.
func (e *Extension) OnMilestoneCompleted(ctx context.Context, a *account.Account, c schedule.Condition) error {
	return e.record(ctx, ActionMilestoneCompleted, SeverityInfo, OutcomeSuccess,
		ResourceMilestone, c.ID.String(), CategoryRelease, nil,
		"account_id", a.ID.String(),
		"amount", types.FormatUnits(c.Amount, a.Decimals),
		"approver", c.Approver,
	)
}

// ──────────────────────────────────────────────────
// Engine hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (e *Extension) OnConfigChanged(ctx context.Context, c *policy.Config) error {
	return e.record(ctx, ActionConfigChanged, SeverityWarning, OutcomeSuccess,
		ResourceConfig, "", CategoryAdmin, nil,
		"admin", c.Admin,
		"halted", c.Halted,
		"min_escrow_amount", c.MinEscrowAmount,
		"max_escrow_duration", c.MaxEscrowDuration.String(),
		"max_pause_resume_count", c.MaxPauseResumeCount,
	)
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (e *Extension) OnOperationFailed(ctx context.Context, op, accountID string, err error) error {
	return e.record(ctx, ActionOperationFailed, SeverityError, OutcomeFailure,
		ResourceAccount, accountID, CategoryLifecycle, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
