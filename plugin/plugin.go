// Package plugin provides an extensible plugin system for the escrow engine.
// Plugins hook into account lifecycle events to add auditing, metrics or
// notifications without touching the release logic.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called after a new account is persisted.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, a *account.Account) error
}

// OnDeposit is called after funds are moved into an account's vault.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, a *account.Account, rec *transfer.Record) error
}

// OnWithdrawal is called after funds are released to the beneficiary.
type OnWithdrawal interface {
	Plugin
	OnWithdrawal(ctx context.Context, a *account.Account, rec *transfer.Record) error
}

// OnBelowMinimum is called when a withdrawal was refused because the
// releasable amount was under the asset minimum. dust is the amount
// recorded on the account.
type OnBelowMinimum interface {
	Plugin
	OnBelowMinimum(ctx context.Context, a *account.Account, dust, minimum uint64) error
}

// OnPaused is called after an account is paused.
type OnPaused interface {
	Plugin
	OnPaused(ctx context.Context, a *account.Account) error
}

// OnResumed is called after an account is resumed. pausedFor is the length
// of the pause that just ended.
type OnResumed interface {
	Plugin
	OnResumed(ctx context.Context, a *account.Account, pausedFor time.Duration) error
}

// OnMilestoneCompleted is called after a milestone is marked complete.
type OnMilestoneCompleted interface {
	Plugin
	OnMilestoneCompleted(ctx context.Context, a *account.Account, c schedule.Condition) error
}

// OnScheduleUpdated is called after an account's schedule is replaced.
type OnScheduleUpdated interface {
	Plugin
	OnScheduleUpdated(ctx context.Context, a *account.Account, previous schedule.Schedule) error
}

// OnStatusChanged is called after any committed status transition.
type OnStatusChanged interface {
	Plugin
	OnStatusChanged(ctx context.Context, a *account.Account, from, to account.Status) error
}

// OnAccountClosed is called after an account is closed. refund is nil when
// the vault was empty.
type OnAccountClosed interface {
	Plugin
	OnAccountClosed(ctx context.Context, a *account.Account, refund *transfer.Record) error
}

// ──────────────────────────────────────────────────
// Engine hooks
// ──────────────────────────────────────────────────

// OnConfigChanged is called after the engine configuration is saved.
type OnConfigChanged interface {
	Plugin
	OnConfigChanged(ctx context.Context, c *policy.Config) error
}

// OnOperationFailed is called when an engine operation is rejected or fails.
// accountID is empty for operations not bound to an account.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op, accountID string, err error) error
}
