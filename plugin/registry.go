package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/transfer"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onAccountCreated     []OnAccountCreated
	onDeposit            []OnDeposit
	onWithdrawal         []OnWithdrawal
	onBelowMinimum       []OnBelowMinimum
	onPaused             []OnPaused
	onResumed            []OnResumed
	onMilestoneCompleted []OnMilestoneCompleted
	onScheduleUpdated    []OnScheduleUpdated
	onStatusChanged      []OnStatusChanged
	onAccountClosed      []OnAccountClosed
	onConfigChanged      []OnConfigChanged
	onOperationFailed    []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnWithdrawal); ok {
		r.onWithdrawal = append(r.onWithdrawal, v)
	}
	if v, ok := p.(OnBelowMinimum); ok {
		r.onBelowMinimum = append(r.onBelowMinimum, v)
	}
	if v, ok := p.(OnPaused); ok {
		r.onPaused = append(r.onPaused, v)
	}
	if v, ok := p.(OnResumed); ok {
		r.onResumed = append(r.onResumed, v)
	}
	if v, ok := p.(OnMilestoneCompleted); ok {
		r.onMilestoneCompleted = append(r.onMilestoneCompleted, v)
	}
	if v, ok := p.(OnScheduleUpdated); ok {
		r.onScheduleUpdated = append(r.onScheduleUpdated, v)
	}
	if v, ok := p.(OnStatusChanged); ok {
		r.onStatusChanged = append(r.onStatusChanged, v)
	}
	if v, ok := p.(OnAccountClosed); ok {
		r.onAccountClosed = append(r.onAccountClosed, v)
	}
	if v, ok := p.(OnConfigChanged); ok {
		r.onConfigChanged = append(r.onConfigChanged, v)
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnAccountCreated](), "OnAccountCreated"},
	{reflect.TypeFor[OnDeposit](), "OnDeposit"},
	{reflect.TypeFor[OnWithdrawal](), "OnWithdrawal"},
	{reflect.TypeFor[OnBelowMinimum](), "OnBelowMinimum"},
	{reflect.TypeFor[OnPaused](), "OnPaused"},
	{reflect.TypeFor[OnResumed](), "OnResumed"},
	{reflect.TypeFor[OnMilestoneCompleted](), "OnMilestoneCompleted"},
	{reflect.TypeFor[OnScheduleUpdated](), "OnScheduleUpdated"},
	{reflect.TypeFor[OnStatusChanged](), "OnStatusChanged"},
	{reflect.TypeFor[OnAccountClosed](), "OnAccountClosed"},
	{reflect.TypeFor[OnConfigChanged](), "OnConfigChanged"},
	{reflect.TypeFor[OnOperationFailed](), "OnOperationFailed"},
}

// implementedInterfaces returns the hook names implemented by p.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit runs call for every plugin in hooks, logging failures. Hook errors
// never reach the caller: the engine operation has already committed.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, hooks []T, call func(T) error) {
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// snapshot copies a cached hook list under the read lock.
func snapshot[T any](r *Registry, list *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *list
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	emit(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, a *account.Account) {
	emit(ctx, r, "OnAccountCreated", snapshot(r, &r.onAccountCreated), func(p OnAccountCreated) error {
		return p.OnAccountCreated(ctx, a)
	})
}

// EmitDeposit emits a deposit event.
func (r *Registry) EmitDeposit(ctx context.Context, a *account.Account, rec *transfer.Record) {
	emit(ctx, r, "OnDeposit", snapshot(r, &r.onDeposit), func(p OnDeposit) error {
		return p.OnDeposit(ctx, a, rec)
	})
}

// EmitWithdrawal emits a withdrawal event.
func (r *Registry) EmitWithdrawal(ctx context.Context, a *account.Account, rec *transfer.Record) {
	emit(ctx, r, "OnWithdrawal", snapshot(r, &r.onWithdrawal), func(p OnWithdrawal) error {
		return p.OnWithdrawal(ctx, a, rec)
	})
}

// EmitBelowMinimum emits a below-minimum withdrawal event.
func (r *Registry) EmitBelowMinimum(ctx context.Context, a *account.Account, dust, minimum uint64) {
	emit(ctx, r, "OnBelowMinimum", snapshot(r, &r.onBelowMinimum), func(p OnBelowMinimum) error {
		return p.OnBelowMinimum(ctx, a, dust, minimum)
	})
}

// EmitPaused emits a paused event.
func (r *Registry) EmitPaused(ctx context.Context, a *account.Account) {
	emit(ctx, r, "OnPaused", snapshot(r, &r.onPaused), func(p OnPaused) error {
		return p.OnPaused(ctx, a)
	})
}

// EmitResumed emits a resumed event.
func (r *Registry) EmitResumed(ctx context.Context, a *account.Account, pausedFor time.Duration) {
	emit(ctx, r, "OnResumed", snapshot(r, &r.onResumed), func(p OnResumed) error {
		return p.OnResumed(ctx, a, pausedFor)
	})
}

// EmitMilestoneCompleted emits a milestone completed event.
func (r *Registry) EmitMilestoneCompleted(ctx context.Context, a *account.Account, c schedule.Condition) {
	emit(ctx, r, "OnMilestoneCompleted", snapshot(r, &r.onMilestoneCompleted), func(p OnMilestoneCompleted) error {
		return p.OnMilestoneCompleted(ctx, a, c)
	})
}

// EmitScheduleUpdated emits a schedule updated event.
func (r *Registry) EmitScheduleUpdated(ctx context.Context, a *account.Account, previous schedule.Schedule) {
	emit(ctx, r, "OnScheduleUpdated", snapshot(r, &r.onScheduleUpdated), func(p OnScheduleUpdated) error {
		return p.OnScheduleUpdated(ctx, a, previous)
	})
}

// EmitStatusChanged emits a status transition event. Nothing is emitted
// when from equals to.
func (r *Registry) EmitStatusChanged(ctx context.Context, a *account.Account, from, to account.Status) {
	if from == to {
		return
	}
	emit(ctx, r, "OnStatusChanged", snapshot(r, &r.onStatusChanged), func(p OnStatusChanged) error {
		return p.OnStatusChanged(ctx, a, from, to)
	})
}

// EmitAccountClosed emits an account closed event.
func (r *Registry) EmitAccountClosed(ctx context.Context, a *account.Account, refund *transfer.Record) {
	emit(ctx, r, "OnAccountClosed", snapshot(r, &r.onAccountClosed), func(p OnAccountClosed) error {
		return p.OnAccountClosed(ctx, a, refund)
	})
}

// EmitConfigChanged emits a configuration changed event.
func (r *Registry) EmitConfigChanged(ctx context.Context, c *policy.Config) {
	emit(ctx, r, "OnConfigChanged", snapshot(r, &r.onConfigChanged), func(p OnConfigChanged) error {
		return p.OnConfigChanged(ctx, c)
	})
}

// EmitOperationFailed emits an operation failure event.
func (r *Registry) EmitOperationFailed(ctx context.Context, op, accountID string, err error) {
	emit(ctx, r, "OnOperationFailed", snapshot(r, &r.onOperationFailed), func(p OnOperationFailed) error {
		return p.OnOperationFailed(ctx, op, accountID, err)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the release pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
