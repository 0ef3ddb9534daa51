package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledActions sets which actions to audit.
// If not called, all actions are audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithDisabledActions sets which actions to skip.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			// Start with all enabled
			e.enabled = make(map[string]bool)
			// Add all known actions
			for _, action := range allActions() {
				e.enabled[action] = true
			}
		}
		// Disable specified actions
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// WithCategories audits only the actions in the given categories, such as
// CategoryFunds for a money-movement trail.
func WithCategories(categories ...string) Option {
	return func(e *Extension) {
		want := make(map[string]bool, len(categories))
		for _, c := range categories {
			want[c] = true
		}
		e.enabled = make(map[string]bool)
		for action, category := range actionCategories {
			if want[category] {
				e.enabled[action] = true
			}
		}
	}
}

// actionCategories maps each action to the category it is recorded under.
var actionCategories = map[string]string{
	ActionAccountCreated:     CategoryLifecycle,
	ActionAccountClosed:      CategoryLifecycle,
	ActionStatusChanged:      CategoryLifecycle,
	ActionScheduleUpdated:    CategoryLifecycle,
	ActionOperationFailed:    CategoryLifecycle,
	ActionDeposit:            CategoryFunds,
	ActionWithdrawal:         CategoryFunds,
	ActionRefund:             CategoryFunds,
	ActionBelowMinimum:       CategoryFunds,
	ActionPaused:             CategoryRelease,
	ActionResumed:            CategoryRelease,
	ActionMilestoneCompleted: CategoryRelease,
	ActionConfigChanged:      CategoryAdmin,
}

// allActions returns all known audit actions.
func allActions() []string {
	return []string{
		ActionAccountCreated,
		ActionAccountClosed,
		ActionStatusChanged,
		ActionScheduleUpdated,
		ActionDeposit,
		ActionWithdrawal,
		ActionRefund,
		ActionBelowMinimum,
		ActionPaused,
		ActionResumed,
		ActionMilestoneCompleted,
		ActionConfigChanged,
		ActionOperationFailed,
	}
}
