package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated  = "account.created"
	ActionAccountClosed   = "account.closed"
	ActionStatusChanged   = "account.status_changed"
	ActionScheduleUpdated = "account.schedule_updated"

	// Funds actions
	ActionDeposit      = "funds.deposited"
	ActionWithdrawal   = "funds.withdrawn"
	ActionRefund       = "funds.refunded"
	ActionBelowMinimum = "funds.below_minimum"

	// Release control actions
	ActionPaused             = "release.paused"
	ActionResumed            = "release.resumed"
	ActionMilestoneCompleted = "release.milestone_completed"

	// Engine actions
	ActionConfigChanged   = "config.changed"
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceAccount   = "account"
	ResourceTransfer  = "transfer"
	ResourceMilestone = "milestone"
	ResourceConfig    = "config"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryFunds     = "funds"
	CategoryRelease   = "release"
	CategoryAdmin     = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
