package escrow

import (
	"errors"
	"fmt"

	"github.com/xraph/go-utils/errs"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/asset"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/token"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
	"github.com/xraph/escrow/withdrawal"
)

// Sentinel errors for common failure scenarios. Errors returned by the
// engine wrap one of these, so errors.Is works against either the root
// sentinel or the one re-exported from its package.
var (
	// Validation errors
	ErrInvalidInput     = errors.New("escrow: invalid input")
	ErrZeroAmount       = errors.New("escrow: amount must be positive")
	ErrExceedsTotal     = errors.New("escrow: deposit exceeds total amount")
	ErrInvalidExpiry    = errors.New("escrow: expiry must be in the future")
	ErrBelowEscrowMin   = errors.New("escrow: total below minimum escrow amount")
	ErrInvalidSchedule  = schedule.ErrInvalidSchedule
	ErrUnknownSchedule  = schedule.ErrUnknownKind
	ErrUnsupported      = schedule.ErrUnsupported
	ErrInvalidTimeRange = schedule.ErrInvalidTimeRange
	ErrDurationTooLong  = schedule.ErrDurationTooLong
	ErrInvalidDuration  = schedule.ErrInvalidDuration
	ErrMilestoneSum     = schedule.ErrMilestoneSum
	ErrInvalidMilestone = schedule.ErrInvalidMilestone
	ErrNoMilestones     = schedule.ErrNoMilestones
	ErrUnknownAuthority = authority.ErrUnknownKind
	ErrMissingProgram   = authority.ErrMissingProgram
	ErrMissingArbiter   = authority.ErrMissingArbiter
	ErrUnexpectedProg   = authority.ErrUnexpectedProgram
	ErrInvalidConfig    = policy.ErrInvalidConfig

	// State errors
	ErrInvalidStatus       = account.ErrInvalidStatus
	ErrInvalidTransition   = account.ErrInvalidTransition
	ErrAlreadyPaused       = pause.ErrAlreadyPaused
	ErrNotPaused           = pause.ErrNotPaused
	ErrPauseCapReached     = pause.ErrCapReached
	ErrExcessivePause      = pause.ErrExcessivePause
	ErrConcurrentOperation = errors.New("escrow: concurrent operation in the same slot")
	ErrNotStarted          = errors.New("escrow: release window has not started")
	ErrNotEnded            = errors.New("escrow: account has not ended")
	ErrNoFunds             = errors.New("escrow: no funds left to release")
	ErrNothingAvailable    = withdrawal.ErrNothingAvailable
	ErrMilestoneNotFound   = schedule.ErrMilestoneNotFound
	ErrMilestoneCompleted  = schedule.ErrMilestoneCompleted
	ErrAlreadyInitialized  = policy.ErrAlreadyInitialized
	ErrNotInitialized      = policy.ErrNotInitialized
	ErrIncompatibleVersion = policy.ErrIncompatibleVersion
	ErrConflict            = account.ErrConflict

	// Arithmetic errors
	ErrOverflow     = types.ErrOverflow
	ErrUnderflow    = types.ErrUnderflow
	ErrDivideByZero = types.ErrDivideByZero
	ErrPrecision    = types.ErrPrecision
	ErrInconsistent = withdrawal.ErrInconsistent
	ErrInvariant    = account.ErrInvariant

	// Policy errors
	ErrBelowMinimum         = withdrawal.ErrBelowMinimum
	ErrUnauthorized         = errors.New("escrow: signer not permitted")
	ErrUnauthorizedApprover = schedule.ErrUnauthorizedApprover
	ErrNotAdmin             = policy.ErrNotAdmin
	ErrFrozen               = asset.ErrFrozen
	ErrAssetNotAllowed      = asset.ErrAssetNotAllowed
	ErrExpired              = errors.New("escrow: account expired")
	ErrHalted               = policy.ErrHalted

	// Not found errors
	ErrAccountNotFound  = account.ErrNotFound
	ErrTransferNotFound = transfer.ErrNotFound
	ErrUnknownAsset     = asset.ErrUnknownAsset

	// Store errors
	ErrAlreadyExists = store.ErrAlreadyExists

	// Token ledger errors
	ErrInsufficientFunds = token.ErrInsufficientFunds
	ErrTokenUnauthorized = token.ErrUnauthorized
	ErrTokenAccount      = token.ErrUnknownAccount
	ErrAccountClosed     = token.ErrAccountClosed
	ErrNonZeroBalance    = token.ErrNonZeroBalance
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	// KindValidation is malformed input; retry with corrected input.
	KindValidation Kind = "validation"
	// KindState is a lifecycle or concurrency rejection; re-read and retry.
	KindState Kind = "state"
	// KindArithmetic is a checked arithmetic failure; fatal for the call.
	KindArithmetic Kind = "arithmetic"
	// KindPolicy is a refusal by policy: authority, limits, freezes.
	KindPolicy Kind = "policy"
	// KindNotFound is a missing record.
	KindNotFound Kind = "not_found"
	// KindExternal is a failure reported by the token ledger or the store.
	KindExternal Kind = "external"
	// KindUnknown is anything else.
	KindUnknown Kind = "unknown"
)

var kinds = []struct {
	kind     Kind
	code     string
	sentinel []error
}{
	{KindNotFound, errs.CodeNotFound, []error{
		ErrAccountNotFound, ErrTransferNotFound, ErrUnknownAsset, ErrMilestoneNotFound,
	}},
	{KindArithmetic, errs.CodeInternal, []error{
		ErrOverflow, ErrUnderflow, ErrDivideByZero, ErrPrecision, ErrInconsistent, ErrInvariant,
	}},
	{KindValidation, errs.CodeValidation, []error{
		ErrInvalidInput, ErrZeroAmount, ErrExceedsTotal, ErrInvalidExpiry, ErrBelowEscrowMin,
		ErrInvalidSchedule, ErrUnknownSchedule, ErrUnsupported, ErrInvalidTimeRange,
		ErrDurationTooLong, ErrInvalidDuration, ErrMilestoneSum, ErrInvalidMilestone,
		ErrNoMilestones, ErrUnknownAuthority, ErrMissingProgram, ErrMissingArbiter,
		ErrUnexpectedProg, ErrInvalidConfig, token.ErrInvalidAmount,
	}},
	{KindState, errs.CodeConflict, []error{
		ErrInvalidStatus, ErrInvalidTransition, ErrAlreadyPaused, ErrNotPaused,
		ErrPauseCapReached, ErrExcessivePause, ErrConcurrentOperation, ErrNotStarted,
		ErrNotEnded, ErrNoFunds, ErrNothingAvailable, ErrMilestoneCompleted,
		ErrAlreadyInitialized, ErrNotInitialized, ErrIncompatibleVersion, ErrConflict,
	}},
	{KindPolicy, errs.CodePermissionDenied, []error{
		ErrBelowMinimum, ErrUnauthorized, ErrUnauthorizedApprover, ErrNotAdmin, ErrFrozen,
		ErrAssetNotAllowed, ErrExpired, ErrHalted,
	}},
	{KindExternal, errs.CodeUnavailable, []error{
		ErrAlreadyExists, ErrInsufficientFunds, ErrTokenUnauthorized, ErrTokenAccount,
		ErrAccountClosed, ErrNonZeroBalance, token.ErrAccountExists,
	}},
}

// ErrorKind classifies err. Errors that wrap no known sentinel are
// KindUnknown.
func ErrorKind(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		for _, s := range k.sentinel {
			if errors.Is(err, s) {
				return k.kind
			}
		}
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindUnknown
}

func codeOf(kind Kind) string {
	for _, k := range kinds {
		if k.kind == kind {
			return k.code
		}
	}
	return errs.CodeInternal
}

// opError wraps cause in a structured error naming the operation and
// carrying key/value context such as the account ID and amounts involved.
func opError(op string, cause error, kv ...any) error {
	if cause == nil {
		return nil
	}
	e := errs.NewError(codeOf(ErrorKind(cause)), "escrow: "+op, cause)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e.WithContext(key, kv[i+1])
	}
	return e
}

// ErrorContext returns the context attached to an engine error, or nil.
func ErrorContext(err error) map[string]any {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.GetContext()
	}
	return nil
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("escrow: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "escrow: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("escrow: %d errors occurred", len(e.Errors))
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Err returns nil when empty, the single error when there is one, and e
// otherwise.
func (e MultiError) Err() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return ErrorKind(err) == KindNotFound
}

// IsValidation returns true if the error was caused by malformed input.
func IsValidation(err error) bool {
	return ErrorKind(err) == KindValidation
}

// IsStateError returns true if the account was in the wrong state for the
// operation.
func IsStateError(err error) bool {
	return ErrorKind(err) == KindState
}

// IsPolicyError returns true if the operation was refused by policy.
func IsPolicyError(err error) bool {
	return ErrorKind(err) == KindPolicy
}

// IsArithmetic returns true if checked arithmetic failed.
func IsArithmetic(err error) bool {
	return ErrorKind(err) == KindArithmetic
}

// IsRetryable returns true if the error is temporary and the whole operation
// can be retried after re-reading the account.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentOperation) ||
		errors.Is(err, ErrConflict)
}
