package account

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidStatus     = errors.New("escrow: operation not allowed in current status")
	ErrInvalidTransition = errors.New("escrow: invalid status transition")
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusFunded      Status = "funded"
	StatusActive      Status = "active"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusDisputed    Status = "disputed"
)

var transitions = map[Status][]Status{
	StatusInitialized: {StatusFunded, StatusActive, StatusCancelled},
	StatusFunded:      {StatusFunded, StatusActive, StatusCompleted, StatusCancelled, StatusDisputed},
	StatusActive:      {StatusPaused, StatusCompleted, StatusCancelled, StatusDisputed},
	StatusPaused:      {StatusActive, StatusCancelled, StatusDisputed},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusDisputed:    {StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are defined from s other
// than closing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Transition moves a to status to, or returns ErrInvalidTransition without
// changing a.
func (a *Account) Transition(to Status) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

// Require returns ErrInvalidStatus unless the account is in one of allowed.
func (a *Account) Require(op string, allowed ...Status) error {
	if slices.Contains(allowed, a.Status) {
		return nil
	}
	return fmt.Errorf("%w: %s requires %v, account is %s", ErrInvalidStatus, op, allowed, a.Status)
}
