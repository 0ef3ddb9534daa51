// Package schedule defines release schedules: the policy that decides how
// much of an account's pool has been earned at a point in time.
//
// A Schedule is a closed tagged union. Every operation dispatches on Kind
// exhaustively, and Custom schedules are accepted only when policy allows
// and are never evaluated.
package schedule

import (
	"errors"
	"slices"
	"time"

	"github.com/xraph/escrow/curve"
	"github.com/xraph/escrow/id"
)

var (
	ErrInvalidSchedule      = errors.New("escrow: invalid release schedule")
	ErrUnknownKind          = errors.New("escrow: unknown schedule kind")
	ErrUnsupported          = errors.New("escrow: unsupported schedule")
	ErrInvalidTimeRange     = errors.New("escrow: invalid time range")
	ErrDurationTooLong      = errors.New("escrow: schedule duration exceeds maximum")
	ErrInvalidDuration      = errors.New("escrow: schedule duration is not a supported preset")
	ErrMilestoneSum         = errors.New("escrow: milestone amounts do not match assigned portion")
	ErrInvalidMilestone     = errors.New("escrow: invalid milestone condition")
	ErrNoMilestones         = errors.New("escrow: schedule has no milestones")
	ErrMilestoneNotFound    = errors.New("escrow: milestone not found")
	ErrMilestoneCompleted   = errors.New("escrow: milestone already completed")
	ErrUnauthorizedApprover = errors.New("escrow: signer is not the milestone approver")
)

// Kind tags the schedule variant.
type Kind string

const (
	KindImmediate Kind = "immediate"
	KindLinear    Kind = "linear"
	KindMilestone Kind = "milestone"
	KindHybrid    Kind = "hybrid"
	KindCustom    Kind = "custom"
)

// Schedule is a release policy. Only the payload matching Kind is set.
type Schedule struct {
	Kind       Kind          `json:"kind" yaml:"kind"`
	Linear     *LinearConfig `json:"linear,omitempty" yaml:"linear,omitempty"`
	Milestones []Condition   `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	Hybrid     *HybridConfig `json:"hybrid,omitempty" yaml:"hybrid,omitempty"`
	Custom     *CustomConfig `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// LinearConfig describes a time window released along a curve.
type LinearConfig struct {
	Start time.Time   `json:"start" yaml:"start"`
	End   time.Time   `json:"end" yaml:"end"`
	Curve curve.Curve `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// Duration is the original, unpaused length of the window.
func (l LinearConfig) Duration() time.Duration {
	return l.End.Sub(l.Start)
}

// Condition is a milestone: a fixed amount released when its approver
// marks it complete.
type Condition struct {
	ID          id.MilestoneID `json:"id" yaml:"id"`
	Amount      uint64         `json:"amount" yaml:"amount"`
	Approver    string         `json:"approver" yaml:"approver"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Completed   bool           `json:"completed" yaml:"completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

type HybridConfig struct {
	LinearPortion    uint64       `json:"linear_portion" yaml:"linear_portion"`
	MilestonePortion uint64       `json:"milestone_portion" yaml:"milestone_portion"`
	Linear           LinearConfig `json:"linear" yaml:"linear"`
	Milestones       []Condition  `json:"milestones" yaml:"milestones"`
}

// CustomConfig is opaque policy data owned by an external program.
type CustomConfig struct {
	Data []byte `json:"data" yaml:"data"`
}

// Timeline is the pause-adjusted view of time a schedule is evaluated
// against. Now is the effective instant (frozen while paused) and Paused the
// total time spent paused before it.
type Timeline struct {
	Now    time.Time
	Paused time.Duration
}

// At returns a Timeline with no pause history.
func At(now time.Time) Timeline {
	return Timeline{Now: now}
}

// ──────────────────────────────────────────────────
// Constructors
// ──────────────────────────────────────────────────

// Immediate releases the whole pool as soon as the account is active.
func Immediate() Schedule {
	return Schedule{Kind: KindImmediate}
}

// Linear releases the pool over [start, end) along c.
func Linear(start, end time.Time, c curve.Curve) Schedule {
	return Schedule{Kind: KindLinear, Linear: &LinearConfig{Start: start, End: end, Curve: c}}
}

// Milestones releases the pool in approver-confirmed chunks.
func Milestones(conditions ...Condition) Schedule {
	return Schedule{Kind: KindMilestone, Milestones: conditions}
}

// Hybrid splits the pool into a time-released portion and a milestone
// portion.
func Hybrid(linearPortion, milestonePortion uint64, linear LinearConfig, conditions ...Condition) Schedule {
	return Schedule{Kind: KindHybrid, Hybrid: &HybridConfig{
		LinearPortion:    linearPortion,
		MilestonePortion: milestonePortion,
		Linear:           linear,
		Milestones:       conditions,
	}}
}

// Custom wraps opaque policy data.
func Custom(data []byte) Schedule {
	return Schedule{Kind: KindCustom, Custom: &CustomConfig{Data: data}}
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Window returns the time window of a linear or hybrid schedule.
func (s Schedule) Window() (start, end time.Time, ok bool) {
	if lc := s.linearConfig(); lc != nil {
		return lc.Start, lc.End, true
	}
	return time.Time{}, time.Time{}, false
}

// TimeBased reports whether any part of the schedule accrues with time.
func (s Schedule) TimeBased() bool {
	return s.linearConfig() != nil
}

// Conditions returns the milestone conditions of a milestone or hybrid
// schedule.
func (s Schedule) Conditions() []Condition {
	switch s.Kind {
	case KindMilestone:
		return s.Milestones
	case KindHybrid:
		if s.Hybrid != nil {
			return s.Hybrid.Milestones
		}
	}
	return nil
}

// AssignIDs gives every condition without an ID a fresh milestone ID.
func (s *Schedule) AssignIDs() {
	conds := s.mutableConditions()
	for i := range conds {
		if conds[i].ID.IsNil() {
			conds[i].ID = id.NewMilestoneID()
		}
	}
}

// Clone returns a deep copy.
func (s Schedule) Clone() Schedule {
	out := Schedule{Kind: s.Kind, Milestones: cloneConditions(s.Milestones)}
	if s.Linear != nil {
		lc := *s.Linear
		out.Linear = &lc
	}
	if s.Hybrid != nil {
		h := *s.Hybrid
		h.Milestones = cloneConditions(s.Hybrid.Milestones)
		out.Hybrid = &h
	}
	if s.Custom != nil {
		out.Custom = &CustomConfig{Data: slices.Clone(s.Custom.Data)}
	}
	return out
}

func (s Schedule) linearConfig() *LinearConfig {
	switch s.Kind {
	case KindLinear:
		return s.Linear
	case KindHybrid:
		if s.Hybrid != nil {
			return &s.Hybrid.Linear
		}
	}
	return nil
}

func (s *Schedule) mutableConditions() []Condition {
	switch s.Kind {
	case KindMilestone:
		return s.Milestones
	case KindHybrid:
		if s.Hybrid != nil {
			return s.Hybrid.Milestones
		}
	}
	return nil
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		if c.CompletedAt != nil {
			at := *c.CompletedAt
			c.CompletedAt = &at
		}
		out[i] = c
	}
	return out
}
