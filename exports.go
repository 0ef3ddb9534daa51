package escrow

import (
	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/authority"
	"github.com/xraph/escrow/curve"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/types"
)

// Re-export common types so callers building schedules and reading accounts
// don't have to import every package.

// Account is re-exported from the account package.
type Account = account.Account

// Status is re-exported from the account package.
type Status = account.Status

// Schedule is re-exported from the schedule package.
type Schedule = schedule.Schedule

// Condition is re-exported from the schedule package.
type Condition = schedule.Condition

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export schedule constructors
var (
	Immediate  = schedule.Immediate
	Linear     = schedule.Linear
	Milestones = schedule.Milestones
	Hybrid     = schedule.Hybrid
	Custom     = schedule.Custom
)

// Re-export curves
const (
	CurveLinear    = curve.Linear
	CurveQuadratic = curve.Quadratic
	CurveCubic     = curve.Cubic
)

// Re-export authority constructors
var (
	AuthorityOf = authority.Of
	Delegated   = authority.Delegated
)
