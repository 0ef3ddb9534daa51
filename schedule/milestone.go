package schedule

import (
	"fmt"
	"time"

	"github.com/xraph/escrow/id"
)

// Complete marks the condition identified by milestoneID as completed by
// signer at the given instant and returns the updated condition.
// Completing a condition twice is an error.
func (s *Schedule) Complete(milestoneID id.MilestoneID, signer string, at time.Time) (Condition, error) {
	switch s.Kind {
	case KindMilestone, KindHybrid:
	default:
		return Condition{}, fmt.Errorf("%w: %s schedule", ErrNoMilestones, s.Kind)
	}

	conds := s.mutableConditions()
	for i := range conds {
		c := &conds[i]
		if c.ID != milestoneID {
			continue
		}
		if c.Completed {
			return *c, fmt.Errorf("%w: %s", ErrMilestoneCompleted, milestoneID)
		}
		if signer != c.Approver {
			return *c, fmt.Errorf("%w: %s", ErrUnauthorizedApprover, milestoneID)
		}
		at = at.UTC()
		c.Completed = true
		c.CompletedAt = &at
		return *c, nil
	}
	return Condition{}, fmt.Errorf("%w: %s", ErrMilestoneNotFound, milestoneID)
}

// Condition returns the condition identified by milestoneID.
func (s Schedule) Condition(milestoneID id.MilestoneID) (Condition, bool) {
	for _, c := range s.Conditions() {
		if c.ID == milestoneID {
			return c, true
		}
	}
	return Condition{}, false
}
