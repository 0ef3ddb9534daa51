package schedule

import (
	"fmt"

	"github.com/xraph/escrow/types"
)

// Earned returns the cumulative amount of total released by the schedule at
// the timeline's effective instant. The result never exceeds total and never
// decreases as effective time advances.
func (s Schedule) Earned(total uint64, tl Timeline) (uint64, error) {
	switch s.Kind {
	case KindImmediate:
		return total, nil

	case KindLinear:
		if s.Linear == nil {
			return 0, fmt.Errorf("%w: linear schedule without window", ErrInvalidSchedule)
		}
		return s.Linear.earned(total, tl)

	case KindMilestone:
		done, err := completedSum(s.Milestones)
		if err != nil {
			return 0, err
		}
		if done > total {
			return 0, fmt.Errorf("%w: completed %d exceeds total %d", ErrMilestoneSum, done, total)
		}
		return done, nil

	case KindHybrid:
		h := s.Hybrid
		if h == nil {
			return 0, fmt.Errorf("%w: hybrid schedule without configuration", ErrInvalidSchedule)
		}
		linear, err := h.Linear.earned(h.LinearPortion, tl)
		if err != nil {
			return 0, err
		}
		done, err := completedSum(h.Milestones)
		if err != nil {
			return 0, err
		}
		earned, err := types.Add(linear, done)
		if err != nil {
			return 0, err
		}
		if earned > total {
			return 0, fmt.Errorf("%w: earned %d exceeds total %d", ErrMilestoneSum, earned, total)
		}
		return earned, nil

	case KindCustom:
		return 0, ErrUnsupported

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

// earned releases amount over the window. The deadline is pushed out by the
// paused time while the ratio's denominator stays the original duration.
// Both are taken at nanosecond precision so windows that are not whole
// seconds do not saturate early.
func (l LinearConfig) earned(amount uint64, tl Timeline) (uint64, error) {
	if tl.Now.Before(l.Start) {
		return 0, nil
	}
	if !tl.Now.Before(l.End.Add(tl.Paused)) {
		return amount, nil
	}

	elapsed := types.SatSub(types.Elapsed(l.Start, tl.Now), tl.Paused)
	return l.Curve.Apply(amount, types.Nanos(elapsed), types.Nanos(l.Duration()))
}

func completedSum(conds []Condition) (uint64, error) {
	var sum uint64
	for _, c := range conds {
		if !c.Completed {
			continue
		}
		var err error
		if sum, err = types.Add(sum, c.Amount); err != nil {
			return 0, err
		}
	}
	return sum, nil
}
