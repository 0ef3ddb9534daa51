package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/escrow/types"
)

// Limits carries the policy a schedule is validated against.
type Limits struct {
	// MaxDuration caps the window of time-based schedules. Zero means no cap.
	MaxDuration time.Duration
	// AllowCustom admits opaque custom schedules.
	AllowCustom bool
	// RequirePreset restricts linear windows to the week presets.
	RequirePreset bool
}

// Validate checks that the schedule is well formed and accounts for exactly
// total. It runs at account creation and on every replacement, and is a pure
// function of its inputs.
func (s Schedule) Validate(total uint64, limits Limits) error {
	switch s.Kind {
	case KindImmediate:
		return s.onlyPayload()

	case KindLinear:
		if err := s.onlyPayload(); err != nil {
			return err
		}
		if s.Linear == nil {
			return fmt.Errorf("%w: linear schedule without window", ErrInvalidSchedule)
		}
		return s.Linear.validate(limits)

	case KindMilestone:
		if err := s.onlyPayload(); err != nil {
			return err
		}
		if len(s.Milestones) == 0 {
			return ErrNoMilestones
		}
		return validateConditions(s.Milestones, total)

	case KindHybrid:
		if err := s.onlyPayload(); err != nil {
			return err
		}
		h := s.Hybrid
		if h == nil {
			return fmt.Errorf("%w: hybrid schedule without configuration", ErrInvalidSchedule)
		}
		if err := h.Linear.validate(limits); err != nil {
			return err
		}
		combined, err := types.Add(h.LinearPortion, h.MilestonePortion)
		if err != nil {
			return err
		}
		if combined != total {
			return fmt.Errorf("%w: portions %d + %d != total %d",
				ErrMilestoneSum, h.LinearPortion, h.MilestonePortion, total)
		}
		return validateConditions(h.Milestones, h.MilestonePortion)

	case KindCustom:
		if err := s.onlyPayload(); err != nil {
			return err
		}
		if !limits.AllowCustom {
			return ErrUnsupported
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

// onlyPayload rejects schedules carrying a payload for another kind.
func (s Schedule) onlyPayload() error {
	present := []struct {
		kind Kind
		set  bool
	}{
		{KindLinear, s.Linear != nil},
		{KindMilestone, len(s.Milestones) > 0},
		{KindHybrid, s.Hybrid != nil},
		{KindCustom, s.Custom != nil},
	}
	for _, p := range present {
		if p.set && p.kind != s.Kind {
			return fmt.Errorf("%w: %s schedule carries %s payload", ErrInvalidSchedule, s.Kind, p.kind)
		}
	}
	return nil
}

func (l LinearConfig) validate(limits Limits) error {
	if l.Start.IsZero() || l.End.IsZero() || !l.Start.Before(l.End) {
		return fmt.Errorf("%w: start %s must precede end %s",
			ErrInvalidTimeRange, l.Start.Format(time.RFC3339), l.End.Format(time.RFC3339))
	}
	d := l.Duration()
	if d < time.Second {
		return fmt.Errorf("%w: window shorter than one second", ErrInvalidTimeRange)
	}
	if limits.MaxDuration > 0 && d > limits.MaxDuration {
		return fmt.Errorf("%w: %s > %s", ErrDurationTooLong, d, limits.MaxDuration)
	}
	if limits.RequirePreset {
		if _, ok := PresetFor(d); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidDuration, d)
		}
	}
	if !l.Curve.Valid() {
		return fmt.Errorf("%w: curve %q", ErrInvalidSchedule, string(l.Curve))
	}
	return nil
}

func validateConditions(conds []Condition, portion uint64) error {
	var errs []error
	seen := make(map[string]bool, len(conds))
	var sum uint64

	for i, c := range conds {
		switch {
		case c.ID.IsNil():
			errs = append(errs, fmt.Errorf("%w: condition %d has no id", ErrInvalidMilestone, i))
		case seen[c.ID.String()]:
			errs = append(errs, fmt.Errorf("%w: duplicate id %s", ErrInvalidMilestone, c.ID))
		default:
			seen[c.ID.String()] = true
		}
		if c.Amount == 0 {
			errs = append(errs, fmt.Errorf("%w: condition %d has zero amount", ErrInvalidMilestone, i))
		}
		if c.Approver == "" {
			errs = append(errs, fmt.Errorf("%w: condition %d has no approver", ErrInvalidMilestone, i))
		}

		var err error
		if sum, err = types.Add(sum, c.Amount); err != nil {
			return err
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if sum != portion {
		return fmt.Errorf("%w: conditions sum to %d, want %d", ErrMilestoneSum, sum, portion)
	}
	return nil
}
