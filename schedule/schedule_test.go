package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/escrow/curve"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/schedule"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func conditions(approver string, amounts ...uint64) []schedule.Condition {
	out := make([]schedule.Condition, len(amounts))
	for i, a := range amounts {
		out[i] = schedule.Condition{ID: id.NewMilestoneID(), Amount: a, Approver: approver}
	}
	return out
}

func TestEarnedLinear(t *testing.T) {
	tests := []struct {
		name  string
		curve curve.Curve
		now   int
		want  uint64
	}{
		{"before start", curve.Linear, -10, 0},
		{"at start", curve.Linear, 0, 0},
		{"quarter", curve.Linear, 25, 250},
		{"half", curve.Linear, 50, 500},
		{"past end", curve.Linear, 150, 1000},
		{"quadratic half", curve.Quadratic, 50, 250},
		{"quadratic 70", curve.Quadratic, 70, 490},
		{"quadratic end", curve.Quadratic, 100, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := schedule.Linear(at(0), at(100), tt.curve)
			got, err := s.Earned(1000, schedule.At(at(tt.now)))
			if err != nil {
				t.Fatalf("Earned: %v", err)
			}
			if got != tt.want {
				t.Errorf("Earned(%d) = %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}

func TestEarnedFractionalWindow(t *testing.T) {
	s := schedule.Linear(epoch, epoch.Add(1500*time.Millisecond), curve.Linear)
	if err := s.Validate(1000, schedule.Limits{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	tests := []struct {
		after time.Duration
		want  uint64
	}{
		{600 * time.Millisecond, 400},
		{1200 * time.Millisecond, 800},
		{1499 * time.Millisecond, 999},
		{1500 * time.Millisecond, 1000},
	}
	for _, tt := range tests {
		got, err := s.Earned(1000, schedule.At(epoch.Add(tt.after)))
		if err != nil {
			t.Fatalf("Earned: %v", err)
		}
		if got != tt.want {
			t.Errorf("Earned(%s) = %d, want %d", tt.after, got, tt.want)
		}
	}
}

func TestEarnedWithPausedTime(t *testing.T) {
	s := schedule.Linear(at(0), at(100), curve.Linear)

	// Paused from 10 to 20, queried at 60: same as unpaused at 50.
	got, err := s.Earned(1000, schedule.Timeline{Now: at(60), Paused: 10 * time.Second})
	if err != nil {
		t.Fatalf("Earned: %v", err)
	}
	if got != 500 {
		t.Errorf("Earned = %d, want 500", got)
	}

	// The deadline moves out by the paused time.
	got, _ = s.Earned(1000, schedule.Timeline{Now: at(105), Paused: 10 * time.Second})
	if got != 950 {
		t.Errorf("Earned before shifted end = %d, want 950", got)
	}
	got, _ = s.Earned(1000, schedule.Timeline{Now: at(110), Paused: 10 * time.Second})
	if got != 1000 {
		t.Errorf("Earned at shifted end = %d, want 1000", got)
	}
}

func TestEarnedMonotonic(t *testing.T) {
	for _, c := range []curve.Curve{curve.Linear, curve.Quadratic, curve.Cubic} {
		s := schedule.Linear(at(0), at(3_600), c)
		var prev uint64
		for sec := -60; sec <= 3_700; sec += 7 {
			got, err := s.Earned(1_000_000_007, schedule.At(at(sec)))
			if err != nil {
				t.Fatalf("%s: Earned(%d): %v", c, sec, err)
			}
			if got < prev {
				t.Fatalf("%s: Earned decreased at %d: %d < %d", c, sec, got, prev)
			}
			if got > 1_000_000_007 {
				t.Fatalf("%s: Earned(%d) = %d exceeds total", c, sec, got)
			}
			prev = got
		}
	}
}

func TestEarnedMilestone(t *testing.T) {
	conds := conditions("arbiter", 400, 600)
	s := schedule.Milestones(conds...)

	got, err := s.Earned(1000, schedule.At(epoch))
	if err != nil || got != 0 {
		t.Fatalf("Earned = %d, %v; want 0", got, err)
	}

	done, err := s.Complete(conds[0].ID, "arbiter", epoch)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Errorf("returned condition not completed: %+v", done)
	}

	got, _ = s.Earned(1000, schedule.At(epoch))
	if got != 400 {
		t.Errorf("Earned after completion = %d, want 400", got)
	}

	if _, err := s.Complete(conds[0].ID, "arbiter", epoch); !errors.Is(err, schedule.ErrMilestoneCompleted) {
		t.Errorf("second completion err = %v, want ErrMilestoneCompleted", err)
	}
	got, _ = s.Earned(1000, schedule.At(epoch))
	if got != 400 {
		t.Errorf("Earned after rejected completion = %d, want 400", got)
	}
}

func TestCompleteErrors(t *testing.T) {
	conds := conditions("arbiter", 1000)
	s := schedule.Milestones(conds...)

	if _, err := s.Complete(conds[0].ID, "mallory", epoch); !errors.Is(err, schedule.ErrUnauthorizedApprover) {
		t.Errorf("wrong approver err = %v", err)
	}
	if _, err := s.Complete(id.NewMilestoneID(), "arbiter", epoch); !errors.Is(err, schedule.ErrMilestoneNotFound) {
		t.Errorf("unknown milestone err = %v", err)
	}

	lin := schedule.Linear(at(0), at(100), curve.Linear)
	if _, err := lin.Complete(conds[0].ID, "arbiter", epoch); !errors.Is(err, schedule.ErrNoMilestones) {
		t.Errorf("linear complete err = %v", err)
	}
}

func TestEarnedHybrid(t *testing.T) {
	conds := conditions("arbiter", 200, 300)
	s := schedule.Hybrid(500, 500, schedule.LinearConfig{Start: at(0), End: at(100), Curve: curve.Quadratic}, conds...)
	if err := s.Validate(1000, schedule.Limits{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got, err := s.Earned(1000, schedule.At(at(50)))
	if err != nil {
		t.Fatalf("Earned: %v", err)
	}
	if got != 125 {
		t.Errorf("Earned = %d, want 125", got)
	}

	if _, err := s.Complete(conds[1].ID, "arbiter", at(50)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = s.Earned(1000, schedule.At(at(50)))
	if got != 425 {
		t.Errorf("Earned = %d, want 425", got)
	}

	if _, err := s.Complete(conds[0].ID, "arbiter", at(200)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = s.Earned(1000, schedule.At(at(200)))
	if got != 1000 {
		t.Errorf("Earned at full = %d, want 1000", got)
	}
}

func TestEarnedImmediateAndCustom(t *testing.T) {
	got, err := schedule.Immediate().Earned(1000, schedule.At(epoch))
	if err != nil || got != 1000 {
		t.Errorf("Immediate Earned = %d, %v", got, err)
	}
	if _, err := schedule.Custom([]byte{1}).Earned(1000, schedule.At(epoch)); !errors.Is(err, schedule.ErrUnsupported) {
		t.Errorf("Custom Earned err = %v, want ErrUnsupported", err)
	}
	if _, err := (schedule.Schedule{Kind: "weird"}).Earned(1000, schedule.At(epoch)); !errors.Is(err, schedule.ErrUnknownKind) {
		t.Errorf("unknown kind err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	dup := id.NewMilestoneID()
	lc := schedule.LinearConfig{Start: at(0), End: at(100)}

	tests := []struct {
		name    string
		s       schedule.Schedule
		limits  schedule.Limits
		wantErr error
	}{
		{"immediate", schedule.Immediate(), schedule.Limits{}, nil},
		{"linear", schedule.Linear(at(0), at(100), curve.Cubic), schedule.Limits{}, nil},
		{"linear reversed", schedule.Linear(at(100), at(0), curve.Linear), schedule.Limits{}, schedule.ErrInvalidTimeRange},
		{"linear empty", schedule.Linear(at(5), at(5), curve.Linear), schedule.Limits{}, schedule.ErrInvalidTimeRange},
		{"linear too long", schedule.Linear(at(0), at(100), curve.Linear), schedule.Limits{MaxDuration: time.Minute}, schedule.ErrDurationTooLong},
		{"linear bad curve", schedule.Linear(at(0), at(100), "sigmoid"), schedule.Limits{}, schedule.ErrInvalidSchedule},
		{"linear not preset", schedule.Linear(at(0), at(100), curve.Linear), schedule.Limits{RequirePreset: true}, schedule.ErrInvalidDuration},
		{"linear preset", schedule.LinearPreset(epoch, schedule.TwoWeeks, curve.Linear), schedule.Limits{RequirePreset: true}, nil},
		{"linear missing window", schedule.Schedule{Kind: schedule.KindLinear}, schedule.Limits{}, schedule.ErrInvalidSchedule},
		{"milestone", schedule.Milestones(conditions("a", 400, 600)...), schedule.Limits{}, nil},
		{"milestone sum mismatch", schedule.Milestones(conditions("a", 400, 500)...), schedule.Limits{}, schedule.ErrMilestoneSum},
		{"milestone empty", schedule.Milestones(), schedule.Limits{}, schedule.ErrNoMilestones},
		{"milestone zero amount", schedule.Milestones(append(conditions("a", 1000), schedule.Condition{ID: id.NewMilestoneID(), Approver: "a"})...), schedule.Limits{}, schedule.ErrInvalidMilestone},
		{"milestone duplicate id", schedule.Milestones(
			schedule.Condition{ID: dup, Amount: 500, Approver: "a"},
			schedule.Condition{ID: dup, Amount: 500, Approver: "a"},
		), schedule.Limits{}, schedule.ErrInvalidMilestone},
		{"milestone no approver", schedule.Milestones(schedule.Condition{ID: id.NewMilestoneID(), Amount: 1000}), schedule.Limits{}, schedule.ErrInvalidMilestone},
		{"hybrid", schedule.Hybrid(600, 400, lc, conditions("a", 400)...), schedule.Limits{}, nil},
		{"hybrid portions mismatch", schedule.Hybrid(500, 400, lc, conditions("a", 400)...), schedule.Limits{}, schedule.ErrMilestoneSum},
		{"hybrid milestone mismatch", schedule.Hybrid(600, 400, lc, conditions("a", 300)...), schedule.Limits{}, schedule.ErrMilestoneSum},
		{"hybrid bad window", schedule.Hybrid(600, 400, schedule.LinearConfig{Start: at(100), End: at(0)}, conditions("a", 400)...), schedule.Limits{}, schedule.ErrInvalidTimeRange},
		{"custom rejected", schedule.Custom([]byte("x")), schedule.Limits{}, schedule.ErrUnsupported},
		{"custom allowed", schedule.Custom([]byte("x")), schedule.Limits{AllowCustom: true}, nil},
		{"mixed payload", schedule.Schedule{Kind: schedule.KindImmediate, Linear: &lc}, schedule.Limits{}, schedule.ErrInvalidSchedule},
		{"unknown kind", schedule.Schedule{Kind: "weird"}, schedule.Limits{}, schedule.ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate(1000, tt.limits)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			// Validation is deterministic.
			for range 3 {
				again := tt.s.Validate(1000, tt.limits)
				if (again == nil) != (err == nil) {
					t.Fatalf("validation flipped: %v then %v", err, again)
				}
			}
		})
	}
}

func TestAssignIDsAndClone(t *testing.T) {
	s := schedule.Milestones(
		schedule.Condition{Amount: 400, Approver: "a"},
		schedule.Condition{Amount: 600, Approver: "a"},
	)
	s.AssignIDs()
	for i, c := range s.Conditions() {
		if c.ID.Prefix() != id.PrefixMilestone {
			t.Errorf("condition %d id = %q", i, c.ID)
		}
	}
	if err := s.Validate(1000, schedule.Limits{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cp := s.Clone()
	if _, err := cp.Complete(cp.Milestones[0].ID, "a", epoch); err != nil {
		t.Fatalf("Complete clone: %v", err)
	}
	if s.Milestones[0].Completed {
		t.Error("completing the clone mutated the original")
	}
	if c, ok := cp.Condition(cp.Milestones[0].ID); !ok || !c.Completed {
		t.Errorf("Condition lookup = %+v, %v", c, ok)
	}
}

func TestWindow(t *testing.T) {
	start, end, ok := schedule.Linear(at(0), at(100), curve.Linear).Window()
	if !ok || !start.Equal(at(0)) || !end.Equal(at(100)) {
		t.Errorf("Window = %v, %v, %v", start, end, ok)
	}
	if _, _, ok := schedule.Immediate().Window(); ok {
		t.Error("immediate schedule should have no window")
	}
	if !schedule.Hybrid(1, 0, schedule.LinearConfig{Start: at(0), End: at(1)}).TimeBased() {
		t.Error("hybrid schedule should be time based")
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		p    schedule.Preset
		days int
		desc string
	}{
		{schedule.OneWeek, 7, "1 week"},
		{schedule.TwoWeeks, 14, "2 weeks"},
		{schedule.FourWeeks, 28, "4 weeks (1 month)"},
		{schedule.EightWeeks, 56, "8 weeks (2 months)"},
		{schedule.TwelveWeeks, 84, "12 weeks (3 months)"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if tt.p.Days() != tt.days {
				t.Errorf("Days = %d, want %d", tt.p.Days(), tt.days)
			}
			if tt.p.Description() != tt.desc {
				t.Errorf("Description = %q, want %q", tt.p.Description(), tt.desc)
			}
			got, ok := schedule.PresetFor(tt.p.Duration())
			if !ok || got != tt.p {
				t.Errorf("PresetFor = %v, %v", got, ok)
			}
		})
	}

	if _, ok := schedule.PresetFor(5 * schedule.Week); ok {
		t.Error("five weeks is not a preset")
	}
	if schedule.Preset(5).Valid() {
		t.Error("Preset(5) should be invalid")
	}
}
