package schedule

import (
	"fmt"
	"time"

	"github.com/xraph/escrow/curve"
)

// Week is the length of one preset unit.
const Week = 7 * 24 * time.Hour

// Preset is a predefined stream length in weeks.
type Preset uint8

const (
	OneWeek     Preset = 1
	TwoWeeks    Preset = 2
	ThreeWeeks  Preset = 3
	FourWeeks   Preset = 4
	SixWeeks    Preset = 6
	EightWeeks  Preset = 8
	TenWeeks    Preset = 10
	TwelveWeeks Preset = 12
)

// Presets lists every supported preset, shortest first.
var Presets = []Preset{OneWeek, TwoWeeks, ThreeWeeks, FourWeeks, SixWeeks, EightWeeks, TenWeeks, TwelveWeeks}

// Valid reports whether p is one of Presets.
func (p Preset) Valid() bool {
	switch p {
	case OneWeek, TwoWeeks, ThreeWeeks, FourWeeks, SixWeeks, EightWeeks, TenWeeks, TwelveWeeks:
		return true
	default:
		return false
	}
}

func (p Preset) Duration() time.Duration { return time.Duration(p) * Week }

func (p Preset) Days() int { return int(p) * 7 }

// Description is a human-readable label, e.g. "4 weeks (1 month)".
func (p Preset) Description() string {
	switch p {
	case OneWeek:
		return "1 week"
	case FourWeeks:
		return "4 weeks (1 month)"
	case EightWeeks:
		return "8 weeks (2 months)"
	case TwelveWeeks:
		return "12 weeks (3 months)"
	default:
		return fmt.Sprintf("%d weeks", p)
	}
}

// PresetFor returns the preset whose duration is exactly d.
func PresetFor(d time.Duration) (Preset, bool) {
	for _, p := range Presets {
		if p.Duration() == d {
			return p, true
		}
	}
	return 0, false
}

// LinearPreset returns a linear schedule starting at start and lasting p.
func LinearPreset(start time.Time, p Preset, c curve.Curve) Schedule {
	return Linear(start, start.Add(p.Duration()), c)
}
