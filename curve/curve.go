// Package curve maps elapsed time onto a release fraction.
//
// All evaluation is integer fixed-point: every product goes through a
// 128-bit intermediate and results are truncated, never rounded up.
package curve

import (
	"errors"
	"fmt"

	"github.com/xraph/escrow/types"
)

// Scale is the fixed-point denominator for release fractions.
const Scale uint64 = 1_000_000

// ErrUnknownCurve is returned for a curve name outside the supported set.
var ErrUnknownCurve = errors.New("escrow: unknown acceleration curve")

// Curve selects the shape of time-based release. The zero value behaves as
// Linear.
type Curve string

const (
	Linear    Curve = "linear"
	Quadratic Curve = "quadratic"
	Cubic     Curve = "cubic"
)

// Parse returns the Curve named by s.
func Parse(s string) (Curve, error) {
	c := Curve(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurve, s)
	}
	if c == "" {
		return Linear, nil
	}
	return c, nil
}

// Valid reports whether c is a supported curve.
func (c Curve) Valid() bool {
	switch c {
	case "", Linear, Quadratic, Cubic:
		return true
	default:
		return false
	}
}

func (c Curve) String() string {
	if c == "" {
		return string(Linear)
	}
	return string(c)
}

// MarshalText implements encoding.TextMarshaler.
func (c Curve) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curve) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// degree is the exponent applied to the elapsed fraction.
func (c Curve) degree() int {
	switch c {
	case Quadratic:
		return 2
	case Cubic:
		return 3
	default:
		return 1
	}
}

// Apply returns the share of amount released after elapsed of duration:
// amount * (elapsed/duration)^degree. Each factor is applied as a separate
// truncating 128-bit multiply-divide, so the linear case is exactly
// amount*elapsed/duration and every intermediate stays below amount.
// A zero duration is treated as fully elapsed.
func (c Curve) Apply(amount, elapsed, duration uint64) (uint64, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurve, string(c))
	}
	if duration == 0 || elapsed >= duration {
		return amount, nil
	}

	v := amount
	for range c.degree() {
		var err error
		if v, err = types.MulDiv(v, elapsed, duration); err != nil {
			return 0, err
		}
	}
	return v, nil
}

// Progress returns the release fraction after elapsed of duration, scaled by
// Scale. Progress(0, d) is 0, Progress(d, d) is Scale and the result never
// decreases as elapsed grows.
func (c Curve) Progress(elapsed, duration uint64) (uint64, error) {
	return c.Apply(Scale, elapsed, duration)
}
