// Package clock supplies the trusted time source the engine evaluates
// schedules against, plus a coarse logical clock used as the per-account
// replay marker.
package clock

import (
	"sync"
	"time"
)

// SlotDuration is the width of one logical slot for the System clock.
const SlotDuration = 400 * time.Millisecond

// Clock is the engine's view of time.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
	// Slot returns a monotonic, coarse logical clock value. Two mutating
	// operations on one account within the same slot are rejected.
	Slot() uint64
}

// System is the wall clock. Slots are counted in SlotDuration ticks since
// Genesis.
type System struct {
	Genesis time.Time
}

// NewSystem returns a System clock with slots counted from the Unix epoch.
func NewSystem() System {
	return System{Genesis: time.Unix(0, 0).UTC()}
}

func (s System) Now() time.Time { return time.Now().UTC() }

func (s System) Slot() uint64 {
	d := time.Since(s.Genesis)
	if d <= 0 {
		return 0
	}
	return uint64(d / SlotDuration)
}

// Manual is a hand-driven clock for tests and offline evaluation.
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	slot uint64
}

// NewManual returns a Manual clock at now, slot 1.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now.UTC(), slot: 1}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Slot() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot
}

// Advance moves time forward by d and the slot by d/SlotDuration, at least
// one slot.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.slot += max(uint64(max(d, 0)/SlotDuration), 1)
}

// Set jumps to t and advances the slot by one.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
	m.slot++
}

// Tick advances the slot without moving time.
func (m *Manual) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot++
}
