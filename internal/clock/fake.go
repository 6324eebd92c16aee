package clock

import "time"

// FakeClock pins Now to a fixed instant so tests can assert exact
// updated_at, issued_at and next_cycle values.
type FakeClock struct {
	now time.Time
}

// NewFakeClock starts the clock at t, normalized to UTC like the
// system clock.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward, e.g. past an agreement term to
// exercise cycle boundaries.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
