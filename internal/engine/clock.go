package engine

import "time"

// Clock is the synthetic simulation clock. It is owned by the scheduler
// and never moves backward.
type Clock struct {
	current    time.Time
	multiplier float64
}

// NewClock starts the clock at start. A multiplier <= 0 is treated as 1.
func NewClock(start time.Time, multiplier float64) *Clock {
	if multiplier <= 0 {
		multiplier = 1
	}
	return &Clock{current: start, multiplier: multiplier}
}

// Now returns the current simulation time.
func (c *Clock) Now() time.Time { return c.current }

// Advance moves the clock forward by d scaled by the time multiplier.
// Non-positive deltas are ignored.
func (c *Clock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.current = c.current.Add(time.Duration(float64(d) * c.multiplier))
}
