package plan

import (
	"fmt"
	"math"
)

// Clock holds the simulated time. Time only moves forward.
type Clock struct {
	now      float64
	start    float64
	startSet bool
}

// Now returns the current simulated time.
func (c *Clock) Now() float64 {
	return c.now
}

// Check returns an error if t is not a valid scheduling time: NaN, infinite
// or earlier than the current time.
func (c *Clock) Check(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("time %v is not finite", t)
	}
	if t < c.now {
		return fmt.Errorf("time %v is earlier than the current time %v", t, c.now)
	}
	return nil
}

// Advance moves the clock to t. It fails if t is in the past.
func (c *Clock) Advance(t float64) error {
	if t < c.now {
		return fmt.Errorf("cannot move clock back from %v to %v", c.now, t)
	}
	c.now = t
	return nil
}

// SetStart fixes the start time once. The start must be finite and, when
// plans are already queued, not later than the earliest of them (earliest
// is ignored when ok is false).
func (c *Clock) SetStart(t float64, earliest float64, ok bool) error {
	if c.startSet {
		return fmt.Errorf("start time already set to %v", c.start)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("start time %v is not finite", t)
	}
	if ok && t > earliest {
		return fmt.Errorf("start time %v is later than the earliest plan at %v", t, earliest)
	}
	c.start, c.startSet, c.now = t, true, t
	return nil
}
