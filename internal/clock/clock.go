// Package clock computes remaining session time from timestamps.
// It performs no scheduling; callers feed it the current time on each tick.
package clock

import (
	"time"

	"github.com/verte-zerg/romatype/internal/model"
)

// TickInterval is the cadence the presentation layer drives ticks at.
const TickInterval = 100 * time.Millisecond

// Clock tracks elapsed and remaining time against a budget.
type Clock struct {
	startedAt time.Time
	budget    time.Duration
	expired   bool
}

// Start resets the clock with a new budget.
func (c *Clock) Start(budget time.Duration, now time.Time) {
	c.startedAt = now
	c.budget = budget
	c.expired = false
}

// Elapsed returns now minus start, clamped to zero.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(c.startedAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Tick computes the reading at now. Once expired, the clock stays expired.
func (c *Clock) Tick(now time.Time) model.Tick {
	elapsed := c.Elapsed(now)
	remaining := c.budget - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if elapsed >= c.budget {
		c.expired = true
	}
	return model.Tick{
		Remaining: remaining,
		Expired:   c.expired,
		Warning:   remaining <= model.WarningThreshold,
	}
}

// Expired reports whether a tick has already observed expiry.
func (c *Clock) Expired() bool {
	return c.expired
}
