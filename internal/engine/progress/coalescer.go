package progress

import (
	"time"

	"GeoStream/internal/model"
)

// Coalescer rate-limits the progress events of one session. Intermediate
// events are dropped while the configured interval has not elapsed since
// the last forwarded one; terminal events always pass, so the final state
// is never lost.
type Coalescer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewCoalescer creates a coalescer with the given minimum forwarding
// interval. A non-positive interval forwards everything.
func NewCoalescer(interval time.Duration) *Coalescer {
	return &Coalescer{interval: interval, now: time.Now}
}

// ShouldForward reports whether the event must reach the observer, and
// records the forwarding time when it does.
func (c *Coalescer) ShouldForward(ev model.ProgressEvent) bool {
	if ev.Terminal() {
		c.last = c.now()
		return true
	}
	now := c.now()
	if !c.last.IsZero() && now.Sub(c.last) < c.interval {
		return false
	}
	c.last = now
	return true
}
