package clock

import (
	"sync"
	"time"
)

// SystemClock returns the current wall-clock time in UTC.
//
// Readings never go backwards: if the wall clock steps back (NTP correction),
// the previous reading is returned until real time catches up. Membership
// expiries are computed from these readings, so a step back must not shorten
// or re-credit paid time.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

func (c *SystemClock) Now() time.Time {
	t := c.now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}
