package clock

import "time"

// Clock provides time to the engine.
// Membership accrual reads it exactly once per join; callers never supply the
// current time, so the expiry calculation cannot be spoofed.
type Clock interface {
	Now() time.Time
}
