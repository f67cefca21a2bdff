package domain

import "time"

// AccountID is an opaque account identity. The engine never interprets its
// format; the host resolves it from whatever authentication it performs.
type AccountID string

// ClubID identifies a club record. IDs are allocated sequentially and never reused.
type ClubID uint64

// FirstClubID is the value of the club id allocator in a fresh registry.
const FirstClubID ClubID = 0

// Balance is a non-negative amount in the ledger's smallest unit.
type Balance uint64

// Moment is an absolute instant in milliseconds since the Unix epoch.
type Moment uint64

// Years counts membership years purchased in a single join.
type Years uint32

// MomentFromTime converts a wall-clock reading to a Moment.
// Instants before the epoch clamp to zero.
func MomentFromTime(t time.Time) Moment {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return Moment(ms)
}

// Time returns m as a UTC time.Time. Values beyond the int64 millisecond range
// are not representable and clamp to the largest one.
func (m Moment) Time() time.Time {
	const maxMillis = uint64(1<<63 - 1)
	if uint64(m) > maxMillis {
		return time.UnixMilli(int64(maxMillis)).UTC()
	}
	return time.UnixMilli(int64(m)).UTC()
}
