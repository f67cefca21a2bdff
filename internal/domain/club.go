package domain

// Club is the registry record for one club.
type Club struct {
	ID        ClubID
	Owner     AccountID
	AnnualFee Balance
}

type MembershipStatus string

const (
	MembershipNeverJoined MembershipStatus = "NEVER_JOINED"
	MembershipActive      MembershipStatus = "ACTIVE"
	MembershipExpired     MembershipStatus = "EXPIRED"
)

// Membership is the ledger entry for an (club, account) pair.
// A zero Expiry with Joined=false means the account never joined.
type Membership struct {
	ClubID  ClubID
	Account AccountID
	Expiry  Moment
	Joined  bool
}

// StatusAt classifies the membership relative to now. Active and expired are
// never stored; they depend only on the clock reading.
func (m Membership) StatusAt(now Moment) MembershipStatus {
	switch {
	case !m.Joined:
		return MembershipNeverJoined
	case m.Expiry > now:
		return MembershipActive
	default:
		return MembershipExpired
	}
}
