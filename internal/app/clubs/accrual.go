package clubs

import (
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/arith"
)

// Accrue computes the expiry after buying years of membership at now.
//
// A membership still active at now (existing > now) is extended from its
// current expiry, so remaining paid time is kept. An expired or never-joined
// membership (existing == 0) restarts from now, so lapsed time is not credited.
func Accrue(existing, now, yearDuration domain.Moment, years domain.Years) (domain.Moment, error) {
	added, err := arith.CheckedMul(uint64(yearDuration), uint64(years))
	if err != nil {
		return 0, err
	}
	base := now
	if existing > now {
		base = existing
	}
	expiry, err := arith.CheckedAdd(uint64(base), added)
	if err != nil {
		return 0, err
	}
	return domain.Moment(expiry), nil
}

// MembershipCost returns annualFee × years.
func MembershipCost(annualFee domain.Balance, years domain.Years) (domain.Balance, error) {
	cost, err := arith.CheckedMul(uint64(annualFee), uint64(years))
	if err != nil {
		return 0, err
	}
	return domain.Balance(cost), nil
}
