package membershiprepo

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Repository stores membership expiries keyed by (club, account).
//
// Get reports ok=false for pairs that never joined; absence is not an error.
type Repository interface {
	Get(ctx context.Context, club domain.ClubID, account domain.AccountID) (expiry domain.Moment, ok bool, err error)
	Put(ctx context.Context, club domain.ClubID, account domain.AccountID, expiry domain.Moment) error
}
