package uow

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clubrepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/membershiprepo"
)

// Repos is the set of collaborators visible inside one unit of work.
type Repos struct {
	Clubs       clubrepo.Repository
	Memberships membershiprepo.Repository
	Balances    balances.Ledger
	Events      events.Publisher
}

// Runner executes fn with exclusive access to engine state.
//
// If fn returns an error, every write made through Repos is discarded and the
// error is returned as-is. Runs are serialized: no two fn calls interleave.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
