package uow

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/balances"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clubrepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/events"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/membershiprepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

// Runner is an in-memory implementation of uow.Runner.
//
// It serializes runs with a single mutex and restores checkpoints of every
// store when fn fails, giving the all-or-nothing semantics a transactional
// host would.
type Runner struct {
	mu sync.Mutex

	clubs       *clubrepo.Repo
	memberships *membershiprepo.Repo
	ledger      *balances.Ledger
	events      *events.Recorder
}

func NewRunner(clubs *clubrepo.Repo, memberships *membershiprepo.Repo, ledger *balances.Ledger, rec *events.Recorder) *Runner {
	return &Runner{
		clubs:       clubs,
		memberships: memberships,
		ledger:      ledger,
		events:      rec,
	}
}

func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repos) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	restores := []func(){
		r.clubs.Checkpoint(),
		r.memberships.Checkpoint(),
		r.ledger.Checkpoint(),
		r.events.Checkpoint(),
	}

	err := fn(ctx, uow.Repos{
		Clubs:       r.clubs,
		Memberships: r.memberships,
		Balances:    r.ledger,
		Events:      r.events,
	})
	if err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
