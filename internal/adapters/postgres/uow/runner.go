package uow

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/balances"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/clubrepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/events"
	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/membershiprepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

// engineLockKey is the transaction-scoped advisory lock every unit of work
// takes first, so engine operations execute one at a time across processes.
const engineLockKey int64 = 0x436c75624d6e6772

// Runner runs each unit of work in its own transaction with repositories
// bound to that transaction.
type Runner struct {
	pool               *pgxpool.Pool
	initialClubID      domain.ClubID
	existentialDeposit domain.Balance
}

func NewRunner(pool *pgxpool.Pool, initialClubID domain.ClubID, existentialDeposit domain.Balance) *Runner {
	return &Runner{pool: pool, initialClubID: initialClubID, existentialDeposit: existentialDeposit}
}

func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, repos uow.Repos) error) error {
	if r.pool == nil {
		return postgres.ErrNilDB
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, engineLockKey); err != nil {
			return err
		}
		return fn(ctx, uow.Repos{
			Clubs:       clubrepo.NewRepo(tx, r.initialClubID),
			Memberships: membershiprepo.NewRepo(tx),
			Balances:    balances.NewLedger(tx, r.existentialDeposit),
			Events:      events.NewStore(tx),
		})
	})
}
