package membershiprepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Repo is a Postgres implementation of membershiprepo.Repository.
type Repo struct {
	db postgres.DBTX
}

func NewRepo(db postgres.DBTX) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Get(ctx context.Context, club domain.ClubID, account domain.AccountID) (domain.Moment, bool, error) {
	if r.db == nil {
		return 0, false, postgres.ErrNilDB
	}
	var expiry pgtype.Numeric
	err := r.db.QueryRow(ctx, `
		SELECT expiry FROM memberships WHERE club_id = $1 AND account_id = $2
	`, postgres.Numeric(uint64(club)), string(account)).Scan(&expiry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	v, err := postgres.Uint64(expiry)
	if err != nil {
		return 0, false, err
	}
	return domain.Moment(v), true, nil
}

func (r *Repo) Put(ctx context.Context, club domain.ClubID, account domain.AccountID, expiry domain.Moment) error {
	if r.db == nil {
		return postgres.ErrNilDB
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO memberships (club_id, account_id, expiry) VALUES ($1, $2, $3)
		ON CONFLICT (club_id, account_id)
		DO UPDATE SET expiry = EXCLUDED.expiry, updated_at = now()
	`, postgres.Numeric(uint64(club)), string(account), postgres.Numeric(uint64(expiry)))
	return err
}
