package clubrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clubrepo"
)

// Repo is a Postgres implementation of clubrepo.Repository.
//
// The allocator lives in the single-row club_counter table. Until the first
// PutNextID the row is absent and NextID reports initialID.
type Repo struct {
	db        postgres.DBTX
	initialID domain.ClubID
}

func NewRepo(db postgres.DBTX, initialID domain.ClubID) *Repo {
	return &Repo{db: db, initialID: initialID}
}

func (r *Repo) NextID(ctx context.Context) (domain.ClubID, error) {
	if r.db == nil {
		return 0, postgres.ErrNilDB
	}
	var n pgtype.Numeric
	err := r.db.QueryRow(ctx, `SELECT next_club_id FROM club_counter WHERE singleton FOR UPDATE`).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.initialID, nil
		}
		return 0, err
	}
	v, err := postgres.Uint64(n)
	if err != nil {
		return 0, err
	}
	return domain.ClubID(v), nil
}

func (r *Repo) PutNextID(ctx context.Context, id domain.ClubID) error {
	if r.db == nil {
		return postgres.ErrNilDB
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO club_counter (singleton, next_club_id) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET next_club_id = EXCLUDED.next_club_id
	`, postgres.Numeric(uint64(id)))
	return err
}

func (r *Repo) Get(ctx context.Context, id domain.ClubID) (domain.Club, error) {
	if r.db == nil {
		return domain.Club{}, postgres.ErrNilDB
	}
	var (
		owner string
		fee   pgtype.Numeric
	)
	err := r.db.QueryRow(ctx, `
		SELECT owner, annual_fee FROM clubs WHERE club_id = $1
	`, postgres.Numeric(uint64(id))).Scan(&owner, &fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Club{}, clubrepo.ErrNotFound
		}
		return domain.Club{}, err
	}
	v, err := postgres.Uint64(fee)
	if err != nil {
		return domain.Club{}, err
	}
	return domain.Club{ID: id, Owner: domain.AccountID(owner), AnnualFee: domain.Balance(v)}, nil
}

func (r *Repo) Insert(ctx context.Context, c domain.Club) error {
	if r.db == nil {
		return postgres.ErrNilDB
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO clubs (club_id, owner, annual_fee) VALUES ($1, $2, $3)
	`, postgres.Numeric(uint64(c.ID)), string(c.Owner), postgres.Numeric(uint64(c.AnnualFee)))
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return clubrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, c domain.Club) error {
	if r.db == nil {
		return postgres.ErrNilDB
	}
	ct, err := r.db.Exec(ctx, `
		UPDATE clubs SET owner = $2, annual_fee = $3, updated_at = now()
		WHERE club_id = $1
	`, postgres.Numeric(uint64(c.ID)), string(c.Owner), postgres.Numeric(uint64(c.AnnualFee)))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return clubrepo.ErrNotFound
	}
	return nil
}
