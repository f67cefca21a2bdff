package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
//
// With a positive retention, rows older than the window read as absent and
// are deleted on the next Put.
type Store struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

func NewStore(pool *pgxpool.Pool, retention time.Duration) *Store {
	return &Store{pool: pool, retention: retention}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, postgres.ErrNilDB
	}
	row := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND caller = $2
		  AND method = $3
		  AND route = $4
		  AND body_hash = $5
		  AND ($6::timestamptz IS NULL OR created_at >= $6)
	`,
		string(fp.Key),
		fp.Caller,
		fp.Method,
		fp.Route,
		fp.BodyHash,
		s.cutoff(),
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return postgres.ErrNilDB
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if cutoff := s.cutoff(); cutoff != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, *cutoff); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO idempotency_keys (
				idempotency_key,
				caller,
				method,
				route,
				body_hash,
				status_code,
				content_type,
				body,
				created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (idempotency_key, caller, method, route, body_hash)
			DO UPDATE SET
				status_code = EXCLUDED.status_code,
				content_type = EXCLUDED.content_type,
				body = EXCLUDED.body,
				created_at = EXCLUDED.created_at
		`,
			string(fp.Key),
			fp.Caller,
			fp.Method,
			fp.Route,
			fp.BodyHash,
			rec.StatusCode,
			rec.ContentType,
			rec.Body,
			createdAt.UTC(),
		)
		return err
	})
}

func (s *Store) cutoff() *time.Time {
	if s.retention <= 0 {
		return nil
	}
	c := time.Now().UTC().Add(-s.retention)
	return &c
}
