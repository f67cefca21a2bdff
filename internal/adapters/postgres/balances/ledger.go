package balances

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
)

// Ledger is a Postgres implementation of balances.Ledger backed by the
// accounts table. Rows are locked with FOR UPDATE, so a Ledger built on a
// transaction holds its accounts until commit.
type Ledger struct {
	db                 postgres.DBTX
	existentialDeposit domain.Balance
}

func NewLedger(db postgres.DBTX, existentialDeposit domain.Balance) *Ledger {
	return &Ledger{db: db, existentialDeposit: existentialDeposit}
}

// SetBalance overwrites the free balance of who. It seeds accounts for tests
// and local runs; the engine never calls it.
func (l *Ledger) SetBalance(ctx context.Context, who domain.AccountID, free domain.Balance) error {
	a, err := l.load(ctx, who, true)
	if err != nil {
		return err
	}
	a.Free = free
	return l.store(ctx, who, a)
}

// Seed opens who with free unless the row already exists. Amounts below
// the existential deposit open nothing.
func (l *Ledger) Seed(ctx context.Context, who domain.AccountID, free domain.Balance) error {
	if l.db == nil {
		return postgres.ErrNilDB
	}
	if balances.Reaped(balances.Account{Free: free}, l.existentialDeposit) {
		return nil
	}
	_, err := l.db.Exec(ctx, `
		INSERT INTO accounts (account_id, free, reserved) VALUES ($1, $2, 0)
		ON CONFLICT (account_id) DO NOTHING
	`, string(who), postgres.Numeric(uint64(free)))
	return err
}

func (l *Ledger) Account(ctx context.Context, who domain.AccountID) (balances.Account, error) {
	return l.load(ctx, who, false)
}

func (l *Ledger) Reserve(ctx context.Context, who domain.AccountID, amount domain.Balance) error {
	a, err := l.load(ctx, who, true)
	if err != nil {
		return err
	}
	a, err = balances.ApplyReserve(a, amount, l.existentialDeposit)
	if err != nil {
		return err
	}
	return l.store(ctx, who, a)
}

func (l *Ledger) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Balance, req balances.ExistenceRequirement) error {
	if amount == 0 || from == to {
		return nil
	}
	// Lock in a stable order so concurrent opposite transfers cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	if _, err := l.load(ctx, first, true); err != nil {
		return err
	}
	if _, err := l.load(ctx, second, true); err != nil {
		return err
	}

	src, err := l.load(ctx, from, false)
	if err != nil {
		return err
	}
	dst, err := l.load(ctx, to, false)
	if err != nil {
		return err
	}
	src, dst, err = balances.ApplyTransfer(src, dst, amount, req, l.existentialDeposit)
	if err != nil {
		return err
	}
	if err := l.store(ctx, from, src); err != nil {
		return err
	}
	return l.store(ctx, to, dst)
}

func (l *Ledger) load(ctx context.Context, who domain.AccountID, lock bool) (balances.Account, error) {
	if l.db == nil {
		return balances.Account{}, postgres.ErrNilDB
	}
	q := `SELECT free, reserved FROM accounts WHERE account_id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var free, reserved pgtype.Numeric
	if err := l.db.QueryRow(ctx, q, string(who)).Scan(&free, &reserved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return balances.Account{}, nil
		}
		return balances.Account{}, err
	}
	f, err := postgres.Uint64(free)
	if err != nil {
		return balances.Account{}, err
	}
	r, err := postgres.Uint64(reserved)
	if err != nil {
		return balances.Account{}, err
	}
	return balances.Account{Free: domain.Balance(f), Reserved: domain.Balance(r)}, nil
}

// store upserts a, deleting the row when the account is reaped.
func (l *Ledger) store(ctx context.Context, who domain.AccountID, a balances.Account) error {
	if balances.Reaped(a, l.existentialDeposit) {
		_, err := l.db.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, string(who))
		return err
	}
	_, err := l.db.Exec(ctx, `
		INSERT INTO accounts (account_id, free, reserved) VALUES ($1, $2, $3)
		ON CONFLICT (account_id)
		DO UPDATE SET free = EXCLUDED.free, reserved = EXCLUDED.reserved
	`, string(who), postgres.Numeric(uint64(a.Free)), postgres.Numeric(uint64(a.Reserved)))
	return err
}
