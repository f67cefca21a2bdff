package balances

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// ExistenceRequirement controls whether a debit may drop the source account
// below the existential deposit.
type ExistenceRequirement int

const (
	// KeepAlive fails the debit rather than leave free balance below the existential deposit.
	KeepAlive ExistenceRequirement = iota
	// AllowDeath permits reaping the source account.
	AllowDeath
)

// Account is the balance snapshot of one account.
type Account struct {
	Free     domain.Balance
	Reserved domain.Balance
}

// Ledger is the fungible balance layer the engine pays through.
//
// Failed calls must leave balances unchanged.
type Ledger interface {
	// Reserve moves amount from free to reserved on who. The funds stay
	// attributable to who but cannot be spent.
	Reserve(ctx context.Context, who domain.AccountID, amount domain.Balance) error

	// Transfer moves amount of free balance from one account to another.
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Balance, req ExistenceRequirement) error

	// Account returns the balances of who. Unknown accounts report zero.
	Account(ctx context.Context, who domain.AccountID) (Account, error)
}
