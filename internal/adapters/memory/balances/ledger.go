package balances

import (
	"context"
	"maps"
	"sync"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/arith"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
)

// Ledger is an in-memory implementation of balances.Ledger.
// It is safe for concurrent use.
type Ledger struct {
	mu sync.RWMutex

	existentialDeposit domain.Balance
	accounts           map[domain.AccountID]balances.Account
}

func NewLedger(existentialDeposit domain.Balance) *Ledger {
	return &Ledger{
		existentialDeposit: existentialDeposit,
		accounts:           make(map[domain.AccountID]balances.Account),
	}
}

// SetBalance overwrites the free balance of who. It is a seeding helper for
// tests and local runs; the engine never calls it.
func (l *Ledger) SetBalance(who domain.AccountID, free domain.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.accounts[who]
	a.Free = free
	l.put(who, a)
}

// Seed opens who with free unless the account already exists.
func (l *Ledger) Seed(ctx context.Context, who domain.AccountID, free domain.Balance) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[who]; ok {
		return nil
	}
	l.put(who, balances.Account{Free: free})
	return nil
}

// Deposit credits who, clamping at the maximum balance.
func (l *Ledger) Deposit(who domain.AccountID, amount domain.Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.accounts[who]
	a.Free = domain.Balance(arith.SaturatingAdd(uint64(a.Free), uint64(amount)))
	l.put(who, a)
}

func (l *Ledger) Account(ctx context.Context, who domain.AccountID) (balances.Account, error) {
	_ = ctx
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[who], nil
}

func (l *Ledger) Reserve(ctx context.Context, who domain.AccountID, amount domain.Balance) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := balances.ApplyReserve(l.accounts[who], amount, l.existentialDeposit)
	if err != nil {
		return err
	}
	l.put(who, a)
	return nil
}

func (l *Ledger) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Balance, req balances.ExistenceRequirement) error {
	_ = ctx
	if amount == 0 || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	src, dst, err := balances.ApplyTransfer(l.accounts[from], l.accounts[to], amount, req, l.existentialDeposit)
	if err != nil {
		return err
	}
	l.put(from, src)
	l.put(to, dst)
	return nil
}

// put stores a, reaping accounts whose total fell below the existential deposit.
// Callers must hold l.mu.
func (l *Ledger) put(who domain.AccountID, a balances.Account) {
	if balances.Reaped(a, l.existentialDeposit) {
		delete(l.accounts, who)
		return
	}
	l.accounts[who] = a
}

// Checkpoint captures the current state and returns a func that restores it.
func (l *Ledger) Checkpoint() (restore func()) {
	l.mu.RLock()
	saved := maps.Clone(l.accounts)
	l.mu.RUnlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.accounts = saved
	}
}
