package membershiprepo

import (
	"context"
	"maps"
	"sync"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

type key struct {
	club    domain.ClubID
	account domain.AccountID
}

// Repo is an in-memory implementation of membershiprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu     sync.RWMutex
	expiry map[key]domain.Moment
}

func NewRepo() *Repo {
	return &Repo{expiry: make(map[key]domain.Moment)}
}

func (r *Repo) Get(ctx context.Context, club domain.ClubID, account domain.AccountID) (domain.Moment, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.expiry[key{club: club, account: account}]
	return e, ok, nil
}

func (r *Repo) Put(ctx context.Context, club domain.ClubID, account domain.AccountID, expiry domain.Moment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expiry[key{club: club, account: account}] = expiry
	return nil
}

// Len reports the number of stored memberships.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.expiry)
}

// Checkpoint captures the current state and returns a func that restores it.
func (r *Repo) Checkpoint() (restore func()) {
	r.mu.RLock()
	saved := maps.Clone(r.expiry)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.expiry = saved
	}
}
