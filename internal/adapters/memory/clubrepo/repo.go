package clubrepo

import (
	"context"
	"maps"
	"sync"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clubrepo"
)

// Repo is an in-memory implementation of clubrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	nextID domain.ClubID
	byID   map[domain.ClubID]domain.Club
}

// NewRepo returns an empty registry whose allocator starts at initialID.
func NewRepo(initialID domain.ClubID) *Repo {
	return &Repo{
		nextID: initialID,
		byID:   make(map[domain.ClubID]domain.Club),
	}
}

func (r *Repo) NextID(ctx context.Context) (domain.ClubID, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID, nil
}

func (r *Repo) PutNextID(ctx context.Context, id domain.ClubID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID = id
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.ClubID) (domain.Club, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.Club{}, clubrepo.ErrNotFound
	}
	return c, nil
}

func (r *Repo) Insert(ctx context.Context, c domain.Club) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return clubrepo.ErrAlreadyExists
	}
	r.byID[c.ID] = c
	return nil
}

func (r *Repo) Update(ctx context.Context, c domain.Club) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		return clubrepo.ErrNotFound
	}
	r.byID[c.ID] = c
	return nil
}

// Checkpoint captures the current state and returns a func that restores it.
func (r *Repo) Checkpoint() (restore func()) {
	r.mu.RLock()
	nextID := r.nextID
	byID := maps.Clone(r.byID)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.nextID = nextID
		r.byID = byID
	}
}
