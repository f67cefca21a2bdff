package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clock"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
//
// Records older than the retention window read as absent and are dropped on
// the next Put. A zero retention keeps records forever.
type Store struct {
	mu        sync.Mutex
	m         map[idempotency.Fingerprint]idempotency.Record
	clk       clockport.Clock
	retention time.Duration
}

func NewStore() *Store {
	return NewStoreWithRetention(nil, 0)
}

func NewStoreWithRetention(clk clockport.Clock, retention time.Duration) *Store {
	return &Store{
		m:         make(map[idempotency.Fingerprint]idempotency.Record),
		clk:       clk,
		retention: retention,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	if s.retention <= 0 {
		return false
	}
	return rec.CreatedAt.Before(s.now().Add(-s.retention))
}

func (s *Store) now() time.Time {
	if s.clk == nil {
		return time.Now().UTC()
	}
	return s.clk.Now()
}
