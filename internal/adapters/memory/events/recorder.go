package events

import (
	"context"
	"slices"
	"sync"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
)

// Recorder is an in-memory implementation of events.Store.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	records []events.Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, ev domain.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, events.Record{
		Seq:   uint64(len(r.records)) + 1,
		Event: ev,
	})
	return nil
}

func (r *Recorder) List(ctx context.Context, after uint64, limit int) ([]events.Record, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]events.Record, 0)
	for _, rec := range r.records {
		if rec.Seq <= after {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

// Events returns every published event in order.
func (r *Recorder) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Event, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Event)
	}
	return out
}

// Checkpoint captures the current state and returns a func that restores it.
func (r *Recorder) Checkpoint() (restore func()) {
	r.mu.RLock()
	saved := slices.Clone(r.records)
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.records = saved
	}
}
