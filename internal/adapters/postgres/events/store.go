package events

import (
	"context"
	"encoding/json"
	"fmt"

	postgres "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
)

// Store appends engine events to the club_events table. When built on a
// transaction, published events become visible only if the transaction commits.
type Store struct {
	db postgres.DBTX
}

func NewStore(db postgres.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Publish(ctx context.Context, ev domain.Event) error {
	if s.db == nil {
		return postgres.ErrNilDB
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO club_events (kind, club_id, payload) VALUES ($1, $2, $3)
	`, string(ev.Kind()), postgres.Numeric(uint64(ev.Club())), payload)
	return err
}

func (s *Store) List(ctx context.Context, after uint64, limit int) ([]events.Record, error) {
	if s.db == nil {
		return nil, postgres.ErrNilDB
	}
	// A NULL limit means no limit.
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.db.Query(ctx, `
		SELECT seq, kind, payload FROM club_events
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, int64(min(after, uint64(1<<63-1))), lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var (
			seq     int64
			kind    string
			payload []byte
		)
		if err := rows.Scan(&seq, &kind, &payload); err != nil {
			return nil, err
		}
		ev, err := domain.DecodeEvent(domain.EventKind(kind), payload)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		out = append(out, events.Record{Seq: uint64(seq), Event: ev})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
