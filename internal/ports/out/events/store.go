package events

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Record is an emitted event with its position in the log.
type Record struct {
	Seq   uint64
	Event domain.Event
}

// Publisher receives events emitted by committed operations.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Store is a Publisher that can be read back in emission order.
type Store interface {
	Publisher

	// List returns up to limit records with Seq > after, ordered by Seq.
	List(ctx context.Context, after uint64, limit int) ([]Record, error)
}
