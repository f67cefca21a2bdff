package clubrepo

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Repository persists club records and the club id allocator.
//
// The allocator is explicit state owned by the repository: implementations are
// constructed with an initial value and only PutNextID advances it. Callers read
// NextID, insert the club under that id, then store the successor.
type Repository interface {
	NextID(ctx context.Context) (domain.ClubID, error)
	PutNextID(ctx context.Context, id domain.ClubID) error

	Get(ctx context.Context, id domain.ClubID) (domain.Club, error)
	Insert(ctx context.Context, c domain.Club) error
	Update(ctx context.Context, c domain.Club) error
}
