package balances

import (
	"context"
	"fmt"
	"slices"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Seeder opens accounts with a starting free balance. Seed leaves an
// account that already exists untouched, so a restart does not mint twice.
type Seeder interface {
	Seed(ctx context.Context, who domain.AccountID, free domain.Balance) error
}

// ApplyGenesis seeds every entry of genesis in account order.
func ApplyGenesis(ctx context.Context, s Seeder, genesis map[domain.AccountID]domain.Balance) error {
	ids := make([]domain.AccountID, 0, len(genesis))
	for id := range genesis {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := s.Seed(ctx, id, genesis[id]); err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
	}
	return nil
}
