package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

type callerKey struct{}

func WithCaller(ctx context.Context, c domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the resolved caller. Requests that never passed
// the auth middleware resolve to an anonymous caller.
func CallerFromContext(ctx context.Context) domain.Caller {
	c, _ := ctx.Value(callerKey{}).(domain.Caller)
	return c
}
