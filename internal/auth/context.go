package auth

import (
	"context"

	"github.com/dukerupert/flatrota/internal/model"
)

type contextKey struct{}

// Caller is the identity a request acts as.
type Caller struct {
	User      model.User
	RequestID string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok
}

func UserID(ctx context.Context) int64 {
	c, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return c.User.ID
}

// Member returns the caller's identity snapshot.
func Member(ctx context.Context) (model.Member, bool) {
	c, ok := FromContext(ctx)
	if !ok || c.User.ID == 0 {
		return model.Member{}, false
	}
	return c.User.Snapshot(), true
}
