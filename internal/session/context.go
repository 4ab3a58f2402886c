package session

import (
	"context"

	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/models"
)

type ctxKey struct{}

// Current is what the HTTP gate stores for an authenticated request.
type Current struct {
	Session identity.Session
	Me      *models.Me
}

// WithCurrent returns ctx carrying cur.
func WithCurrent(ctx context.Context, cur Current) context.Context {
	return context.WithValue(ctx, ctxKey{}, cur)
}

// FromContext returns the authenticated request's state.
func FromContext(ctx context.Context) (Current, bool) {
	cur, ok := ctx.Value(ctxKey{}).(Current)
	return cur, ok
}
