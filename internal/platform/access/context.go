package access

import (
	"context"
	"strings"
)

type contextKey string

const actorContextKey contextKey = "cmspages/actor"

// WithActor binds actorID to ctx.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey, strings.TrimSpace(actorID))
}

// ActorFromContext extracts the actor identifier from the context when available.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(actorContextKey).(string); ok {
		return value
	}
	return ""
}

// ContextIdentity reports the actor bound with WithActor, or Fallback when none is bound.
type ContextIdentity struct {
	Fallback string
}

// CurrentActorID implements the versioning service's identity collaborator.
func (i ContextIdentity) CurrentActorID(ctx context.Context) string {
	if actor := ActorFromContext(ctx); actor != "" {
		return actor
	}
	return strings.TrimSpace(i.Fallback)
}
