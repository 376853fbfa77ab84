// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// ActorContext identifies the caller on whose behalf an operation runs.
// It is opaque to the computation engine: the fiscal pipeline never reads it,
// only the surrounding workflow uses it for logging and audit fields.
type ActorContext struct {
	ActorID string
	Name    string
}

type actorContextKey struct{}

// WithActor adds ActorContext to context.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns ActorContext from context.
func GetActor(ctx context.Context) *ActorContext {
	if v, ok := ctx.Value(actorContextKey{}).(*ActorContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the actor ID from context or empty string.
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.ActorID
	}
	return ""
}
