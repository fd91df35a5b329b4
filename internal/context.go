package internal

import (
	"context"

	"github.com/frahmantamala/gatepass/internal/core/user"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

// ContextWithActor stores the authenticated caller for handlers and services.
func ContextWithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	if ctx == nil {
		return user.Actor{}, false
	}
	actor, ok := ctx.Value(ContextActorKey).(user.Actor)
	return actor, ok
}
