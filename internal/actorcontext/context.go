package actorcontext

import (
	"context"
	"strconv"

	"github.com/smallbiznis/trashforcoin/internal/access"
	obscontext "github.com/smallbiznis/trashforcoin/internal/observability/context"
)

// ActorContextKey is the request context key for the authenticated actor.
type ActorContextKey struct{}

// WithActor stores the actor in the context and mirrors its identity into the
// observability fields read by the logger and tracer.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	ctx = context.WithValue(ctx, ActorContextKey{}, actor)
	ctx = obscontext.WithActor(ctx, actor.Role.String(), strconv.FormatInt(actor.UserID, 10))
	if actor.StoreID != nil {
		ctx = obscontext.WithStoreID(ctx, strconv.FormatInt(*actor.StoreID, 10))
	}
	return ctx
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (access.Actor, bool) {
	if ctx == nil {
		return access.Actor{}, false
	}
	actor, ok := ctx.Value(ActorContextKey{}).(access.Actor)
	if !ok || !actor.Valid() {
		return access.Actor{}, false
	}
	return actor, true
}
