package actorcontext

import (
	"context"
	"testing"

	"github.com/smallbiznis/trashforcoin/internal/access"
	obscontext "github.com/smallbiznis/trashforcoin/internal/observability/context"
	"github.com/stretchr/testify/assert"
)

func TestWithActorRoundTrip(t *testing.T) {
	store := int64(7)
	ctx := WithActor(context.Background(), access.Actor{UserID: 42, Role: access.RoleModerator, StoreID: &store})

	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), actor.UserID)

	actorType, actorID := obscontext.ActorFromContext(ctx)
	assert.Equal(t, "moderator", actorType)
	assert.Equal(t, "42", actorID)
	assert.Equal(t, "7", obscontext.StoreIDFromContext(ctx))
}

func TestActorFromContextMissing(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ActorFromContext(WithActor(context.Background(), access.Actor{Role: access.RoleViewer}))
	assert.False(t, ok)
}
