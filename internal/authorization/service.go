package authorization

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
)

// Service gates a request on the role capability table before any store scoping runs.
type Service interface {
	Authorize(ctx context.Context, actor access.Actor, resource access.Resource, action access.Action) error
}
