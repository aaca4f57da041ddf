package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/actorcontext"
	authdomain "github.com/smallbiznis/trashforcoin/internal/auth/domain"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
)

const (
	contextIdentityKey = "identity"
	contextCartOrderID = "cart_order_id"
)

// AuthRequired resolves the session cookie into an actor and puts it on the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.sessions.Clear(c)
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), identity.Actor))
		c.Next()
	}
}

// Authorize checks the role capability table. Store scoping is left to the services.
func (s *Server) Authorize(resource access.Resource, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, resource, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// AuthorizeAny passes when the actor holds action on any of the resources.
func (s *Server) AuthorizeAny(action access.Action, resources ...access.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		err := access.ErrPermissionDenied
		for _, resource := range resources {
			if err = s.authzSvc.Authorize(c.Request.Context(), actor, resource, action); err == nil {
				c.Next()
				return
			}
		}
		AbortWithError(c, err)
	}
}

func identityFrom(c *gin.Context) (*authdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*authdomain.Identity)
	return identity, ok && identity != nil
}

func actorFrom(c *gin.Context) (access.Actor, bool) {
	return actorcontext.ActorFromContext(c.Request.Context())
}

// withCart loads the cart session of the current login, runs fn and saves the
// session before responding. The session is saved even when fn fails because a
// failed call may already have allocated an order id. A nil result answers 204.
func (s *Server) withCart(c *gin.Context, fn func(actor access.Actor, sess *cartsession.Session) (any, error)) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	sess, err := s.carts.Load(ctx, identity.CartKey())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, fnErr := fn(identity.Actor, sess)
	if sess.OrderID != "" && c.GetString(contextCartOrderID) == "" {
		c.Set(contextCartOrderID, sess.OrderID)
	}
	if err := s.carts.Save(ctx, sess); err != nil && fnErr == nil {
		fnErr = err
	}
	if fnErr != nil {
		AbortWithError(c, fnErr)
		return
	}
	if result == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}
