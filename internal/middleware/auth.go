package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

const ContextActor = "actor"

// TokenValidator resolves a bearer token into the calling actor
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (model.Actor, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and stores the actor in the context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("no token provided", nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid authorization format", nil))
			return
		}

		actor, err := m.validator.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			if !apperrors.Is(err, apperrors.KindUnauthorized) {
				err = apperrors.NewUnauthorized("invalid token", err)
			}
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireRole rejects authenticated callers without the given role. It must
// run after Authenticate.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required", nil))
			return
		}
		if actor.Role != role {
			httputil.RespondWithError(c, apperrors.NewForbidden(string(role)+" access required"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by Authenticate
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
