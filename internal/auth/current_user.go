package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/mycv/internal/database/users"
	"github.com/mrlokans/mycv/internal/entities"
)

// Context keys for request-scoped auth data
const (
	ContextKeySession     = "auth_session"
	ContextKeyCurrentUser = "auth_current_user"
)

// UserFinder loads users by id.
type UserFinder interface {
	FindOne(ctx context.Context, id uint) (*entities.User, error)
}

// CurrentUserMiddleware resolves the session's userId into a user record.
// A stale id or a store failure leaves the request anonymous; the chain
// always continues.
func CurrentUserMiddleware(finder UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetSession(c).UserID()
		if !ok {
			c.Next()
			return
		}

		user, err := finder.FindOne(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(ContextKeyCurrentUser, user)
		case errors.Is(err, users.ErrNotFound):
			log.Ctx(c.Request.Context()).Debug().Uint("user_id", id).Msg("Session references missing user")
		default:
			log.Ctx(c.Request.Context()).Warn().Err(err).Uint("user_id", id).Msg("Failed to resolve current user")
		}
		c.Next()
	}
}

// GetSession returns the request's session. Without the session middleware
// it returns a detached empty session whose changes are discarded.
func GetSession(c *gin.Context) *Session {
	if v, exists := c.Get(ContextKeySession); exists {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return newSession(nil)
}

// GetCurrentUser returns the user resolved for this request, if any.
func GetCurrentUser(c *gin.Context) (*entities.User, bool) {
	if v, exists := c.Get(ContextKeyCurrentUser); exists {
		if u, ok := v.(*entities.User); ok && u != nil {
			return u, true
		}
	}
	return nil, false
}
