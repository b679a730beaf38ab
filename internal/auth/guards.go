package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mycv/internal/entities"
	"github.com/mrlokans/mycv/internal/metrics"
)

// IsAuthenticated reports whether the session carries a non-null userId.
// It does not check that the user still exists.
func IsAuthenticated(s *Session) bool {
	_, ok := s.UserID()
	return ok
}

// IsAdmin reports whether u is present and has the admin flag.
func IsAdmin(u *entities.User) bool {
	return u != nil && u.Admin
}

// AuthGuard rejects requests without a signed-in session.
func AuthGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(GetSession(c)) {
			forbid(c, "auth")
			return
		}
		c.Next()
	}
}

// AdminGuard rejects requests unless the resolved current user is an admin.
// It must run after CurrentUserMiddleware.
func AdminGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := GetCurrentUser(c)
		if !IsAdmin(user) {
			forbid(c, "admin")
			return
		}
		c.Next()
	}
}

func forbid(c *gin.Context, guard string) {
	metrics.RecordGuardDenial(guard)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
}
