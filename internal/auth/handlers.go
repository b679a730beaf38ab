package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/entities"
	"github.com/mrlokans/mycv/internal/metrics"
)

// Audit actions recorded by the controller.
const (
	ActionSignup  = "signup"
	ActionSignin  = "signin"
	ActionSignout = "signout"
)

// CredentialsRequest is the body of signup and signin.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// NewUserResponse converts a user record, dropping the credential.
func NewUserResponse(u *entities.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Admin: u.Admin}
}

// AuthController serves the session endpoints under /auth.
type AuthController struct {
	service     *Service
	rateLimiter *RateLimiter
	audit       *audit.Service
}

// NewAuthController creates the controller. rateLimiter and auditService may be nil.
func NewAuthController(service *Service, rateLimiter *RateLimiter, auditService *audit.Service) *AuthController {
	return &AuthController{
		service:     service,
		rateLimiter: rateLimiter,
		audit:       auditService,
	}
}

// RegisterRoutes registers the session routes on the /auth group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/signup", ac.Signup)
	group.POST("/signin", ac.Signin)
	group.POST("/signout", AuthGuard(), ac.Signout)
	group.GET("/whoami", AuthGuard(), ac.WhoAmI)
	group.GET("/csrf", ac.CSRFToken)
}

// Stop releases the rate limiter's background goroutine.
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

// Signup creates an account and signs the session in as it.
func (ac *AuthController) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ac.service.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		metrics.RecordAuth(metrics.OpSignup, metrics.OutcomeFailure)
		ac.audit.LogAuth(0, ActionSignup, c.ClientIP(), c.Request.UserAgent(), err)
		ac.respondAuthError(c, err)
		return
	}

	GetSession(c).SetUserID(user.ID)
	metrics.RecordAuth(metrics.OpSignup, metrics.OutcomeSuccess)
	ac.audit.LogAuth(user.ID, ActionSignup, c.ClientIP(), c.Request.UserAgent(), nil)

	c.JSON(http.StatusCreated, NewUserResponse(user))
}

// Signin verifies credentials and signs the session in.
func (ac *AuthController) Signin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Email); !allowed {
			metrics.RecordAuth(metrics.OpSignin, metrics.OutcomeRateLimited)
			ac.audit.LogAuth(0, ActionSignin, clientIP, c.Request.UserAgent(), ErrTooManyAttempts)
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": ErrTooManyAttempts.Error()})
			return
		}
	}

	user, err := ac.service.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			if locked, _ := ac.rateLimiter.RecordFailure(clientIP, req.Email); locked {
				log.Ctx(c.Request.Context()).Warn().Str("ip", clientIP).Msg("Signin locked out after repeated failures")
			}
		}
		metrics.RecordAuth(metrics.OpSignin, metrics.OutcomeFailure)
		ac.audit.LogAuth(0, ActionSignin, clientIP, c.Request.UserAgent(), err)
		ac.respondAuthError(c, err)
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, req.Email)
	}
	GetSession(c).SetUserID(user.ID)
	metrics.RecordAuth(metrics.OpSignin, metrics.OutcomeSuccess)
	ac.audit.LogAuth(user.ID, ActionSignin, clientIP, c.Request.UserAgent(), nil)

	c.JSON(http.StatusCreated, NewUserResponse(user))
}

// Signout clears the session's user id. The cookie itself stays.
func (ac *AuthController) Signout(c *gin.Context) {
	session := GetSession(c)
	userID, _ := session.UserID()
	session.ClearUserID()

	metrics.RecordAuth(metrics.OpSignout, metrics.OutcomeSuccess)
	ac.audit.LogAuth(userID, ActionSignout, c.ClientIP(), c.Request.UserAgent(), nil)

	c.Status(http.StatusOK)
}

// WhoAmI returns the resolved current user.
func (ac *AuthController) WhoAmI(c *gin.Context) {
	user, ok := GetCurrentUser(c)
	if !ok {
		// A session pointing at a deleted user gets 404 rather than a null body.
		c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}

// CSRFToken hands out the masked CSRF token. It is empty when CSRF
// protection is disabled.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"token": GetCSRFToken(c)})
}

func (ac *AuthController) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailInUse), errors.Is(err, ErrBadCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": rootMessage(err)})
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": rootMessage(err)})
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("Authentication failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// rootMessage returns the sentinel's message so wrapped context such as the
// email address never reaches the client.
func rootMessage(err error) string {
	for _, sentinel := range []error{ErrEmailInUse, ErrBadCredentials, ErrUserNotFound, ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
