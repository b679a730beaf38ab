package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mycv/internal/audit"
	"github.com/mrlokans/mycv/internal/auth"
)

// UpdateUserRequest is the body of PATCH /auth/:id. Absent fields are left
// alone; present ones must be valid, so an empty password is rejected.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitnil,email"`
	Password *string `json:"password" binding:"omitnil,min=1"`
}

// UsersController exposes user records under /auth.
type UsersController struct {
	service *auth.Service
	audit   *audit.Service
}

func NewUsersController(service *auth.Service, auditService *audit.Service) *UsersController {
	return &UsersController{service: service, audit: auditService}
}

// RegisterRoutes registers the user routes on the /auth group.
func (uc *UsersController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", uc.FindUsers)
	group.GET("/:id", uc.GetUser)
	group.PATCH("/:id", uc.UpdateUser)
	group.DELETE("/:id", uc.RemoveUser)
}

// GetUser handles GET /auth/:id
func (uc *UsersController) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.service.FindUser(c.Request.Context(), id)
	if err != nil {
		uc.respondUserError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, auth.NewUserResponse(user))
}

// FindUsers handles GET /auth?email=. Without email every user is listed.
func (uc *UsersController) FindUsers(c *gin.Context) {
	found, err := uc.service.FindUsers(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondInternalError(c, err, "find users")
		return
	}

	resp := make([]auth.UserResponse, 0, len(found))
	for i := range found {
		resp = append(resp, auth.NewUserResponse(&found[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateUser handles PATCH /auth/:id
func (uc *UsersController) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := uc.service.UpdateUser(c.Request.Context(), id, auth.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		uc.respondUserError(c, err, "update user")
		return
	}

	uc.audit.LogUser(actorID(c), "user_update", user.ID, fmt.Sprintf("updated user %d", user.ID))
	c.JSON(http.StatusOK, auth.NewUserResponse(user))
}

// RemoveUser handles DELETE /auth/:id and returns the removed user.
func (uc *UsersController) RemoveUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := uc.service.RemoveUser(c.Request.Context(), id)
	if err != nil {
		uc.respondUserError(c, err, "remove user")
		return
	}

	uc.audit.LogUser(actorID(c), "user_remove", id, fmt.Sprintf("removed user %d", id))
	c.JSON(http.StatusOK, auth.NewUserResponse(user))
}

func (uc *UsersController) respondUserError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		respondNotFound(c, "user")
	case errors.Is(err, auth.ErrEmailInUse):
		respondBadRequest(c, auth.ErrEmailInUse.Error())
	default:
		respondInternalError(c, err, context)
	}
}
