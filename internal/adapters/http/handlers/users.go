package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/request-scope-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/request-scope-service/internal/app"
)

// UserHandler reports the identity bound to the current request.
type UserHandler struct {
	users *app.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users *app.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile handles GET /api/v1/user/profile
// A request without identity headers still answers 200 with available=false.
//
// @Summary Current user profile
// @Tags user
// @Produce json
// @Success 200 {object} dto.UserProfileResponse
// @Router /api/v1/user/profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	p := h.users.Profile(c.Request.Context())

	c.JSON(http.StatusOK, dto.UserProfileResponse{
		Available: p.Available,
		UserID:    p.UserID,
		SessionID: p.SessionID,
		Message:   p.Message,
	})
}

// Context handles GET /api/v1/user/context
//
// @Summary Current execution context
// @Tags user
// @Produce json
// @Success 200 {object} dto.ContextResponse
// @Router /api/v1/user/context [get]
func (h *UserHandler) Context(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ContextResponse{
		Context: h.users.ContextSummary(c.Request.Context()),
	})
}

// RegisterUserRoutes registers user routes on the given router group.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup) {
	user := rg.Group("/user")
	user.GET("/profile", h.Profile)
	user.GET("/context", h.Context)
}
