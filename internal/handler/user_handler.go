package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filmhub/filmhub-api/internal/models"
	"github.com/filmhub/filmhub-api/pkg/response"
)

type userService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
}

// UserHandler exposes the user directory.
type UserHandler struct {
	service userService
}

// NewUserHandler constructs the handler.
func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Get godoc
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{userId} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c, "userId")
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
