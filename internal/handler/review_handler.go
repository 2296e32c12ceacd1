package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
	"github.com/filmhub/filmhub-api/pkg/response"
)

type reviewService interface {
	Assign(ctx context.Context, filmID, userID int64, req dto.AssignReviewsRequest) error
	Get(ctx context.Context, filmID, reviewerID, userID int64) (*models.Review, error)
	List(ctx context.Context, filmID, userID int64, page int) (*dto.ReviewPage, error)
	Update(ctx context.Context, filmID, reviewerID, userID int64, req dto.UpdateReviewRequest) (*models.Review, error)
	Delete(ctx context.Context, filmID, reviewerID, userID int64) error
}

// ReviewHandler exposes review assignment and completion endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Assign godoc
// @Summary Assign reviewers to a public film
// @Tags Reviews
// @Accept json
// @Produce json
// @Param filmId path int true "Film ID"
// @Param payload body dto.AssignReviewsRequest true "Reviewer IDs"
// @Success 204
// @Router /films/public/{filmId}/reviews [post]
func (h *ReviewHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filmID, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignReviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review assignment payload"))
		return
	}
	if err := h.service.Assign(c.Request.Context(), filmID, claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List a film's reviews
// @Tags Reviews
// @Produce json
// @Param filmId path int true "Film ID"
// @Param pageNo query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /films/public/{filmId}/reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filmID, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.List(c.Request.Context(), filmID, claims.UserID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Reviews, &result.Pagination)
}

// Get godoc
// @Summary Get a single review
// @Tags Reviews
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Success 200 {object} response.Envelope
// @Router /films/public/{filmId}/reviews/{reviewerId} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filmID, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		response.Error(c, err)
		return
	}
	review, err := h.service.Get(c.Request.Context(), filmID, reviewerID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Update godoc
// @Summary Complete or update an assigned review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Param payload body dto.UpdateReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /films/public/{filmId}/reviews/{reviewerId} [put]
func (h *ReviewHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filmID, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	review, err := h.service.Update(c.Request.Context(), filmID, reviewerID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Delete an incomplete review assignment
// @Tags Reviews
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Success 204
// @Router /films/public/{filmId}/reviews/{reviewerId} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filmID, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	reviewerID, err := pathID(c, "reviewerId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), filmID, reviewerID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
