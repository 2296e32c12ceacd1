package handler

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
	"github.com/filmhub/filmhub-api/pkg/response"
)

// deadlinePattern accepts RFC 3339 timestamps truncated to the minute, with a
// Z or numeric offset. Seconds are not accepted.
var deadlinePattern = regexp.MustCompile(`^([0-9]{4})-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])T([01][0-9]|2[0-3]):([0-5][0-9])(Z|[+-]([01][0-9]|2[0-3]):[0-5][0-9])$`)

const deadlineLayout = "2006-01-02T15:04Z07:00"

type editRequestService interface {
	Issue(ctx context.Context, filmID, reviewerID int64, deadline time.Time) (*models.EditRequest, error)
	ListForReview(ctx context.Context, filmID, reviewerID, userID int64) ([]models.EditRequest, error)
	Get(ctx context.Context, id, filmID, reviewerID, userID int64) (*models.EditRequest, error)
	Approve(ctx context.Context, id, filmID, reviewerID, userID int64) error
	Reject(ctx context.Context, id, filmID, reviewerID, userID int64) error
	Delete(ctx context.Context, id, filmID, reviewerID, userID int64) error
	ReceivedPending(ctx context.Context, ownerID int64, page int) (*dto.EditRequestPage, error)
	Sent(ctx context.Context, reviewerID int64, page int) (*dto.EditRequestPage, error)
}

// EditRequestHandler exposes the edit-request lifecycle endpoints.
type EditRequestHandler struct {
	service editRequestService
}

// NewEditRequestHandler constructs the handler.
func NewEditRequestHandler(service editRequestService) *EditRequestHandler {
	return &EditRequestHandler{service: service}
}

// Issue godoc
// @Summary Issue an edit request for a completed review
// @Tags EditRequests
// @Accept json
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Param payload body dto.IssueEditRequestRequest true "Edit request payload"
// @Success 201 {object} response.Envelope
// @Router /films/public/{filmId}/reviews/{reviewerId}/editRequests [post]
func (h *EditRequestHandler) Issue(c *gin.Context) {
	filmID, reviewerID, claims, err := h.reviewContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims.UserID != reviewerID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the reviewer may issue an edit request"))
		return
	}

	var req dto.IssueEditRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit request payload"))
		return
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		response.Error(c, err)
		return
	}

	request, err := h.service.Issue(c.Request.Context(), filmID, reviewerID, deadline)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List edit requests for a review
// @Tags EditRequests
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Success 200 {object} response.Envelope
// @Router /films/public/{filmId}/reviews/{reviewerId}/editRequests [get]
func (h *EditRequestHandler) List(c *gin.Context) {
	filmID, reviewerID, claims, err := h.reviewContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requests, err := h.service.ListForReview(c.Request.Context(), filmID, reviewerID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get a single edit request
// @Tags EditRequests
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Param requestId path int true "Edit request ID"
// @Success 200 {object} response.Envelope
// @Router /films/public/{filmId}/reviews/{reviewerId}/editRequests/{requestId} [get]
func (h *EditRequestHandler) Get(c *gin.Context) {
	filmID, reviewerID, claims, err := h.reviewContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requestID, err := pathID(c, "requestId")
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.Get(c.Request.Context(), requestID, filmID, reviewerID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Decide godoc
// @Summary Approve or reject a pending edit request
// @Tags EditRequests
// @Accept json
// @Produce json
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Param requestId path int true "Edit request ID"
// @Param payload body dto.DecideEditRequestRequest true "Decision payload"
// @Success 204
// @Router /films/public/{filmId}/reviews/{reviewerId}/editRequests/{requestId} [put]
func (h *EditRequestHandler) Decide(c *gin.Context) {
	filmID, reviewerID, claims, err := h.reviewContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requestID, err := pathID(c, "requestId")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.DecideEditRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accepted == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "accepted must be provided as a boolean"))
		return
	}

	if *req.Accepted {
		err = h.service.Approve(c.Request.Context(), requestID, filmID, reviewerID, claims.UserID)
	} else {
		err = h.service.Reject(c.Request.Context(), requestID, filmID, reviewerID, claims.UserID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a pending edit request
// @Tags EditRequests
// @Param filmId path int true "Film ID"
// @Param reviewerId path int true "Reviewer ID"
// @Param requestId path int true "Edit request ID"
// @Success 204
// @Router /films/public/{filmId}/reviews/{reviewerId}/editRequests/{requestId} [delete]
func (h *EditRequestHandler) Delete(c *gin.Context) {
	filmID, reviewerID, claims, err := h.reviewContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	requestID, err := pathID(c, "requestId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), requestID, filmID, reviewerID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Received godoc
// @Summary List pending edit requests targeting the caller's films
// @Tags EditRequests
// @Produce json
// @Param pageNo query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /films/public/reviews/editRequests/received [get]
func (h *EditRequestHandler) Received(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ReceivedPending(c.Request.Context(), claims.UserID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.EditRequests, &result.Pagination)
}

// Sent godoc
// @Summary List edit requests issued by the caller
// @Tags EditRequests
// @Produce json
// @Param pageNo query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /films/public/reviews/editRequests/sent [get]
func (h *EditRequestHandler) Sent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Sent(c.Request.Context(), claims.UserID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.EditRequests, &result.Pagination)
}

func (h *EditRequestHandler) reviewContext(c *gin.Context) (filmID, reviewerID int64, claims *models.JWTClaims, err error) {
	claims = claimsFromContext(c)
	if claims == nil {
		return 0, 0, nil, appErrors.ErrUnauthorized
	}
	filmID, err = pathID(c, "filmId")
	if err != nil {
		return 0, 0, nil, err
	}
	reviewerID, err = pathID(c, "reviewerId")
	if err != nil {
		return 0, 0, nil, err
	}
	return filmID, reviewerID, claims, nil
}

// parseDeadline enforces the minute-precision timestamp format and requires
// the deadline to lie in the future.
func parseDeadline(raw string) (time.Time, error) {
	if !deadlinePattern.MatchString(raw) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "deadline must be a YYYY-MM-DDTHH:MM timestamp with a Z or numeric offset")
	}
	deadline, err := time.Parse(deadlineLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "deadline is not a valid timestamp")
	}
	if !deadline.After(time.Now()) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "deadline must be in the future")
	}
	return deadline, nil
}
