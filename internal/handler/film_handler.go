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

type filmService interface {
	Create(ctx context.Context, ownerID int64, req dto.CreateFilmRequest) (*models.Film, error)
	Get(ctx context.Context, id, userID int64) (*models.Film, error)
	ListPublic(ctx context.Context, page int) (*dto.FilmPage, error)
	ListPrivate(ctx context.Context, ownerID int64) ([]models.Film, error)
	Update(ctx context.Context, id, userID int64, req dto.UpdateFilmRequest) (*models.Film, error)
	Delete(ctx context.Context, id, userID int64) error
}

// FilmHandler exposes the film catalogue endpoints.
type FilmHandler struct {
	service filmService
}

// NewFilmHandler constructs the handler.
func NewFilmHandler(service filmService) *FilmHandler {
	return &FilmHandler{service: service}
}

// Create godoc
// @Summary Catalogue a new film
// @Tags Films
// @Accept json
// @Produce json
// @Param payload body dto.CreateFilmRequest true "Film payload"
// @Success 201 {object} response.Envelope
// @Router /films [post]
func (h *FilmHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateFilmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid film payload"))
		return
	}
	film, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, film, nil)
}

// ListPublic godoc
// @Summary List public films
// @Tags Films
// @Produce json
// @Param pageNo query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /films/public [get]
func (h *FilmHandler) ListPublic(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.ListPublic(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Films, &result.Pagination)
}

// ListPrivate godoc
// @Summary List the caller's private films
// @Tags Films
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /films/private [get]
func (h *FilmHandler) ListPrivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	films, err := h.service.ListPrivate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, films, nil)
}

// Get godoc
// @Summary Get a film
// @Tags Films
// @Produce json
// @Param filmId path int true "Film ID"
// @Success 200 {object} response.Envelope
// @Router /films/{filmId} [get]
func (h *FilmHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	film, err := h.service.Get(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, film, nil)
}

// Update godoc
// @Summary Update an owned film
// @Tags Films
// @Accept json
// @Produce json
// @Param filmId path int true "Film ID"
// @Param payload body dto.UpdateFilmRequest true "Film payload"
// @Success 200 {object} response.Envelope
// @Router /films/{filmId} [put]
func (h *FilmHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateFilmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid film payload"))
		return
	}
	film, err := h.service.Update(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, film, nil)
}

// Delete godoc
// @Summary Delete an owned film
// @Tags Films
// @Param filmId path int true "Film ID"
// @Success 204
// @Router /films/{filmId} [delete]
func (h *FilmHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "filmId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
