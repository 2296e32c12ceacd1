package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/filmhub/filmhub-api/internal/middleware"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

// pageFromQuery reads the pageNo query parameter, defaulting to the first
// page. A malformed value is a validation error rather than a silent default.
func pageFromQuery(c *gin.Context) (int, error) {
	raw := c.Query("pageNo")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "pageNo must be a positive integer")
	}
	return page, nil
}
