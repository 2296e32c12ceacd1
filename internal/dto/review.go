package dto

import (
	"github.com/filmhub/filmhub-api/internal/models"
)

// ReviewPage is a single page of a film's reviews with paging metadata.
type ReviewPage struct {
	Reviews    []models.Review   `json:"reviews"`
	Pagination models.Pagination `json:"pagination"`
}

// AssignReviewsRequest lists the users invited to review a public film.
type AssignReviewsRequest struct {
	ReviewerIDs []int64 `json:"reviewerIds" validate:"required,min=1,dive,gt=0"`
}

// UpdateReviewRequest payload for a reviewer completing their review.
type UpdateReviewRequest struct {
	Completed  bool   `json:"completed"`
	ReviewDate string `json:"reviewDate,omitempty"`
	Rating     *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=10"`
	Review     string `json:"review,omitempty"`
}
