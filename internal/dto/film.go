package dto

import (
	"github.com/filmhub/filmhub-api/internal/models"
)

// FilmPage is a single page of public films with paging metadata. It is also
// the shape cached in Redis for the public listing.
type FilmPage struct {
	Films      []models.Film     `json:"films"`
	Pagination models.Pagination `json:"pagination"`
}

// CreateFilmRequest payload for cataloguing a new film.
type CreateFilmRequest struct {
	Title     string `json:"title" validate:"required"`
	Private   bool   `json:"private"`
	WatchDate string `json:"watchDate,omitempty"`
	Rating    *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=10"`
	Favorite  bool   `json:"favorite"`
}

// UpdateFilmRequest payload for updating an owned film. Visibility cannot be
// changed once reviews may reference the film.
type UpdateFilmRequest struct {
	Title     string `json:"title" validate:"required"`
	WatchDate string `json:"watchDate,omitempty"`
	Rating    *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=10"`
	Favorite  bool   `json:"favorite"`
}
