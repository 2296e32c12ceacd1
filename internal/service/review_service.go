package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

const reviewDateLayout = "2006-01-02"

type reviewStore interface {
	Get(ctx context.Context, filmID, reviewerID int64) (*models.Review, error)
	Assign(ctx context.Context, filmID int64, reviewerIDs []int64) error
	ListByFilm(ctx context.Context, filmID int64, limit, offset int) ([]models.Review, error)
	CountByFilm(ctx context.Context, filmID int64) (int, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, filmID, reviewerID int64) error
}

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// ReviewService manages review assignment and completion for public films.
type ReviewService struct {
	repo     reviewStore
	films    filmGetter
	users    userFinder
	logger   *zap.Logger
	validate *validator.Validate
	pageSize int
}

// NewReviewService constructs the service.
func NewReviewService(repo reviewStore, films filmGetter, users userFinder, logger *zap.Logger, pageSize int) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ReviewService{
		repo:     repo,
		films:    films,
		users:    users,
		logger:   logger,
		validate: validator.New(),
		pageSize: pageSize,
	}
}

// Assign invites users to review a public film. Only the film owner may
// assign, and every reviewer must be an existing user.
func (s *ReviewService) Assign(ctx context.Context, filmID, userID int64, req dto.AssignReviewsRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	film, err := s.publicFilm(ctx, filmID)
	if err != nil {
		return err
	}
	if film.Owner != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the film owner may assign reviews")
	}

	for _, reviewerID := range req.ReviewerIDs {
		if _, err := s.users.FindByID(ctx, reviewerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("user %d does not exist", reviewerID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviewer")
		}
	}

	if err := s.repo.Assign(ctx, filmID, req.ReviewerIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign reviews")
	}
	return nil
}

// Get returns a single review of a public film.
func (s *ReviewService) Get(ctx context.Context, filmID, reviewerID, userID int64) (*models.Review, error) {
	film, err := s.publicFilm(ctx, filmID)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.Get(ctx, filmID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	review.ApplyLinks(userID, film.Owner)
	return review, nil
}

// List pages through a film's reviews.
func (s *ReviewService) List(ctx context.Context, filmID, userID int64, page int) (*dto.ReviewPage, error) {
	film, err := s.publicFilm(ctx, filmID)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}

	total, err := s.repo.CountByFilm(ctx, filmID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reviews")
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		return &dto.ReviewPage{
			Reviews: []models.Review{},
			Pagination: models.Pagination{
				CurrentPage: 0,
				PageSize:    s.pageSize,
				TotalItems:  0,
				TotalPages:  0,
			},
		}, nil
	}
	if page > totalPages {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "the page does not exist")
	}

	reviews, err := s.repo.ListByFilm(ctx, filmID, s.pageSize, s.pageSize*(page-1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	for i := range reviews {
		reviews[i].ApplyLinks(userID, film.Owner)
	}

	result := &dto.ReviewPage{
		Reviews: reviews,
		Pagination: models.Pagination{
			CurrentPage: page,
			PageSize:    s.pageSize,
			TotalItems:  total,
			TotalPages:  totalPages,
		},
	}
	if page < totalPages {
		result.Pagination.Next = fmt.Sprintf("/api/films/public/%d/reviews?pageNo=%d", filmID, page+1)
	}
	return result, nil
}

// Update lets the assigned reviewer fill in and complete their review.
func (s *ReviewService) Update(ctx context.Context, filmID, reviewerID, userID int64, req dto.UpdateReviewRequest) (*models.Review, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if userID != reviewerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned reviewer may update a review")
	}

	film, err := s.publicFilm(ctx, filmID)
	if err != nil {
		return nil, err
	}
	review, err := s.repo.Get(ctx, filmID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}

	review.Completed = req.Completed
	review.Rating = req.Rating
	if req.Review != "" {
		review.Review = &req.Review
	} else {
		review.Review = nil
	}
	if req.ReviewDate != "" {
		parsed, err := time.Parse(reviewDateLayout, req.ReviewDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reviewDate must use the YYYY-MM-DD format")
		}
		review.ReviewDate = &parsed
	} else {
		review.ReviewDate = nil
	}

	if err := s.repo.Update(ctx, review); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}
	review.ApplyLinks(userID, film.Owner)
	return review, nil
}

// Delete removes an assignment. Only the film owner may delete, and only
// while the review is still incomplete.
func (s *ReviewService) Delete(ctx context.Context, filmID, reviewerID, userID int64) error {
	film, err := s.publicFilm(ctx, filmID)
	if err != nil {
		return err
	}
	if film.Owner != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the film owner may delete a review")
	}

	review, err := s.repo.Get(ctx, filmID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if review.Completed {
		return appErrors.Clone(appErrors.ErrConflict, "a completed review cannot be deleted")
	}

	if err := s.repo.Delete(ctx, filmID, reviewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return nil
}

func (s *ReviewService) publicFilm(ctx context.Context, filmID int64) (*models.Film, error) {
	film, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
	}
	if film.Private {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
	}
	return film, nil
}
