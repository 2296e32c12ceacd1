package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/filmhub/filmhub-api/internal/models"
)

// ReviewRepository provides database access to the reviews table.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `film_id, reviewer_id, completed, review_date, rating, review`

// Get fetches the review identified by (film, reviewer).
func (r *ReviewRepository) Get(ctx context.Context, filmID, reviewerID int64) (*models.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE film_id = $1 AND reviewer_id = $2`
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, filmID, reviewerID); err != nil {
		return nil, err
	}
	return &review, nil
}

// Assign creates incomplete review rows for the given reviewers.
func (r *ReviewRepository) Assign(ctx context.Context, filmID int64, reviewerIDs []int64) error {
	const query = `INSERT INTO reviews (film_id, reviewer_id, completed) VALUES ($1, $2, FALSE)`
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, reviewerID := range reviewerIDs {
		if _, err := tx.ExecContext(ctx, query, filmID, reviewerID); err != nil {
			return fmt.Errorf("assign review to %d: %w", reviewerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign tx: %w", err)
	}
	return nil
}

// ListByFilm pages through a film's reviews.
func (r *ReviewRepository) ListByFilm(ctx context.Context, filmID int64, limit, offset int) ([]models.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE film_id = $1
	ORDER BY reviewer_id ASC LIMIT $2 OFFSET $3`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, filmID, limit, offset); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// CountByFilm returns the number of reviews for a film.
func (r *ReviewRepository) CountByFilm(ctx context.Context, filmID int64) (int, error) {
	const query = `SELECT count(*) FROM reviews WHERE film_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, filmID); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

// Update persists the reviewer's content and completion flag.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	const query = `UPDATE reviews SET completed = $3, review_date = $4, rating = $5, review = $6
	WHERE film_id = $1 AND reviewer_id = $2`
	result, err := r.db.ExecContext(ctx, query,
		review.FilmID, review.ReviewerID, review.Completed, review.ReviewDate, review.Rating, review.Review,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a review. Edit requests cascade.
func (r *ReviewRepository) Delete(ctx context.Context, filmID, reviewerID int64) error {
	const query = `DELETE FROM reviews WHERE film_id = $1 AND reviewer_id = $2`
	result, err := r.db.ExecContext(ctx, query, filmID, reviewerID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
