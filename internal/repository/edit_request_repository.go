package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/filmhub/filmhub-api/internal/models"
)

// EditRequestRepository persists edit-request lifecycle data.
type EditRequestRepository struct {
	db *sqlx.DB
}

// NewEditRequestRepository constructs the repository.
func NewEditRequestRepository(db *sqlx.DB) *EditRequestRepository {
	return &EditRequestRepository{db: db}
}

const editRequestColumns = `id, film_id, reviewer_id, deadline, status`

// Create inserts a new edit request and fills in the assigned id.
func (r *EditRequestRepository) Create(ctx context.Context, req *models.EditRequest) error {
	if req.Status == "" {
		req.Status = models.EditRequestPending
	}
	const query = `INSERT INTO edit_requests (film_id, reviewer_id, deadline, status)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, req.FilmID, req.ReviewerID, req.Deadline, req.Status).Scan(&req.ID); err != nil {
		return fmt.Errorf("create edit request: %w", err)
	}
	return nil
}

// GetByID fetches a single edit request.
func (r *EditRequestRepository) GetByID(ctx context.Context, id int64) (*models.EditRequest, error) {
	const query = `SELECT ` + editRequestColumns + ` FROM edit_requests WHERE id = $1`
	var req models.EditRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByReview returns every edit request targeting the given review, newest
// deadline first.
func (r *EditRequestRepository) ListByReview(ctx context.Context, filmID, reviewerID int64) ([]models.EditRequest, error) {
	const query = `SELECT ` + editRequestColumns + ` FROM edit_requests
	WHERE film_id = $1 AND reviewer_id = $2 ORDER BY deadline DESC`
	var requests []models.EditRequest
	if err := r.db.SelectContext(ctx, &requests, query, filmID, reviewerID); err != nil {
		return nil, fmt.Errorf("list edit requests: %w", err)
	}
	return requests, nil
}

// HasLivePending reports whether a Pending request with a deadline after the
// given instant exists for the review.
func (r *EditRequestRepository) HasLivePending(ctx context.Context, filmID, reviewerID int64, now time.Time) (bool, error) {
	const query = `SELECT count(*) FROM edit_requests
	WHERE film_id = $1 AND reviewer_id = $2 AND status = 'Pending' AND deadline > $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, filmID, reviewerID, now); err != nil {
		return false, fmt.Errorf("count live edit requests: %w", err)
	}
	return count > 0, nil
}

// ExpirePending rejects every Pending request whose deadline has passed and
// returns the number of swept rows.
func (r *EditRequestRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE edit_requests SET status = 'Rejected'
	WHERE status = 'Pending' AND deadline < $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire pending edit requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired rows: %w", err)
	}
	return rows, nil
}

// Reject marks a Pending request Rejected. The status guard keeps a
// concurrent decision from being overwritten; zero rows surfaces as
// sql.ErrNoRows.
func (r *EditRequestRepository) Reject(ctx context.Context, id int64) error {
	const query = `UPDATE edit_requests SET status = 'Rejected' WHERE id = $1 AND status = 'Pending'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reject edit request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rejected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Approve marks a live Pending request Approved and reopens the target review
// in one transaction. The WHERE guard collapses the check-then-act window to
// the row update itself; zero rows surfaces as sql.ErrNoRows.
func (r *EditRequestRepository) Approve(ctx context.Context, id, filmID, reviewerID int64, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const approveQuery = `UPDATE edit_requests SET status = 'Approved'
	WHERE id = $1 AND status = 'Pending' AND deadline > $2`
	result, err := tx.ExecContext(ctx, approveQuery, id, now)
	if err != nil {
		return fmt.Errorf("approve edit request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check approved rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	const reopenQuery = `UPDATE reviews SET completed = FALSE WHERE film_id = $1 AND reviewer_id = $2`
	if _, err := tx.ExecContext(ctx, reopenQuery, filmID, reviewerID); err != nil {
		return fmt.Errorf("reopen review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// Delete removes an edit request permanently.
func (r *EditRequestRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM edit_requests WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete edit request: %w", err)
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

// ListReceivedPending pages through Pending requests targeting films owned by
// the given user, closest deadline first.
func (r *EditRequestRepository) ListReceivedPending(ctx context.Context, ownerID int64, limit, offset int) ([]models.EditRequest, error) {
	const query = `SELECT ` + editRequestColumns + ` FROM edit_requests
	WHERE film_id IN (SELECT id FROM films WHERE owner = $1) AND status = 'Pending'
	ORDER BY deadline ASC LIMIT $2 OFFSET $3`
	var requests []models.EditRequest
	if err := r.db.SelectContext(ctx, &requests, query, ownerID, limit, offset); err != nil {
		return nil, fmt.Errorf("list received edit requests: %w", err)
	}
	return requests, nil
}

// CountReceivedPending returns the total matching ListReceivedPending.
func (r *EditRequestRepository) CountReceivedPending(ctx context.Context, ownerID int64) (int, error) {
	const query = `SELECT count(*) FROM edit_requests
	WHERE film_id IN (SELECT id FROM films WHERE owner = $1) AND status = 'Pending'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, ownerID); err != nil {
		return 0, fmt.Errorf("count received edit requests: %w", err)
	}
	return count, nil
}

// ListSent pages through every request issued by the reviewer, newest
// deadline first.
func (r *EditRequestRepository) ListSent(ctx context.Context, reviewerID int64, limit, offset int) ([]models.EditRequest, error) {
	const query = `SELECT ` + editRequestColumns + ` FROM edit_requests
	WHERE reviewer_id = $1 ORDER BY deadline DESC LIMIT $2 OFFSET $3`
	var requests []models.EditRequest
	if err := r.db.SelectContext(ctx, &requests, query, reviewerID, limit, offset); err != nil {
		return nil, fmt.Errorf("list sent edit requests: %w", err)
	}
	return requests, nil
}

// CountSent returns the total matching ListSent.
func (r *EditRequestRepository) CountSent(ctx context.Context, reviewerID int64) (int, error) {
	const query = `SELECT count(*) FROM edit_requests WHERE reviewer_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, reviewerID); err != nil {
		return 0, fmt.Errorf("count sent edit requests: %w", err)
	}
	return count, nil
}
