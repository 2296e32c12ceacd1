package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/filmhub/filmhub-api/internal/models"
)

// ExportRepository persists review export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = `id, film_id, format, status, file_path, error_message, created_by, created_at, started_at, finished_at`

// Create inserts a new export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, film_id, format, status, created_by, created_at)
	VALUES (:id, :film_id, :format, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID fetches an export job.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateExportJobParams groups mutable job columns.
type UpdateExportJobParams struct {
	Status        *models.ExportStatus
	FilePath      *string
	ClearFilePath bool
	ErrorMessage  *string
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// Update persists job progress.
func (r *ExportRepository) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	setParts := make([]string, 0, 5)
	args := map[string]interface{}{"id": id}
	if params.Status != nil {
		setParts = append(setParts, "status = :status")
		args["status"] = *params.Status
	}
	if params.ClearFilePath {
		setParts = append(setParts, "file_path = NULL")
	} else if params.FilePath != nil {
		setParts = append(setParts, "file_path = :file_path")
		args["file_path"] = *params.FilePath
	}
	if params.ErrorMessage != nil {
		setParts = append(setParts, "error_message = :error_message")
		args["error_message"] = *params.ErrorMessage
	}
	if params.StartedAt != nil {
		setParts = append(setParts, "started_at = :started_at")
		args["started_at"] = *params.StartedAt
	}
	if params.FinishedAt != nil {
		setParts = append(setParts, "finished_at = :finished_at")
		args["finished_at"] = *params.FinishedAt
	}
	if len(setParts) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = :id", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check export job rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListFinishedBefore returns finished jobs older than the cutoff that still
// hold an artifact, used to prune stale files.
func (r *ExportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportColumns + ` FROM export_jobs
	WHERE status IN ('done', 'failed') AND finished_at < $1 AND file_path IS NOT NULL
	ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	return jobs, nil
}
