package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	"github.com/filmhub/filmhub-api/internal/repository"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
	"github.com/filmhub/filmhub-api/pkg/export"
	"github.com/filmhub/filmhub-api/pkg/jobs"
)

// JobKindReviewExport identifies review export jobs on the queue.
const JobKindReviewExport = "review_export"

const exportBatchSize = 500

type exportStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type reviewLister interface {
	ListByFilm(ctx context.Context, filmID int64, limit, offset int) ([]models.Review, error)
}

type artifactStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

type exportObserver interface {
	ObserveExport(format, outcome string, duration time.Duration)
}

// ExportService runs the asynchronous review export pipeline: a film owner
// requests an export, a background worker renders the artifact, and the owner
// downloads it through a signed URL.
type ExportService struct {
	repo     exportStore
	films    filmGetter
	reviews  reviewLister
	storage  artifactStorage
	signer   urlSigner
	queue    enqueuer
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
	metrics  exportObserver
}

// ExportServiceOption configures the service.
type ExportServiceOption func(*ExportService)

// WithExportObserver wires export job duration metrics.
func WithExportObserver(observer exportObserver) ExportServiceOption {
	return func(s *ExportService) {
		s.metrics = observer
	}
}

// NewExportService constructs the service.
func NewExportService(repo exportStore, films filmGetter, reviews reviewLister, storage artifactStorage, signer urlSigner, queue enqueuer, logger *zap.Logger, opts ...ExportServiceOption) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		repo:     repo,
		films:    films,
		reviews:  reviews,
		storage:  storage,
		signer:   signer,
		queue:    queue,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates the request, records the job, and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, userID int64, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	film, err := s.films.GetByID(ctx, req.FilmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
	}
	if film.Owner != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the film owner may export reviews")
	}

	job := &models.ExportJob{
		FilmID:    req.FilmID,
		Format:    req.Format,
		Status:    models.ExportStatusQueued,
		CreatedBy: userID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: JobKindReviewExport, Enqueued: s.now()}); err != nil {
		s.failJob(ctx, job.ID, "worker queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// GetStatus reports job progress to its creator, including a signed download
// URL once the artifact is ready.
func (s *ExportService) GetStatus(ctx context.Context, jobID string, userID int64) (*dto.ExportJobResponse, error) {
	job, err := s.loadOwnedJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ExportJobResponse{ID: job.ID, Status: job.Status}
	if job.ErrorMessage != nil {
		resp.Error = *job.ErrorMessage
	}
	if job.Status == models.ExportStatusDone && job.FilePath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		resp.DownloadURL = fmt.Sprintf("/api/exports/download?token=%s", token)
	}
	return resp, nil
}

// Process is the queue handler. It renders the artifact and persists the
// outcome; a returned error makes the queue retry.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}

	startedAt := s.now()
	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportJobParams{
		Status:    &processing,
		StartedAt: &startedAt,
	}); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	data, err := s.buildDataset(ctx, record.FilmID)
	if err != nil {
		s.failJob(ctx, record.ID, err.Error())
		s.observeExport(record.Format, models.ExportStatusFailed, startedAt)
		return err
	}

	var artifact []byte
	switch record.Format {
	case models.ExportFormatPDF:
		artifact, err = s.pdf.Render(data, fmt.Sprintf("Reviews for film %d", record.FilmID))
	default:
		artifact, err = s.csv.Render(data)
	}
	if err != nil {
		s.failJob(ctx, record.ID, err.Error())
		s.observeExport(record.Format, models.ExportStatusFailed, startedAt)
		return fmt.Errorf("render export %s: %w", record.ID, err)
	}

	filename := fmt.Sprintf("%s.%s", record.ID, record.Format)
	if _, err := s.storage.Save(filename, artifact); err != nil {
		s.failJob(ctx, record.ID, err.Error())
		s.observeExport(record.Format, models.ExportStatusFailed, startedAt)
		return fmt.Errorf("store export %s: %w", record.ID, err)
	}

	finishedAt := s.now()
	done := models.ExportStatusDone
	if err := s.repo.Update(ctx, record.ID, repository.UpdateExportJobParams{
		Status:     &done,
		FilePath:   &filename,
		FinishedAt: &finishedAt,
	}); err != nil {
		return fmt.Errorf("mark export job done: %w", err)
	}
	s.observeExport(record.Format, models.ExportStatusDone, startedAt)
	s.logger.Info("export job finished",
		zap.String("job_id", record.ID),
		zap.Int64("film_id", record.FilmID),
		zap.String("format", string(record.Format)))
	return nil
}

// Download resolves a signed token to the artifact file.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "the export does not exist")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportStatusDone || job.FilePath == nil || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "the export artifact is not available")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export artifact")
	}
	return file, relPath, nil
}

// Cleanup removes artifacts of jobs finished before the retention cutoff,
// then sweeps the storage directory for orphaned files of the same age.
func (s *ExportService) Cleanup(ctx context.Context, retention time.Duration) {
	cutoff := s.now().Add(-retention)
	stale, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("export cleanup listing failed", zap.Error(err))
		return
	}
	for _, job := range stale {
		if job.FilePath == nil || *job.FilePath == "" {
			continue
		}
		if err := s.storage.Delete(*job.FilePath); err != nil {
			s.logger.Warn("failed to delete export artifact",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{ClearFilePath: true}); err != nil {
			s.logger.Warn("failed to clear export file path",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	orphans, err := s.storage.CleanupOlderThan(retention)
	if err != nil {
		s.logger.Warn("export storage sweep failed", zap.Error(err))
		return
	}
	if len(orphans) > 0 {
		s.logger.Info("removed orphaned export files", zap.Strings("files", orphans))
	}
}

func (s *ExportService) loadOwnedJob(ctx context.Context, jobID string, userID int64) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the export does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.CreatedBy != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may access an export")
	}
	return job, nil
}

func (s *ExportService) buildDataset(ctx context.Context, filmID int64) (export.Dataset, error) {
	data := export.Dataset{
		Headers: []string{"reviewerId", "completed", "reviewDate", "rating", "review"},
	}
	for offset := 0; ; offset += exportBatchSize {
		reviews, err := s.reviews.ListByFilm(ctx, filmID, exportBatchSize, offset)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("list reviews for export: %w", err)
		}
		for _, review := range reviews {
			row := map[string]string{
				"reviewerId": strconv.FormatInt(review.ReviewerID, 10),
				"completed":  strconv.FormatBool(review.Completed),
			}
			if review.ReviewDate != nil {
				row["reviewDate"] = review.ReviewDate.Format(reviewDateLayout)
			}
			if review.Rating != nil {
				row["rating"] = strconv.Itoa(*review.Rating)
			}
			if review.Review != nil {
				row["review"] = *review.Review
			}
			data.Rows = append(data.Rows, row)
		}
		if len(reviews) < exportBatchSize {
			return data, nil
		}
	}
}

func (s *ExportService) observeExport(format models.ExportFormat, outcome models.ExportStatus, startedAt time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveExport(string(format), string(outcome), s.now().Sub(startedAt))
}

func (s *ExportService) failJob(ctx context.Context, jobID, message string) {
	failed := models.ExportStatusFailed
	finishedAt := s.now()
	if err := s.repo.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &finishedAt,
	}); err != nil {
		s.logger.Warn("failed to mark export job failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
}
