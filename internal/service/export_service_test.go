package service

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	"github.com/filmhub/filmhub-api/internal/repository"
	"github.com/filmhub/filmhub-api/pkg/jobs"
	"github.com/filmhub/filmhub-api/pkg/storage"
)

type exportRepoStub struct {
	jobsByID map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobsByID: make(map[string]*models.ExportJob)}
}

func (s *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	copy := *job
	s.jobsByID[job.ID] = &copy
	return nil
}

func (s *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := s.jobsByID[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := s.jobsByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ClearFilePath {
		job.FilePath = nil
	} else if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.StartedAt != nil {
		job.StartedAt = params.StartedAt
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *exportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var result []models.ExportJob
	for _, job := range s.jobsByID {
		if job.FilePath == nil || *job.FilePath == "" {
			continue
		}
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			result = append(result, *job)
		}
	}
	return result, nil
}

type queueStub struct {
	enqueued []jobs.Job
}

func (s *queueStub) Enqueue(job jobs.Job) error {
	s.enqueued = append(s.enqueued, job)
	return nil
}

type exportObserverStub struct {
	formats  []string
	outcomes []string
}

func (s *exportObserverStub) ObserveExport(format, outcome string, duration time.Duration) {
	s.formats = append(s.formats, format)
	s.outcomes = append(s.outcomes, outcome)
}

func newExportFixture(t *testing.T, opts ...ExportServiceOption) (*ExportService, *exportRepoStub, *queueStub) {
	t.Helper()
	svc, repo, queue, _ := newExportFixtureWithStorage(t, opts...)
	return svc, repo, queue
}

func newExportFixtureWithStorage(t *testing.T, opts ...ExportServiceOption) (*ExportService, *exportRepoStub, *queueStub, *storage.LocalStorage) {
	t.Helper()
	repo := newExportRepoStub()
	films := &filmGetterStub{films: map[int64]*models.Film{
		filmID: {ID: filmID, Owner: ownerID},
	}}
	rating := 9
	text := "excellent"
	reviews := &reviewRepoStub{reviews: map[string]*models.Review{
		reviewKey(filmID, reviewerID): {
			FilmID: filmID, ReviewerID: reviewerID, Completed: true,
			Rating: &rating, Review: &text,
		},
	}}
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	queue := &queueStub{}
	return NewExportService(repo, films, reviews, store, signer, queue, nil, opts...), repo, queue, store
}

func TestExportCreateJobEnqueues(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), ownerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatCSV,
	})
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, job.ID, queue.enqueued[0].ID)
	require.Equal(t, JobKindReviewExport, queue.enqueued[0].Kind)
	require.Contains(t, repo.jobsByID, job.ID)
}

func TestExportCreateJobByNonOwnerIsForbidden(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.CreateJob(context.Background(), reviewerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatCSV,
	})
	requireAppError(t, err, http.StatusForbidden)
}

func TestExportProcessRendersAndDownloads(t *testing.T) {
	svc, repo, _ := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), ownerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatCSV,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID, Kind: JobKindReviewExport}))
	require.Equal(t, models.ExportStatusDone, repo.jobsByID[job.ID].Status)
	require.NotNil(t, repo.jobsByID[job.ID].FilePath)

	status, err := svc.GetStatus(context.Background(), job.ID, ownerID)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusDone, status.Status)
	require.NotEmpty(t, status.DownloadURL)

	token := status.DownloadURL[len("/api/exports/download?token="):]
	file, name, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	require.Equal(t, job.ID+".csv", name)

	info, err := os.Stat(file.Name())
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportProcessObservesJobDuration(t *testing.T) {
	observer := &exportObserverStub{}
	svc, _, _ := newExportFixture(t, WithExportObserver(observer))

	job, err := svc.CreateJob(context.Background(), ownerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatCSV,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID, Kind: JobKindReviewExport}))
	require.Equal(t, []string{"csv"}, observer.formats)
	require.Equal(t, []string{"done"}, observer.outcomes)
}

func TestExportCleanupRemovesArtifactOnce(t *testing.T) {
	svc, repo, _, store := newExportFixtureWithStorage(t)

	job, err := svc.CreateJob(context.Background(), ownerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatCSV,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), jobs.Job{ID: job.ID, Kind: JobKindReviewExport}))

	artifact, _, err := svc.Download(context.Background(), downloadToken(t, svc, job.ID))
	require.NoError(t, err)
	artifactPath := artifact.Name()
	require.NoError(t, artifact.Close())

	old := time.Now().Add(-48 * time.Hour)
	repo.jobsByID[job.ID].FinishedAt = &old

	svc.Cleanup(context.Background(), 24*time.Hour)
	require.Nil(t, repo.jobsByID[job.ID].FilePath)
	_, err = os.Stat(artifactPath)
	require.True(t, os.IsNotExist(err))

	// The cleared row must not resurface on the next tick.
	stale, err := repo.ListFinishedBefore(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, stale)
	svc.Cleanup(context.Background(), 24*time.Hour)
	require.Nil(t, repo.jobsByID[job.ID].FilePath)

	// Files with no matching job row are swept by age.
	_, err = store.Save("orphan.csv", []byte("a,b\n"))
	require.NoError(t, err)
	orphanPath := filepath.Join(filepath.Dir(artifactPath), "orphan.csv")
	require.NoError(t, os.Chtimes(orphanPath, old, old))
	svc.Cleanup(context.Background(), 24*time.Hour)
	_, err = os.Stat(orphanPath)
	require.True(t, os.IsNotExist(err))
}

func downloadToken(t *testing.T, svc *ExportService, jobID string) string {
	t.Helper()
	status, err := svc.GetStatus(context.Background(), jobID, ownerID)
	require.NoError(t, err)
	require.NotEmpty(t, status.DownloadURL)
	return status.DownloadURL[len("/api/exports/download?token="):]
}

func TestExportStatusHiddenFromOtherUsers(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), ownerID, dto.CreateExportRequest{
		FilmID: filmID, Format: models.ExportFormatPDF,
	})
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, reviewerID)
	requireAppError(t, err, http.StatusForbidden)
}

func TestExportDownloadRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, _, err := svc.Download(context.Background(), "deadbeef.123.ZmlsZQ.bad")
	requireAppError(t, err, http.StatusUnauthorized)
}
