package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

type editRequestRepoStub struct {
	requests map[int64]*models.EditRequest
	nextID   int64

	receivedTotal int
	sentTotal     int
	received      []models.EditRequest
	sent          []models.EditRequest
	sweeps        int
	sweptCount    int64
}

func newEditRequestRepoStub() *editRequestRepoStub {
	return &editRequestRepoStub{requests: make(map[int64]*models.EditRequest), nextID: 1}
}

func (s *editRequestRepoStub) Create(ctx context.Context, req *models.EditRequest) error {
	req.ID = s.nextID
	s.nextID++
	copy := *req
	s.requests[req.ID] = &copy
	return nil
}

func (s *editRequestRepoStub) GetByID(ctx context.Context, id int64) (*models.EditRequest, error) {
	if req, ok := s.requests[id]; ok {
		copy := *req
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *editRequestRepoStub) ListByReview(ctx context.Context, filmID, reviewerID int64) ([]models.EditRequest, error) {
	var result []models.EditRequest
	for _, req := range s.requests {
		if req.FilmID == filmID && req.ReviewerID == reviewerID {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (s *editRequestRepoStub) HasLivePending(ctx context.Context, filmID, reviewerID int64, now time.Time) (bool, error) {
	for _, req := range s.requests {
		if req.FilmID == filmID && req.ReviewerID == reviewerID && req.Live(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *editRequestRepoStub) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	s.sweeps++
	var swept int64
	for _, req := range s.requests {
		if req.Status == models.EditRequestPending && req.Deadline.Before(now) {
			req.Status = models.EditRequestRejected
			swept++
		}
	}
	s.sweptCount += swept
	return swept, nil
}

func (s *editRequestRepoStub) Reject(ctx context.Context, id int64) error {
	req, ok := s.requests[id]
	if !ok || req.Status != models.EditRequestPending {
		return sql.ErrNoRows
	}
	req.Status = models.EditRequestRejected
	return nil
}

func (s *editRequestRepoStub) Approve(ctx context.Context, id, filmID, reviewerID int64, now time.Time) error {
	req, ok := s.requests[id]
	if !ok || req.Status != models.EditRequestPending || !req.Deadline.After(now) {
		return sql.ErrNoRows
	}
	req.Status = models.EditRequestApproved
	return nil
}

func (s *editRequestRepoStub) Delete(ctx context.Context, id int64) error {
	if _, ok := s.requests[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.requests, id)
	return nil
}

func (s *editRequestRepoStub) ListReceivedPending(ctx context.Context, ownerID int64, limit, offset int) ([]models.EditRequest, error) {
	end := offset + limit
	if end > len(s.received) {
		end = len(s.received)
	}
	if offset >= len(s.received) {
		return nil, nil
	}
	return s.received[offset:end], nil
}

func (s *editRequestRepoStub) CountReceivedPending(ctx context.Context, ownerID int64) (int, error) {
	return s.receivedTotal, nil
}

func (s *editRequestRepoStub) ListSent(ctx context.Context, reviewerID int64, limit, offset int) ([]models.EditRequest, error) {
	end := offset + limit
	if end > len(s.sent) {
		end = len(s.sent)
	}
	if offset >= len(s.sent) {
		return nil, nil
	}
	return s.sent[offset:end], nil
}

func (s *editRequestRepoStub) CountSent(ctx context.Context, reviewerID int64) (int, error) {
	return s.sentTotal, nil
}

type reviewGetterStub struct {
	reviews map[string]*models.Review
}

func reviewKey(filmID, reviewerID int64) string {
	return fmt.Sprintf("%d/%d", filmID, reviewerID)
}

func (s *reviewGetterStub) Get(ctx context.Context, filmID, reviewerID int64) (*models.Review, error) {
	if review, ok := s.reviews[reviewKey(filmID, reviewerID)]; ok {
		copy := *review
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type filmGetterStub struct {
	films map[int64]*models.Film
}

func (s *filmGetterStub) GetByID(ctx context.Context, id int64) (*models.Film, error) {
	if film, ok := s.films[id]; ok {
		copy := *film
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

const (
	ownerID    = int64(1)
	reviewerID = int64(2)
	otherID    = int64(3)
	filmID     = int64(10)
)

type editRequestFixture struct {
	svc     *EditRequestService
	repo    *editRequestRepoStub
	reviews *reviewGetterStub
	films   *filmGetterStub
	audit   *auditStub
	now     time.Time
}

func newEditRequestFixture(t *testing.T) *editRequestFixture {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newEditRequestRepoStub()
	reviews := &reviewGetterStub{reviews: map[string]*models.Review{
		reviewKey(filmID, reviewerID): {FilmID: filmID, ReviewerID: reviewerID, Completed: true},
	}}
	films := &filmGetterStub{films: map[int64]*models.Film{
		filmID: {ID: filmID, Owner: ownerID},
	}}
	audit := &auditStub{}
	svc := NewEditRequestService(repo, reviews, films, audit, nil, 10,
		WithClock(func() time.Time { return now }))
	return &editRequestFixture{svc: svc, repo: repo, reviews: reviews, films: films, audit: audit, now: now}
}

func requireAppError(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, status, appErr.Status)
}

func TestIssueCreatesPendingRequest(t *testing.T) {
	f := newEditRequestFixture(t)

	request, err := f.svc.Issue(context.Background(), filmID, reviewerID, f.now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, models.EditRequestPending, request.Status)
	require.Equal(t, fmt.Sprintf("/api/films/public/%d/reviews/%d/editRequests/%d", filmID, reviewerID, request.ID), request.Self)
	require.Len(t, f.audit.logs, 1)
	require.Equal(t, models.AuditActionEditRequestIssue, f.audit.logs[0].Action)
}

func TestIssueUnknownReviewIsNotFound(t *testing.T) {
	f := newEditRequestFixture(t)

	_, err := f.svc.Issue(context.Background(), filmID, otherID, f.now.Add(time.Hour))
	requireAppError(t, err, http.StatusNotFound)
}

func TestIssueIncompleteReviewIsConflict(t *testing.T) {
	f := newEditRequestFixture(t)
	f.reviews.reviews[reviewKey(filmID, reviewerID)].Completed = false

	_, err := f.svc.Issue(context.Background(), filmID, reviewerID, f.now.Add(time.Hour))
	requireAppError(t, err, http.StatusConflict)
}

func TestIssueDuplicateLivePendingIsConflict(t *testing.T) {
	f := newEditRequestFixture(t)

	_, err := f.svc.Issue(context.Background(), filmID, reviewerID, f.now.Add(48*time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Issue(context.Background(), filmID, reviewerID, f.now.Add(72*time.Hour))
	requireAppError(t, err, http.StatusConflict)
}

func TestIssueAllowedAfterPreviousExpired(t *testing.T) {
	f := newEditRequestFixture(t)

	// A pending request whose deadline already passed does not block a new one.
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(-time.Hour), Status: models.EditRequestPending,
	}

	_, err := f.svc.Issue(context.Background(), filmID, reviewerID, f.now.Add(48*time.Hour))
	require.NoError(t, err)
}

func TestGetLazyExpiryPersistsRejection(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(-time.Hour), Status: models.EditRequestPending,
	}

	request, err := f.svc.Get(context.Background(), 99, filmID, reviewerID, reviewerID)
	require.NoError(t, err)
	require.Equal(t, models.EditRequestRejected, request.Status)
	require.Equal(t, models.EditRequestRejected, f.repo.requests[99].Status)
}

func TestGetPathMismatchIsBadRequest(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	_, err := f.svc.Get(context.Background(), 99, filmID, otherID, reviewerID)
	requireAppError(t, err, http.StatusBadRequest)
}

func TestGetThirdPartyIsForbidden(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	_, err := f.svc.Get(context.Background(), 99, filmID, reviewerID, otherID)
	requireAppError(t, err, http.StatusForbidden)

	// The owner is allowed.
	_, err = f.svc.Get(context.Background(), 99, filmID, reviewerID, ownerID)
	require.NoError(t, err)
}

func TestApproveTransitionsAndAudits(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	require.NoError(t, f.svc.Approve(context.Background(), 99, filmID, reviewerID, ownerID))
	require.Equal(t, models.EditRequestApproved, f.repo.requests[99].Status)
	require.Len(t, f.audit.logs, 1)
	require.Equal(t, models.AuditActionEditRequestApprove, f.audit.logs[0].Action)
}

func TestApproveByNonOwnerIsForbidden(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	err := f.svc.Approve(context.Background(), 99, filmID, reviewerID, reviewerID)
	requireAppError(t, err, http.StatusForbidden)
}

func TestDecideOnSettledRequestIsConflict(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestRejected,
	}

	requireAppError(t, f.svc.Approve(context.Background(), 99, filmID, reviewerID, ownerID), http.StatusConflict)
	requireAppError(t, f.svc.Reject(context.Background(), 99, filmID, reviewerID, ownerID), http.StatusConflict)
}

func TestDecideOnExpiredRequestIsConflict(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(-time.Minute), Status: models.EditRequestPending,
	}

	requireAppError(t, f.svc.Approve(context.Background(), 99, filmID, reviewerID, ownerID), http.StatusConflict)
}

func TestRejectTransitions(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	require.NoError(t, f.svc.Reject(context.Background(), 99, filmID, reviewerID, ownerID))
	require.Equal(t, models.EditRequestRejected, f.repo.requests[99].Status)
}

func TestDeleteLivePendingByReviewer(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	require.NoError(t, f.svc.Delete(context.Background(), 99, filmID, reviewerID, reviewerID))
	require.NotContains(t, f.repo.requests, int64(99))
}

func TestDeleteByNonReviewerIsForbidden(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}

	requireAppError(t, f.svc.Delete(context.Background(), 99, filmID, reviewerID, ownerID), http.StatusForbidden)
}

// Non-live deletes answer 400 while non-live decisions answer 409. The
// asymmetry is load-bearing for API clients, so it is pinned here.
func TestDeleteOnSettledOrExpiredIsBadRequest(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestApproved,
	}
	requireAppError(t, f.svc.Delete(context.Background(), 99, filmID, reviewerID, reviewerID), http.StatusBadRequest)

	f.repo.requests[98] = &models.EditRequest{
		ID: 98, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(-time.Hour), Status: models.EditRequestPending,
	}
	requireAppError(t, f.svc.Delete(context.Background(), 98, filmID, reviewerID, reviewerID), http.StatusBadRequest)
}

func TestListForReviewAccessAndEmpty(t *testing.T) {
	f := newEditRequestFixture(t)

	_, err := f.svc.ListForReview(context.Background(), filmID, reviewerID, otherID)
	requireAppError(t, err, http.StatusForbidden)

	_, err = f.svc.ListForReview(context.Background(), filmID, reviewerID, reviewerID)
	requireAppError(t, err, http.StatusNotFound)

	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(time.Hour), Status: models.EditRequestPending,
	}
	list, err := f.svc.ListForReview(context.Background(), filmID, reviewerID, ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestListForReviewSweepsExpiredFirst(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.requests[99] = &models.EditRequest{
		ID: 99, FilmID: filmID, ReviewerID: reviewerID,
		Deadline: f.now.Add(-time.Hour), Status: models.EditRequestPending,
	}

	list, err := f.svc.ListForReview(context.Background(), filmID, reviewerID, reviewerID)
	require.NoError(t, err)
	require.Equal(t, models.EditRequestRejected, list[0].Status)
	require.Equal(t, 1, f.repo.sweeps)
}

func TestReceivedPendingPagination(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.receivedTotal = 25
	for i := 0; i < 25; i++ {
		f.repo.received = append(f.repo.received, models.EditRequest{
			ID: int64(i + 1), FilmID: filmID, ReviewerID: reviewerID,
			Deadline: f.now.Add(time.Duration(i) * time.Hour), Status: models.EditRequestPending,
		})
	}

	page, err := f.svc.ReceivedPending(context.Background(), ownerID, 1)
	require.NoError(t, err)
	require.Len(t, page.EditRequests, 10)
	require.Equal(t, 1, page.Pagination.CurrentPage)
	require.Equal(t, 25, page.Pagination.TotalItems)
	require.Equal(t, 3, page.Pagination.TotalPages)
	require.Equal(t, "/api/films/public/reviews/editRequests/received?pageNo=2", page.Pagination.Next)

	last, err := f.svc.ReceivedPending(context.Background(), ownerID, 3)
	require.NoError(t, err)
	require.Len(t, last.EditRequests, 5)
	require.Empty(t, last.Pagination.Next)
}

func TestReceivedPendingPageBeyondRangeIsNotFound(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.receivedTotal = 5
	f.repo.received = make([]models.EditRequest, 5)

	_, err := f.svc.ReceivedPending(context.Background(), ownerID, 2)
	requireAppError(t, err, http.StatusNotFound)
}

func TestReceivedPendingEmptyIsPageZero(t *testing.T) {
	f := newEditRequestFixture(t)

	page, err := f.svc.ReceivedPending(context.Background(), ownerID, 1)
	require.NoError(t, err)
	require.Empty(t, page.EditRequests)
	require.Equal(t, 0, page.Pagination.CurrentPage)
	require.Equal(t, 0, page.Pagination.TotalPages)
}

func TestSentPagination(t *testing.T) {
	f := newEditRequestFixture(t)
	f.repo.sentTotal = 11
	for i := 0; i < 11; i++ {
		f.repo.sent = append(f.repo.sent, models.EditRequest{
			ID: int64(i + 1), FilmID: filmID, ReviewerID: reviewerID,
			Deadline: f.now.Add(time.Duration(-i) * time.Hour), Status: models.EditRequestRejected,
		})
	}

	page, err := f.svc.Sent(context.Background(), reviewerID, 2)
	require.NoError(t, err)
	require.Len(t, page.EditRequests, 1)
	require.Equal(t, 2, page.Pagination.CurrentPage)
	require.Empty(t, page.Pagination.Next)
}

func TestPaginatedListsRunTheSweep(t *testing.T) {
	f := newEditRequestFixture(t)

	_, err := f.svc.ReceivedPending(context.Background(), ownerID, 1)
	require.NoError(t, err)
	_, err = f.svc.Sent(context.Background(), reviewerID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, f.repo.sweeps)
}
