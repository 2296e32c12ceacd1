package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/models"
	appErrors "github.com/filmhub/filmhub-api/pkg/errors"
)

type editRequestStore interface {
	Create(ctx context.Context, req *models.EditRequest) error
	GetByID(ctx context.Context, id int64) (*models.EditRequest, error)
	ListByReview(ctx context.Context, filmID, reviewerID int64) ([]models.EditRequest, error)
	HasLivePending(ctx context.Context, filmID, reviewerID int64, now time.Time) (bool, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	Reject(ctx context.Context, id int64) error
	Approve(ctx context.Context, id, filmID, reviewerID int64, now time.Time) error
	Delete(ctx context.Context, id int64) error
	ListReceivedPending(ctx context.Context, ownerID int64, limit, offset int) ([]models.EditRequest, error)
	CountReceivedPending(ctx context.Context, ownerID int64) (int, error)
	ListSent(ctx context.Context, reviewerID int64, limit, offset int) ([]models.EditRequest, error)
	CountSent(ctx context.Context, reviewerID int64) (int, error)
}

type reviewGetter interface {
	Get(ctx context.Context, filmID, reviewerID int64) (*models.Review, error)
}

type filmGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Film, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sweepObserver interface {
	ObserveSweep(expired int64)
}

const (
	receivedPath = "/api/films/public/reviews/editRequests/received"
	sentPath     = "/api/films/public/reviews/editRequests/sent"
)

// EditRequestService enforces the edit-request lifecycle: state transitions,
// authorization gates, lazy deadline expiry, and pagination.
type EditRequestService struct {
	repo     editRequestStore
	reviews  reviewGetter
	films    filmGetter
	audit    auditLogger
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
	metrics  sweepObserver
}

// EditRequestServiceOption configures the service.
type EditRequestServiceOption func(*EditRequestService)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) EditRequestServiceOption {
	return func(s *EditRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepObserver wires expiry sweep metrics.
func WithSweepObserver(observer sweepObserver) EditRequestServiceOption {
	return func(s *EditRequestService) {
		s.metrics = observer
	}
}

// NewEditRequestService constructs the service.
func NewEditRequestService(repo editRequestStore, reviews reviewGetter, films filmGetter, audit auditLogger, logger *zap.Logger, pageSize int, opts ...EditRequestServiceOption) *EditRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	svc := &EditRequestService{
		repo:     repo,
		reviews:  reviews,
		films:    films,
		audit:    audit,
		logger:   logger,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Issue creates a Pending edit request against a completed review. The
// precondition order is part of the contract: missing review, incomplete
// review, then the at-most-one-live-request invariant.
func (s *EditRequestService) Issue(ctx context.Context, filmID, reviewerID int64, deadline time.Time) (*models.EditRequest, error) {
	review, err := s.reviews.Get(ctx, filmID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the review does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review")
	}
	if !review.Completed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the review is not completed")
	}

	live, err := s.repo.HasLivePending(ctx, filmID, reviewerID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending edit requests")
	}
	if live {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an edit request is already pending for this review")
	}

	request := &models.EditRequest{
		FilmID:     filmID,
		ReviewerID: reviewerID,
		Deadline:   deadline,
		Status:     models.EditRequestPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create edit request")
	}
	s.emitAudit(ctx, reviewerID, models.AuditActionEditRequestIssue, request)
	request.ApplyLinks()
	return request, nil
}

// ListForReview returns every edit request for a (film, reviewer) pair,
// newest deadline first. Only the reviewer and the film owner may call it.
func (s *EditRequestService) ListForReview(ctx context.Context, filmID, reviewerID, userID int64) ([]models.EditRequest, error) {
	s.Refresh(ctx)

	if userID != reviewerID {
		film, err := s.films.GetByID(ctx, filmID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
		}
		if film.Owner != userID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the reviewer or the film owner may list edit requests")
		}
	}

	requests, err := s.repo.ListByReview(ctx, filmID, reviewerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edit requests")
	}
	if len(requests) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no edit requests for this review")
	}
	for i := range requests {
		requests[i].ApplyLinks()
	}
	return requests, nil
}

// Get returns a single edit request, applying the lazy single-record expiry
// check: a Pending request past its deadline is reported (and persisted) as
// Rejected.
func (s *EditRequestService) Get(ctx context.Context, id, filmID, reviewerID, userID int64) (*models.EditRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the edit request does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit request")
	}
	if request.FilmID != filmID || request.ReviewerID != reviewerID {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "the edit request does not belong to this review")
	}
	if userID != request.ReviewerID {
		film, err := s.films.GetByID(ctx, filmID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "only the reviewer or the film owner may read an edit request")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
		}
		if film.Owner != userID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the reviewer or the film owner may read an edit request")
		}
	}

	if request.Status == models.EditRequestPending && request.Expired(s.now()) {
		if err := s.repo.Reject(ctx, request.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to persist lazy expiry", zap.Int64("edit_request_id", request.ID), zap.Error(err))
		}
		request.Status = models.EditRequestRejected
		s.emitAudit(ctx, 0, models.AuditActionEditRequestExpire, request)
	}
	request.ApplyLinks()
	return request, nil
}

// Approve transitions a live Pending request to Approved and reopens the
// target review. The precondition chain is evaluated in order; the first
// failing condition wins.
func (s *EditRequestService) Approve(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	request, err := s.decidable(ctx, id, filmID, reviewerID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Approve(ctx, id, filmID, reviewerID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "the edit request is no longer valid")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve edit request")
	}
	request.Status = models.EditRequestApproved
	s.emitAudit(ctx, userID, models.AuditActionEditRequestApprove, request)
	return nil
}

// Reject transitions a live Pending request to Rejected.
func (s *EditRequestService) Reject(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	request, err := s.decidable(ctx, id, filmID, reviewerID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Reject(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "the edit request is no longer valid")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject edit request")
	}
	request.Status = models.EditRequestRejected
	s.emitAudit(ctx, userID, models.AuditActionEditRequestReject, request)
	return nil
}

// decidable runs the shared approve/reject precondition chain: film exists,
// caller owns it, request exists, request matches the path context, request
// is still live.
func (s *EditRequestService) decidable(ctx context.Context, id, filmID, reviewerID, userID int64) (*models.EditRequest, error) {
	film, err := s.films.GetByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the film does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load film")
	}
	if film.Owner != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the film owner may decide an edit request")
	}

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "the edit request does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit request")
	}
	if request.FilmID != filmID || request.ReviewerID != reviewerID {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "the edit request does not belong to this review")
	}
	if !request.Live(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "the edit request is no longer valid")
	}
	return request, nil
}

// Delete removes a live Pending request. Only the reviewer named on the
// request may delete it; a request that has left Pending or expired yields
// BadRequest here, not Conflict.
func (s *EditRequestService) Delete(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "the edit request does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit request")
	}
	if request.FilmID != filmID || request.ReviewerID != reviewerID {
		return appErrors.Clone(appErrors.ErrBadRequest, "the edit request does not belong to this review")
	}
	if request.ReviewerID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the reviewer may delete an edit request")
	}
	if !request.Live(s.now()) {
		return appErrors.Clone(appErrors.ErrBadRequest, "the edit request is expired or not pending")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "the edit request does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete edit request")
	}
	s.emitAudit(ctx, userID, models.AuditActionEditRequestDelete, request)
	return nil
}

// Refresh sweeps expired Pending requests to Rejected. Best-effort
// maintenance: failures are logged, never surfaced to the caller.
func (s *EditRequestService) Refresh(ctx context.Context) {
	expired, err := s.repo.ExpirePending(ctx, s.now())
	if err != nil {
		s.logger.Warn("edit request expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expired pending edit requests", zap.Int64("count", expired))
	}
	if s.metrics != nil {
		s.metrics.ObserveSweep(expired)
	}
}

// ReceivedPending pages through Pending requests targeting films owned by the
// caller, closest deadline first.
func (s *EditRequestService) ReceivedPending(ctx context.Context, ownerID int64, page int) (*dto.EditRequestPage, error) {
	s.Refresh(ctx)
	return s.paginate(ctx, page, receivedPath,
		func() (int, error) { return s.repo.CountReceivedPending(ctx, ownerID) },
		func(limit, offset int) ([]models.EditRequest, error) {
			return s.repo.ListReceivedPending(ctx, ownerID, limit, offset)
		},
	)
}

// Sent pages through every request issued by the caller, newest deadline
// first.
func (s *EditRequestService) Sent(ctx context.Context, reviewerID int64, page int) (*dto.EditRequestPage, error) {
	s.Refresh(ctx)
	return s.paginate(ctx, page, sentPath,
		func() (int, error) { return s.repo.CountSent(ctx, reviewerID) },
		func(limit, offset int) ([]models.EditRequest, error) {
			return s.repo.ListSent(ctx, reviewerID, limit, offset)
		},
	)
}

// paginate runs the two round-trip count+page protocol. An out-of-range page
// is NotFound; zero results is a legitimate empty page reported as page 0.
func (s *EditRequestService) paginate(ctx context.Context, page int, basePath string, count func() (int, error), list func(limit, offset int) ([]models.EditRequest, error)) (*dto.EditRequestPage, error) {
	if page <= 0 {
		page = 1
	}
	total, err := count()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count edit requests")
	}

	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		return &dto.EditRequestPage{
			EditRequests: []models.EditRequest{},
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

	requests, err := list(s.pageSize, s.pageSize*(page-1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list edit requests")
	}
	for i := range requests {
		requests[i].ApplyLinks()
	}

	pagination := models.Pagination{
		CurrentPage: page,
		PageSize:    s.pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
	}
	if page < totalPages {
		pagination.Next = fmt.Sprintf("%s?pageNo=%d", basePath, page+1)
	}
	return &dto.EditRequestPage{EditRequests: requests, Pagination: pagination}, nil
}

func (s *EditRequestService) emitAudit(ctx context.Context, userID int64, action string, request *models.EditRequest) {
	if s.audit == nil || request == nil {
		return
	}
	resourceID := fmt.Sprintf("%d", request.ID)
	log := &models.AuditLog{
		Action:     action,
		Resource:   "edit_request",
		ResourceID: &resourceID,
		NewValues:  []byte(fmt.Sprintf(`{"status":"%s"}`, request.Status)),
		IPAddress:  "system",
		UserAgent:  "edit-request-service",
	}
	if userID != 0 {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
