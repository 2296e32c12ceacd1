package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/filmhub/filmhub-api/internal/dto"
	"github.com/filmhub/filmhub-api/internal/middleware"
	"github.com/filmhub/filmhub-api/internal/models"
)

type editRequestServiceMock struct {
	issued       *models.EditRequest
	issueErr     error
	approved     bool
	rejected     bool
	deadlineSeen time.Time
}

func (m *editRequestServiceMock) Issue(ctx context.Context, filmID, reviewerID int64, deadline time.Time) (*models.EditRequest, error) {
	m.deadlineSeen = deadline
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	if m.issued != nil {
		return m.issued, nil
	}
	return &models.EditRequest{ID: 1, FilmID: filmID, ReviewerID: reviewerID, Deadline: deadline, Status: models.EditRequestPending}, nil
}

func (m *editRequestServiceMock) ListForReview(ctx context.Context, filmID, reviewerID, userID int64) ([]models.EditRequest, error) {
	return []models.EditRequest{}, nil
}

func (m *editRequestServiceMock) Get(ctx context.Context, id, filmID, reviewerID, userID int64) (*models.EditRequest, error) {
	return &models.EditRequest{ID: id, FilmID: filmID, ReviewerID: reviewerID, Status: models.EditRequestPending}, nil
}

func (m *editRequestServiceMock) Approve(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	m.approved = true
	return nil
}

func (m *editRequestServiceMock) Reject(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	m.rejected = true
	return nil
}

func (m *editRequestServiceMock) Delete(ctx context.Context, id, filmID, reviewerID, userID int64) error {
	return nil
}

func (m *editRequestServiceMock) ReceivedPending(ctx context.Context, ownerID int64, page int) (*dto.EditRequestPage, error) {
	return &dto.EditRequestPage{EditRequests: []models.EditRequest{}}, nil
}

func (m *editRequestServiceMock) Sent(ctx context.Context, reviewerID int64, page int) (*dto.EditRequestPage, error) {
	return &dto.EditRequestPage{EditRequests: []models.EditRequest{}}, nil
}

func editRequestTestContext(t *testing.T, method, path string, body []byte, userID int64) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{
		{Key: "filmId", Value: "10"},
		{Key: "reviewerId", Value: "2"},
		{Key: "requestId", Value: "99"},
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID})
	return c, w
}

func TestIssueRejectsNonReviewerCaller(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	body, _ := json.Marshal(dto.IssueEditRequestRequest{Deadline: "2031-01-01T10:00Z"})
	c, w := editRequestTestContext(t, http.MethodPost, "/api/films/public/10/reviews/2/editRequests", body, 7)

	h.Issue(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestIssueValidDeadlinePasses(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	body, _ := json.Marshal(dto.IssueEditRequestRequest{Deadline: "2031-01-01T10:00Z"})
	c, w := editRequestTestContext(t, http.MethodPost, "/api/films/public/10/reviews/2/editRequests", body, 2)

	h.Issue(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 2031, mock.deadlineSeen.Year())
}

func TestIssueDeadlineValidation(t *testing.T) {
	cases := []struct {
		name     string
		deadline string
	}{
		{"seconds not allowed", "2031-01-01T10:00:00Z"},
		{"missing offset", "2031-01-01T10:00"},
		{"bad month", "2031-13-01T10:00Z"},
		{"past deadline", "2001-01-01T10:00Z"},
		{"garbage", "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewEditRequestHandler(&editRequestServiceMock{})
			body, _ := json.Marshal(dto.IssueEditRequestRequest{Deadline: tc.deadline})
			c, w := editRequestTestContext(t, http.MethodPost, "/api/films/public/10/reviews/2/editRequests", body, 2)

			h.Issue(c)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestIssueAcceptsNumericOffsetDeadline(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	body, _ := json.Marshal(dto.IssueEditRequestRequest{Deadline: "2031-01-01T10:00+02:00"})
	c, w := editRequestTestContext(t, http.MethodPost, "/api/films/public/10/reviews/2/editRequests", body, 2)

	h.Issue(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestDecideRequiresAcceptedField(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	c, w := editRequestTestContext(t, http.MethodPut, "/api/films/public/10/reviews/2/editRequests/99", []byte(`{}`), 1)

	h.Decide(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, mock.approved)
	require.False(t, mock.rejected)
}

func TestDecideRoutesAcceptedToApprove(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	c, w := editRequestTestContext(t, http.MethodPut, "/api/films/public/10/reviews/2/editRequests/99", []byte(`{"accepted":true}`), 1)

	h.Decide(c)
	// Status-only responses reach the recorder once the writer is flushed.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, mock.approved)

	c, w = editRequestTestContext(t, http.MethodPut, "/api/films/public/10/reviews/2/editRequests/99", []byte(`{"accepted":false}`), 1)
	h.Decide(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, mock.rejected)
}

func TestDecideThroughEngineAnswersNoContent(t *testing.T) {
	mock := &editRequestServiceMock{}
	h := NewEditRequestHandler(mock)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 1})
	})
	r.PUT("/api/films/public/:filmId/reviews/:reviewerId/editRequests/:requestId", h.Decide)

	req, err := http.NewRequest(http.MethodPut, "/api/films/public/10/reviews/2/editRequests/99", bytes.NewReader([]byte(`{"accepted":true}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, mock.approved)
}

func TestEditRequestPathValidation(t *testing.T) {
	h := NewEditRequestHandler(&editRequestServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/films/public/abc/reviews/2/editRequests/99", nil)
	c.Request = req
	c.Params = gin.Params{
		{Key: "filmId", Value: "abc"},
		{Key: "reviewerId", Value: "2"},
		{Key: "requestId", Value: "99"},
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 2})

	h.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditRequestMissingClaimsIsUnauthorized(t *testing.T) {
	h := NewEditRequestHandler(&editRequestServiceMock{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/films/public/reviews/editRequests/sent", nil)
	c.Request = req

	h.Sent(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
