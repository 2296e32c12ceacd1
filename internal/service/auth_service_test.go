package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/filmhub/filmhub-api/internal/models"
	"github.com/filmhub/filmhub-api/pkg/config"
)

type userRepoStub struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
}

func newUserRepoStub(t *testing.T) *userRepoStub {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &userRepoStub{
		users: map[string]*models.User{
			"ana@example.com": {ID: 1, Email: "ana@example.com", Name: "Ana", PasswordHash: string(hash)},
		},
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copy := *token
	s.refreshTokens[token.Token] = &copy
	return nil
}

func (s *userRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.refreshTokens[token]; ok {
		copy := *stored
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func newAuthFixture(t *testing.T) (*AuthService, *userRepoStub, *auditStub) {
	t.Helper()
	repo := newUserRepoStub(t)
	audit := &auditStub{}
	cfg := config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}
	return NewAuthService(repo, audit, cfg, nil), repo, audit
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, _, audit := newAuthFixture(t)

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "s3cret",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, int64(3600), result.ExpiresIn)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(1), claims.UserID)
	require.Equal(t, "ana@example.com", claims.Email)

	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionLogin, audit.logs[0].Action)
}

func TestLoginStampsRefreshTokenCreation(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "s3cret",
	})
	require.NoError(t, err)

	stored, ok := repo.refreshTokens[result.RefreshToken]
	require.True(t, ok)
	require.False(t, stored.CreatedAt.IsZero())
	require.True(t, stored.ExpiresAt.After(stored.CreatedAt))
}

func TestLoginWrongCredentialsIsUnauthorized(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "wrong",
	})
	requireAppError(t, err, http.StatusUnauthorized)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email: "ghost@example.com", Password: "s3cret",
	})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ana@example.com", Password: "s3cret",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	require.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	// A revoked token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-jwt")
	requireAppError(t, err, http.StatusUnauthorized)
}
