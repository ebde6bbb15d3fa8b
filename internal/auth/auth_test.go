package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanworks/desal_backend/config"
	"github.com/oceanworks/desal_backend/internal/models"
)

func newTestService() *Service {
	return NewService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
}

func TestService_PasswordHashing(t *testing.T) {
	s := newTestService()

	hash, err := s.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, s.CheckPassword(hash, "hunter2"))
	assert.False(t, s.CheckPassword(hash, "wrong"))
}

func TestService_TokenRoundtrip(t *testing.T) {
	s := newTestService()
	user := &models.User{ID: 7, Username: "alice", Role: models.RoleAdmin}

	token, err := s.IssueToken(user)
	require.NoError(t, err)

	claims, err := s.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestService_VerifyToken_RejectsTampered(t *testing.T) {
	s := newTestService()
	other := NewService(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})

	token, err := other.IssueToken(&models.User{ID: 1, Username: "mallory", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = s.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_VerifyToken_RejectsExpired(t *testing.T) {
	s := NewService(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: -time.Minute})

	token, err := s.IssueToken(&models.User{ID: 1, Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = s.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_Middleware(t *testing.T) {
	s := newTestService()

	var gotClaims *Claims
	handler := s.Authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Missing token
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token
	token, err := s.IssueToken(&models.User{ID: 3, Username: "bob", Role: models.RoleUser})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, 3, gotClaims.UserID)
}

func TestRequireAdmin_Middleware(t *testing.T) {
	s := newTestService()

	handler := s.Authenticator(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	userToken, err := s.IssueToken(&models.User{ID: 1, Username: "bob", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, err := s.IssueToken(&models.User{ID: 2, Username: "alice", Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
