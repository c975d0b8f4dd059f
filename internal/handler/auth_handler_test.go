package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type authServiceStub struct {
	login   models.LoginRequest
	logout  models.LogoutRequest
	account *models.Account
	err     error
}

func (s *authServiceStub) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.login = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}}, nil
}

func (s *authServiceStub) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (s *authServiceStub) Logout(ctx context.Context, req models.LogoutRequest, actor *models.JWTClaims) error {
	s.logout = req
	return s.err
}

func (s *authServiceStub) Profile(ctx context.Context, actor *models.JWTClaims) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func authRoutes(h *AuthHandler) func(r *gin.RouterGroup) {
	return func(r *gin.RouterGroup) {
		r.POST("/auth/login", h.Login)
		r.POST("/auth/refresh", h.Refresh)
		r.POST("/auth/logout", h.Logout)
		r.GET("/auth/me", h.Me)
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceStub{}
	r := testRouter(nil, authRoutes(NewAuthHandler(svc)))

	w := perform(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "focal@example.org", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Bearer", data["token_type"])
	assert.Equal(t, "focal@example.org", svc.login.Email)
	assert.NotEmpty(t, svc.login.IP)

	svc.err = appErrors.ErrInvalidCredentials
	w = perform(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "focal@example.org", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_CREDENTIALS", errBody["code"])
}

func TestAuthHandlerRefreshAndLogout(t *testing.T) {
	svc := &authServiceStub{}
	r := testRouter(testOwner, authRoutes(NewAuthHandler(svc)))

	w := perform(r, http.MethodPost, "/api/v1/auth/refresh", map[string]string{"refresh_token": "r"})
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/api/v1/auth/logout", map[string]interface{}{"all_sessions": true})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.logout.AllSessions)

	anon := testRouter(nil, authRoutes(NewAuthHandler(svc)))
	w = perform(anon, http.MethodPost, "/api/v1/auth/logout", map[string]string{"refresh_token": "r"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	svc := &authServiceStub{account: &models.Account{ID: 1, Email: "focal@example.org", Organization: "Ministry of Fisheries", Role: models.RoleUser}}
	r := testRouter(testOwner, authRoutes(NewAuthHandler(svc)))

	w := perform(r, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Ministry of Fisheries", data["organization"])
}
