package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error)
	Logout(ctx context.Context, req models.LogoutRequest, actor *models.JWTClaims) error
	Profile(ctx context.Context, actor *models.JWTClaims) (*models.Account, error)
}

// AuthHandler exposes sign-in and session endpoints.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// Login godoc
// @Summary Sign in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid login payload"))
		return
	}
	req.ClientInfo = clientInfo(c)

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid refresh payload"))
		return
	}
	req.ClientInfo = clientInfo(c)

	pair, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, pair, nil)
}

// Logout godoc
// @Summary Close the current session or all sessions
// @Tags Authentication
// @Accept json
// @Param payload body models.LogoutRequest true "Session to close"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid logout payload"))
		return
	}
	req.ClientInfo = clientInfo(c)

	if err := h.service.Logout(c.Request.Context(), req, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	account, err := h.service.Profile(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, account, nil)
}
