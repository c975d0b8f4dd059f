package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type subscriptionService interface {
	Subscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) (*models.RequestSubscription, error)
	Unsubscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) error
	ListSubscribers(ctx context.Context, requestID int64, actor *models.JWTClaims) ([]models.RequestSubscription, error)
}

type preferenceService interface {
	Create(ctx context.Context, input dto.CreatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error)
	List(ctx context.Context, userID *int64, actor *models.JWTClaims) ([]models.NotificationPreference, error)
	SetEmailEnabled(ctx context.Context, id int64, input dto.UpdatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error)
	Delete(ctx context.Context, id int64, actor *models.JWTClaims) error
}

// SubscriptionHandler manages request subscriptions and notification preferences.
type SubscriptionHandler struct {
	subscriptions subscriptionService
	preferences   preferenceService
}

// NewSubscriptionHandler constructs the handler.
func NewSubscriptionHandler(subscriptions subscriptionService, preferences preferenceService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, preferences: preferences}
}

// Subscribe godoc
// @Summary Subscribe to status changes of a request
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.SubscriptionRequest false "Administrators may subscribe another user"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/subscriptions [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subscription payload"))
			return
		}
	}
	sub, err := h.subscriptions.Subscribe(c.Request.Context(), requestID, req.UserID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Unsubscribe godoc
// @Summary Remove a request subscription
// @Tags Subscriptions
// @Param id path int true "Request ID"
// @Param user_id query int false "Administrators may unsubscribe another user"
// @Success 204
// @Security BearerAuth
// @Router /requests/{id}/subscriptions [delete]
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := optionalUserID(c)
	if !ok {
		return
	}
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), requestID, userID, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubscribers godoc
// @Summary List subscribers of a request
// @Tags Subscriptions
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/subscriptions [get]
func (h *SubscriptionHandler) ListSubscribers(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	subs, err := h.subscriptions.ListSubscribers(c.Request.Context(), requestID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

// CreatePreference godoc
// @Summary Register a notification preference
// @Tags Preferences
// @Accept json
// @Produce json
// @Param payload body dto.CreatePreferenceRequest true "Preference"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /preferences [post]
func (h *SubscriptionHandler) CreatePreference(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid preference payload"))
		return
	}
	pref, err := h.preferences.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pref)
}

// ListPreferences godoc
// @Summary List notification preferences
// @Tags Preferences
// @Produce json
// @Param user_id query int false "Administrators may list another user's preferences"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /preferences [get]
func (h *SubscriptionHandler) ListPreferences(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	userID, ok := optionalUserID(c)
	if !ok {
		return
	}
	prefs, err := h.preferences.List(c.Request.Context(), userID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prefs, nil)
}

// UpdatePreference godoc
// @Summary Toggle email delivery for a preference
// @Tags Preferences
// @Accept json
// @Produce json
// @Param id path int true "Preference ID"
// @Param payload body dto.UpdatePreferenceRequest true "Email flag"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /preferences/{id} [patch]
func (h *SubscriptionHandler) UpdatePreference(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid preference payload"))
		return
	}
	pref, err := h.preferences.SetEmailEnabled(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// DeletePreference godoc
// @Summary Delete a notification preference
// @Tags Preferences
// @Param id path int true "Preference ID"
// @Success 204
// @Security BearerAuth
// @Router /preferences/{id} [delete]
func (h *SubscriptionHandler) DeletePreference(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.preferences.Delete(c.Request.Context(), id, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func optionalUserID(c *gin.Context) (*int64, bool) {
	if c.Query("user_id") == "" {
		return nil, true
	}
	v := int64(queryInt(c, "user_id", 0))
	if v <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user_id"))
		return nil, false
	}
	return &v, true
}
