package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type subscriptionServiceStub struct {
	userID *int64
	err    error
}

func (s *subscriptionServiceStub) Subscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) (*models.RequestSubscription, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return &models.RequestSubscription{ID: 1, RequestID: requestID, UserID: actor.UserID}, nil
}

func (s *subscriptionServiceStub) Unsubscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) error {
	s.userID = userID
	return s.err
}

func (s *subscriptionServiceStub) ListSubscribers(ctx context.Context, requestID int64, actor *models.JWTClaims) ([]models.RequestSubscription, error) {
	return []models.RequestSubscription{}, s.err
}

type preferenceServiceStub struct {
	created *dto.CreatePreferenceRequest
	enabled *bool
	err     error
}

func (s *preferenceServiceStub) Create(ctx context.Context, input dto.CreatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error) {
	s.created = &input
	if s.err != nil {
		return nil, s.err
	}
	return &models.NotificationPreference{ID: 1, UserID: actor.UserID, EntityType: input.EntityType}, nil
}

func (s *preferenceServiceStub) List(ctx context.Context, userID *int64, actor *models.JWTClaims) ([]models.NotificationPreference, error) {
	return []models.NotificationPreference{}, nil
}

func (s *preferenceServiceStub) SetEmailEnabled(ctx context.Context, id int64, input dto.UpdatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error) {
	s.enabled = &input.EmailNotificationEnabled
	return &models.NotificationPreference{ID: id, EmailNotificationEnabled: input.EmailNotificationEnabled}, nil
}

func (s *preferenceServiceStub) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	return s.err
}

func subscriptionRoutes(h *SubscriptionHandler) func(r *gin.RouterGroup) {
	return func(r *gin.RouterGroup) {
		r.POST("/requests/:id/subscriptions", h.Subscribe)
		r.GET("/requests/:id/subscriptions", h.ListSubscribers)
		r.DELETE("/requests/:id/subscriptions", h.Unsubscribe)
		r.POST("/preferences", h.CreatePreference)
		r.GET("/preferences", h.ListPreferences)
		r.PATCH("/preferences/:id", h.UpdatePreference)
		r.DELETE("/preferences/:id", h.DeletePreference)
	}
}

func TestSubscriptionHandler(t *testing.T) {
	subs := &subscriptionServiceStub{}
	r := testRouter(testAdmin, subscriptionRoutes(NewSubscriptionHandler(subs, &preferenceServiceStub{})))

	w := perform(r, http.MethodPost, "/api/v1/requests/4/subscriptions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, subs.userID)

	target := int64(9)
	w = perform(r, http.MethodPost, "/api/v1/requests/4/subscriptions", dto.SubscriptionRequest{UserID: &target})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, subs.userID)
	assert.Equal(t, target, *subs.userID)

	w = perform(r, http.MethodDelete, "/api/v1/requests/4/subscriptions?user_id=9", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, target, *subs.userID)

	w = perform(r, http.MethodDelete, "/api/v1/requests/4/subscriptions?user_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	subs.err = appErrors.ErrConflict
	w = perform(r, http.MethodPost, "/api/v1/requests/4/subscriptions", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPreferenceHandler(t *testing.T) {
	prefs := &preferenceServiceStub{}
	r := testRouter(testOwner, subscriptionRoutes(NewSubscriptionHandler(&subscriptionServiceStub{}, prefs)))

	w := perform(r, http.MethodPost, "/api/v1/preferences", dto.CreatePreferenceRequest{EntityType: models.EntityRequest, AttributeType: models.AttributeSubtheme, AttributeValue: "bycatch"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "bycatch", prefs.created.AttributeValue)

	w = perform(r, http.MethodPatch, "/api/v1/preferences/1", dto.UpdatePreferenceRequest{EmailNotificationEnabled: false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, prefs.enabled)
	assert.False(t, *prefs.enabled)

	w = perform(r, http.MethodGet, "/api/v1/preferences", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	prefs.err = appErrors.ErrNotFound
	w = perform(r, http.MethodDelete, "/api/v1/preferences/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
