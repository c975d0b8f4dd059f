package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type preferenceStore interface {
	Create(ctx context.Context, pref *models.NotificationPreference) error
	GetByID(ctx context.Context, id int64) (*models.NotificationPreference, error)
	ListByUser(ctx context.Context, userID int64) ([]models.NotificationPreference, error)
	SetEmailEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

// PreferenceService manages the attribute values users want to be notified about.
type PreferenceService struct {
	prefs     preferenceStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPreferenceService constructs the service.
func NewPreferenceService(prefs preferenceStore, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PreferenceService{prefs: prefs, validator: validate, logger: logger}
}

// Create stores a preference. Email delivery defaults to enabled.
func (s *PreferenceService) Create(ctx context.Context, input dto.CreatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error) {
	target, err := actingFor(actor, input.UserID)
	if err != nil {
		return nil, err
	}
	input.AttributeValue = strings.TrimSpace(input.AttributeValue)
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Validation(err, "invalid preference payload")
	}
	if !input.EntityType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity_type must be request or opportunity")
	}
	if !input.AttributeType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported attribute_type")
	}
	enabled := true
	if input.EmailNotificationEnabled != nil {
		enabled = *input.EmailNotificationEnabled
	}

	pref := &models.NotificationPreference{
		UserID:                   target,
		EntityType:               input.EntityType,
		AttributeType:            input.AttributeType,
		AttributeValue:           input.AttributeValue,
		EmailNotificationEnabled: enabled,
	}
	if err := s.prefs.Create(ctx, pref); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "preference already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create preference")
	}
	return pref, nil
}

// List returns the preferences of actor, or of userID for administrators.
func (s *PreferenceService) List(ctx context.Context, userID *int64, actor *models.JWTClaims) ([]models.NotificationPreference, error) {
	target, err := actingFor(actor, userID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.prefs.ListByUser(ctx, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preferences")
	}
	return prefs, nil
}

// SetEmailEnabled toggles email delivery of a preference.
func (s *PreferenceService) SetEmailEnabled(ctx context.Context, id int64, input dto.UpdatePreferenceRequest, actor *models.JWTClaims) (*models.NotificationPreference, error) {
	pref, err := s.owned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := s.prefs.SetEmailEnabled(ctx, id, input.EmailNotificationEnabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "preference not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update preference")
	}
	pref.EmailNotificationEnabled = input.EmailNotificationEnabled
	return pref, nil
}

// Delete removes a preference.
func (s *PreferenceService) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return err
	}
	if err := s.prefs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "preference not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete preference")
	}
	return nil
}

func (s *PreferenceService) owned(ctx context.Context, id int64, actor *models.JWTClaims) (*models.NotificationPreference, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	pref, err := s.prefs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "preference not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preference")
	}
	if pref.UserID != actor.UserID && !actor.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "preference belongs to another user")
	}
	return pref, nil
}
