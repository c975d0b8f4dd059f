package dto

import "github.com/noah-isme/capdev-portal-api/internal/models"

// CreatePreferenceRequest registers interest in an attribute value.
type CreatePreferenceRequest struct {
	UserID                   *int64               `json:"user_id,omitempty"`
	EntityType               models.EntityType    `json:"entity_type" validate:"required"`
	AttributeType            models.AttributeType `json:"attribute_type" validate:"required"`
	AttributeValue           string               `json:"attribute_value" validate:"required,max=255"`
	EmailNotificationEnabled *bool                `json:"email_notification_enabled,omitempty"`
}

// UpdatePreferenceRequest toggles email delivery for an existing preference.
type UpdatePreferenceRequest struct {
	EmailNotificationEnabled bool `json:"email_notification_enabled"`
}

// SubscriptionRequest subscribes a user to a request; admins may act for another user.
type SubscriptionRequest struct {
	UserID *int64 `json:"user_id,omitempty"`
}
