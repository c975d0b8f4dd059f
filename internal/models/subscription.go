package models

import "time"

// EntityType names the kind of entity a preference listens to.
type EntityType string

const (
	EntityRequest     EntityType = "request"
	EntityOpportunity EntityType = "opportunity"
)

// Valid reports whether e is a supported entity type.
func (e EntityType) Valid() bool {
	return e == EntityRequest || e == EntityOpportunity
}

// AttributeType names a categorical attribute preferences can match on.
type AttributeType string

const (
	AttributeSubtheme        AttributeType = "subtheme"
	AttributeSupportType     AttributeType = "support_type"
	AttributeTargetAudience  AttributeType = "target_audience"
	AttributeDeliveryCountry AttributeType = "delivery_country"
	AttributeDeliveryFormat  AttributeType = "delivery_format"
	AttributeRelatedActivity AttributeType = "related_activity"
	AttributeOpportunityType AttributeType = "opportunity_type"
	AttributeLocation        AttributeType = "implementation_location"
)

var knownAttributeTypes = map[AttributeType]struct{}{
	AttributeSubtheme:        {},
	AttributeSupportType:     {},
	AttributeTargetAudience:  {},
	AttributeDeliveryCountry: {},
	AttributeDeliveryFormat:  {},
	AttributeRelatedActivity: {},
	AttributeOpportunityType: {},
	AttributeLocation:        {},
}

// Valid reports whether a is a supported attribute type.
func (a AttributeType) Valid() bool {
	_, ok := knownAttributeTypes[a]
	return ok
}

// AttributeValue is one (attribute type, value) pair extracted from an entity.
type AttributeValue struct {
	Type  AttributeType `json:"attribute_type"`
	Value string        `json:"value"`
}

// RequestSubscription links a user to a request whose changes they follow.
type RequestSubscription struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	RequestID int64     `db:"request_id" json:"request_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationPreference declares interest in entities carrying an attribute value.
type NotificationPreference struct {
	ID                       int64         `db:"id" json:"id"`
	UserID                   int64         `db:"user_id" json:"user_id"`
	EntityType               EntityType    `db:"entity_type" json:"entity_type"`
	AttributeType            AttributeType `db:"attribute_type" json:"attribute_type"`
	AttributeValue           string        `db:"attribute_value" json:"attribute_value"`
	EmailNotificationEnabled bool          `db:"email_notification_enabled" json:"email_notification_enabled"`
	CreatedAt                time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time     `db:"updated_at" json:"updated_at"`
}
