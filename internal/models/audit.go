package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionTokenRefresh      = "TOKEN_REFRESH"
	AuditActionSessionReuse      = "SESSION_REUSE"
	AuditActionRequestCreate     = "REQUEST_CREATE"
	AuditActionRequestUpdate     = "REQUEST_UPDATE"
	AuditActionRequestDelete     = "REQUEST_DELETE"
	AuditActionRequestTransition = "REQUEST_STATUS_CHANGE"
	AuditActionOfferCreate       = "OFFER_CREATE"
	AuditActionOfferAccept       = "OFFER_ACCEPT"
	AuditActionOfferReject       = "OFFER_REJECT"
	AuditActionOfferStatus       = "OFFER_STATUS_CHANGE"
	AuditActionDocumentUpload    = "DOCUMENT_UPLOAD"
	AuditActionDocumentDelete    = "DOCUMENT_DELETE"
	AuditActionOpportunityCreate = "OPPORTUNITY_CREATE"
	AuditActionOpportunityStatus = "OPPORTUNITY_STATUS_CHANGE"
	AuditActionRequestExport     = "REQUEST_EXPORT"
	AuditActionDocumentDownload  = "DOCUMENT_DOWNLOAD"
	AuditActionSubscription      = "SUBSCRIPTION_CHANGE"
	AuditActionPreference        = "PREFERENCE_CHANGE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
