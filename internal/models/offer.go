package models

import "time"

// OfferStatus is the activity flag of an offer.
type OfferStatus string

const (
	OfferActive   OfferStatus = "ACTIVE"
	OfferInactive OfferStatus = "INACTIVE"
)

// Valid reports whether s is a known offer status.
func (s OfferStatus) Valid() bool {
	return s == OfferActive || s == OfferInactive
}

// Offer is a partner's proposal to satisfy a request.
type Offer struct {
	ID               int64       `db:"id" json:"id"`
	RequestID        int64       `db:"request_id" json:"request_id"`
	MatchedPartnerID int64       `db:"matched_partner_id" json:"matched_partner_id"`
	Description      string      `db:"description" json:"description"`
	PartnerInfo      string      `db:"partner_info" json:"partner_info,omitempty"`
	Status           OfferStatus `db:"status" json:"status"`
	IsAccepted       bool        `db:"is_accepted" json:"is_accepted"`
	AcceptedAt       *time.Time  `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the offer is the current proposal.
func (o *Offer) IsActive() bool {
	return o != nil && o.Status == OfferActive
}
