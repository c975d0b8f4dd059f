package dto

import "github.com/noah-isme/capdev-portal-api/internal/models"

// CreateOfferRequest is submitted by a partner, or by an administrator on a partner's behalf.
type CreateOfferRequest struct {
	Description string `json:"description" validate:"required,max=10000"`
	PartnerInfo string `json:"partner_info" validate:"max=2000"`
	PartnerID   *int64 `json:"partner_id,omitempty"`
}

// ChangeOfferStatusRequest toggles an offer between ACTIVE and INACTIVE.
type ChangeOfferStatusRequest struct {
	Status models.OfferStatus `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}
