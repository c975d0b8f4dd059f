package dto

import "github.com/noah-isme/capdev-portal-api/internal/models"

// CreateOpportunityRequest is the payload for publishing an opportunity.
type CreateOpportunityRequest struct {
	Title                  string   `json:"title" validate:"required,max=255"`
	Type                   string   `json:"type" validate:"required,max=100"`
	Summary                string   `json:"summary" validate:"max=10000"`
	CoverageActivity       string   `json:"coverage_activity" validate:"max=255"`
	TargetAudience         []string `json:"target_audience" validate:"omitempty,dive,required"`
	ImplementationLocation string   `json:"implementation_location" validate:"max=255"`
	URL                    string   `json:"url" validate:"omitempty,url"`
	ClosingDate            string   `json:"closing_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateOpportunityStatusRequest moderates an opportunity.
type UpdateOpportunityStatusRequest struct {
	Status models.OpportunityStatus `json:"status" validate:"required,oneof=pending_review active closed rejected"`
}

// OpportunityQuery mirrors supported listing filters.
type OpportunityQuery struct {
	Status   []models.OpportunityStatus
	Mine     bool
	Page     int
	PageSize int
}
