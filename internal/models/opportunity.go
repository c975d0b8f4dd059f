package models

import (
	"time"

	"github.com/lib/pq"
)

// OpportunityStatus tracks moderation of a published opportunity.
type OpportunityStatus string

const (
	OpportunityPendingReview OpportunityStatus = "pending_review"
	OpportunityActive        OpportunityStatus = "active"
	OpportunityClosed        OpportunityStatus = "closed"
	OpportunityRejected      OpportunityStatus = "rejected"
)

// Valid reports whether s is a known opportunity status.
func (s OpportunityStatus) Valid() bool {
	switch s {
	case OpportunityPendingReview, OpportunityActive, OpportunityClosed, OpportunityRejected:
		return true
	}
	return false
}

// Opportunity is a training or funding opening published by a partner.
type Opportunity struct {
	ID                     int64             `db:"id" json:"id"`
	UserID                 int64             `db:"user_id" json:"user_id"`
	Title                  string            `db:"title" json:"title"`
	Type                   string            `db:"type" json:"type"`
	Status                 OpportunityStatus `db:"status" json:"status"`
	Summary                string            `db:"summary" json:"summary"`
	CoverageActivity       string            `db:"coverage_activity" json:"coverage_activity"`
	TargetAudience         pq.StringArray    `db:"target_audience" json:"target_audience"`
	ImplementationLocation string            `db:"implementation_location" json:"implementation_location"`
	URL                    string            `db:"url" json:"url"`
	ClosingDate            *time.Time        `db:"closing_date" json:"closing_date,omitempty"`
	CreatedAt              time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time         `db:"updated_at" json:"updated_at"`
}

// Attributes flattens the categorical fields used for notification matching.
func (o *Opportunity) Attributes() []AttributeValue {
	attrs := make([]AttributeValue, 0, len(o.TargetAudience)+3)
	attrs = appendAttributes(attrs, AttributeOpportunityType, o.Type)
	attrs = appendAttributes(attrs, AttributeRelatedActivity, o.CoverageActivity)
	attrs = appendAttributes(attrs, AttributeTargetAudience, o.TargetAudience...)
	attrs = appendAttributes(attrs, AttributeLocation, o.ImplementationLocation)
	return attrs
}

// OpportunityFilter constrains opportunity listings.
type OpportunityFilter struct {
	Status   []OpportunityStatus
	UserID   *int64
	Page     int
	PageSize int
}
