package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DeliveryFormat describes how the requested support is delivered.
type DeliveryFormat string

const (
	DeliveryOnline   DeliveryFormat = "online"
	DeliveryOnsite   DeliveryFormat = "on_site"
	DeliveryBlended  DeliveryFormat = "blended"
	DeliveryFlexible DeliveryFormat = "flexible"
)

// RequestIdentification captures what is being asked for and by whom.
type RequestIdentification struct {
	Title               string   `json:"title" validate:"required,max=255"`
	Description         string   `json:"description" validate:"required"`
	RelatedActivity     string   `json:"related_activity,omitempty" validate:"omitempty,max=255"`
	Subthemes           []string `json:"subthemes,omitempty" validate:"omitempty,dive,required"`
	SupportTypes        []string `json:"support_types,omitempty" validate:"omitempty,dive,required"`
	TargetAudience      []string `json:"target_audience,omitempty" validate:"omitempty,dive,required"`
	TargetAudienceOther string   `json:"target_audience_other,omitempty"`
}

// RequestDelivery captures where and when the support takes place.
type RequestDelivery struct {
	Format    DeliveryFormat `json:"format,omitempty" validate:"omitempty,oneof=online on_site blended flexible"`
	Countries []string       `json:"countries,omitempty" validate:"omitempty,dive,len=2"`
	Region    string         `json:"region,omitempty"`
	StartDate string         `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string         `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// RequestFinancial captures whether and how much funding is needed.
type RequestFinancial struct {
	NeedsFinancialSupport bool     `json:"needs_financial_support"`
	EstimatedBudgetUSD    *float64 `json:"estimated_budget_usd,omitempty" validate:"omitempty,gte=0"`
	BudgetBreakdown       string   `json:"budget_breakdown,omitempty"`
	CoFinancing           string   `json:"co_financing,omitempty"`
}

// RequestImpact captures expected outcomes of the support.
type RequestImpact struct {
	ExpectedOutcomes string `json:"expected_outcomes,omitempty"`
	SuccessCriteria  string `json:"success_criteria,omitempty"`
	Beneficiaries    *int   `json:"beneficiaries,omitempty" validate:"omitempty,gte=0"`
	LongTermImpact   string `json:"long_term_impact,omitempty"`
}

// RequestDetail is the sectioned payload of a request, persisted as one JSONB column.
type RequestDetail struct {
	Identification RequestIdentification `json:"identification" validate:"required"`
	Delivery       RequestDelivery       `json:"delivery"`
	Financial      RequestFinancial      `json:"financial"`
	Impact         RequestImpact         `json:"impact"`
}

// Value implements driver.Valuer.
func (d RequestDetail) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *RequestDetail) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = RequestDetail{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("request detail: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*d = RequestDetail{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// CheckDates rejects a delivery window that ends before it starts.
func (d RequestDetail) CheckDates() error {
	if d.Delivery.StartDate == "" || d.Delivery.EndDate == "" {
		return nil
	}
	start, err := time.Parse("2006-01-02", d.Delivery.StartDate)
	if err != nil {
		return err
	}
	end, err := time.Parse("2006-01-02", d.Delivery.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("delivery end_date precedes start_date")
	}
	return nil
}

// Request is the aggregate root of one capacity-development submission.
type Request struct {
	ID               int64             `db:"id" json:"id"`
	UserID           int64             `db:"user_id" json:"user_id"`
	Status           RequestStatusCode `db:"status_code" json:"status"`
	MatchedPartnerID *int64            `db:"matched_partner_id" json:"matched_partner_id,omitempty"`
	Detail           RequestDetail     `db:"detail" json:"detail"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// Title is a convenience accessor used by exports and templates.
func (r *Request) Title() string {
	return r.Detail.Identification.Title
}

// IsOwnedBy reports whether userID submitted the request.
func (r *Request) IsOwnedBy(userID int64) bool {
	return r != nil && r.UserID == userID
}

// Attributes flattens the categorical fields used for notification matching.
func (r *Request) Attributes() []AttributeValue {
	id := r.Detail.Identification
	attrs := make([]AttributeValue, 0, len(id.Subthemes)+len(id.SupportTypes)+len(id.TargetAudience)+len(r.Detail.Delivery.Countries)+2)
	attrs = appendAttributes(attrs, AttributeSubtheme, id.Subthemes...)
	attrs = appendAttributes(attrs, AttributeSupportType, id.SupportTypes...)
	attrs = appendAttributes(attrs, AttributeTargetAudience, id.TargetAudience...)
	attrs = appendAttributes(attrs, AttributeDeliveryCountry, r.Detail.Delivery.Countries...)
	attrs = appendAttributes(attrs, AttributeDeliveryFormat, string(r.Detail.Delivery.Format))
	attrs = appendAttributes(attrs, AttributeRelatedActivity, id.RelatedActivity)
	return attrs
}

func appendAttributes(dst []AttributeValue, attrType AttributeType, values ...string) []AttributeValue {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dst = append(dst, AttributeValue{Type: attrType, Value: v})
	}
	return dst
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status           []RequestStatusCode
	UserID           *int64
	MatchedPartnerID *int64
	// ViewerID with ViewerStatuses restricts results to the viewer's own
	// requests plus requests in one of the listed statuses.
	ViewerID       *int64
	ViewerStatuses []RequestStatusCode
	Search         string
	Page           int
	PageSize       int
}
