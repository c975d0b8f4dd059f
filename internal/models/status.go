package models

// RequestStatusCode identifies a request lifecycle state.
type RequestStatusCode string

const (
	StatusDraft            RequestStatusCode = "draft"
	StatusUnderReview      RequestStatusCode = "under_review"
	StatusValidated        RequestStatusCode = "validated"
	StatusOfferMade        RequestStatusCode = "offer_made"
	StatusMatchMade        RequestStatusCode = "match_made"
	StatusInImplementation RequestStatusCode = "in_implementation"
	StatusClosed           RequestStatusCode = "closed"
	StatusRejected         RequestStatusCode = "rejected"
	StatusUnmatched        RequestStatusCode = "unmatched"
)

// RequestStatus is one entry of the status registry.
type RequestStatus struct {
	Code     RequestStatusCode `db:"status_code" json:"code"`
	Label    string            `db:"status_label" json:"label"`
	Ordering int               `db:"ordering" json:"ordering"`
	Terminal bool              `db:"terminal" json:"terminal"`
}

// RequestStatusCatalog is the ordered registry of lifecycle states.
var RequestStatusCatalog = []RequestStatus{
	{Code: StatusDraft, Label: "Draft", Ordering: 1},
	{Code: StatusUnderReview, Label: "Under Review", Ordering: 2},
	{Code: StatusValidated, Label: "Validated", Ordering: 3},
	{Code: StatusOfferMade, Label: "Offer Made", Ordering: 4},
	{Code: StatusMatchMade, Label: "Match Made", Ordering: 5},
	{Code: StatusInImplementation, Label: "In Implementation", Ordering: 6},
	{Code: StatusClosed, Label: "Closed", Ordering: 7, Terminal: true},
	{Code: StatusRejected, Label: "Rejected", Ordering: 8, Terminal: true},
	{Code: StatusUnmatched, Label: "Unmatched", Ordering: 9, Terminal: true},
}

// LookupStatus returns the registry entry for code.
func LookupStatus(code RequestStatusCode) (RequestStatus, bool) {
	for _, status := range RequestStatusCatalog {
		if status.Code == code {
			return status, true
		}
	}
	return RequestStatus{}, false
}

// Known reports whether the code exists in the registry.
func (c RequestStatusCode) Known() bool {
	_, ok := LookupStatus(c)
	return ok
}

// Terminal reports whether no transition leaves this status.
func (c RequestStatusCode) Terminal() bool {
	status, ok := LookupStatus(c)
	return ok && status.Terminal
}

// Label returns the human readable name, or the raw code when unknown.
func (c RequestStatusCode) Label() string {
	if status, ok := LookupStatus(c); ok {
		return status.Label
	}
	return string(c)
}
