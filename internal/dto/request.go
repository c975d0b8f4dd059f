package dto

import "github.com/noah-isme/capdev-portal-api/internal/models"

// CreateRequestRequest is the payload for submitting a new request.
type CreateRequestRequest struct {
	Detail models.RequestDetail `json:"detail" validate:"required"`
	// Submit places the request straight into review instead of draft.
	Submit bool `json:"submit"`
}

// UpdateRequestRequest replaces the detail of an editable request.
type UpdateRequestRequest struct {
	Detail models.RequestDetail `json:"detail" validate:"required"`
}

// TransitionRequest asks for a status change.
type TransitionRequest struct {
	Status models.RequestStatusCode `json:"status" validate:"required"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status   []models.RequestStatusCode
	Mine     bool
	Search   string
	Page     int
	PageSize int
}

// RequestView decorates a request with the transitions its viewer may trigger next.
type RequestView struct {
	models.Request
	StatusLabel        string                     `json:"status_label"`
	AllowedTransitions []models.RequestStatusCode `json:"allowed_transitions"`
}
