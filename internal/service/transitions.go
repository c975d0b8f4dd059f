package service

import "github.com/noah-isme/capdev-portal-api/internal/models"

type transitionRule struct {
	ownerAllowed bool
}

// requestTransitions lists every permitted status edge. Edges not present are rejected.
var requestTransitions = map[models.RequestStatusCode]map[models.RequestStatusCode]transitionRule{
	models.StatusDraft: {
		models.StatusUnderReview: {ownerAllowed: true},
	},
	models.StatusUnderReview: {
		models.StatusDraft:     {ownerAllowed: true},
		models.StatusValidated: {},
		models.StatusRejected:  {},
	},
	models.StatusValidated: {
		models.StatusOfferMade: {},
		models.StatusRejected:  {},
		models.StatusUnmatched: {},
	},
	models.StatusOfferMade: {
		models.StatusValidated: {},
		models.StatusMatchMade: {},
		models.StatusUnmatched: {},
	},
	models.StatusMatchMade: {
		models.StatusInImplementation: {},
		models.StatusUnmatched:        {},
	},
	models.StatusInImplementation: {
		models.StatusClosed: {},
	},
}

func lookupTransition(from, to models.RequestStatusCode) (transitionRule, bool) {
	edges, ok := requestTransitions[from]
	if !ok {
		return transitionRule{}, false
	}
	rule, ok := edges[to]
	return rule, ok
}

// AllowedTransitions returns the statuses reachable from the given one, in registry order.
func AllowedTransitions(from models.RequestStatusCode) []models.RequestStatusCode {
	edges := requestTransitions[from]
	out := make([]models.RequestStatusCode, 0, len(edges))
	for _, status := range models.RequestStatusCatalog {
		if _, ok := edges[status.Code]; ok {
			out = append(out, status.Code)
		}
	}
	return out
}

// editableStatuses are the states in which the owner may still change request details.
var editableStatuses = []models.RequestStatusCode{models.StatusDraft, models.StatusUnderReview}

// partnerVisibleStatuses are the states a partner may browse besides their own requests.
var partnerVisibleStatuses = []models.RequestStatusCode{
	models.StatusValidated,
	models.StatusOfferMade,
	models.StatusMatchMade,
	models.StatusInImplementation,
	models.StatusClosed,
	models.StatusUnmatched,
}
