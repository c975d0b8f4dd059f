package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type offerListerStub []models.Offer

func (s offerListerStub) ListByRequest(ctx context.Context, requestID int64) ([]models.Offer, error) {
	var out []models.Offer
	for _, offer := range s {
		if offer.RequestID == requestID {
			out = append(out, offer)
		}
	}
	return out, nil
}

func TestListOffersScopesPartners(t *testing.T) {
	requests := requestLoaderStub{
		1: {ID: 1, UserID: ownerID, Status: models.StatusOfferMade},
		2: {ID: 2, UserID: ownerID, Status: models.StatusDraft},
	}
	offers := offerListerStub{
		{ID: 10, RequestID: 1, MatchedPartnerID: partnerID, Status: models.OfferActive},
		{ID: 11, RequestID: 1, MatchedPartnerID: 99, Status: models.OfferInactive},
	}
	svc := NewOfferService(offers, requests, nil)

	all, err := svc.ListOffers(context.Background(), 1, ownerClaims)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = svc.ListOffers(context.Background(), 1, adminClaims)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.ListOffers(context.Background(), 1, partnerClaims)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, int64(10), own[0].ID)

	_, err = svc.ListOffers(context.Background(), 2, partnerClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.ListOffers(context.Background(), 42, ownerClaims)
	assertAppError(t, err, appErrors.ErrNotFound)
}
