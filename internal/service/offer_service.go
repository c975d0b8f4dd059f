package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type offerLister interface {
	ListByRequest(ctx context.Context, requestID int64) ([]models.Offer, error)
}

// OfferService serves offer reads. Mutations live in LifecycleService.
type OfferService struct {
	offers   offerLister
	requests requestLoader
	logger   *zap.Logger
}

// NewOfferService constructs the service.
func NewOfferService(offers offerLister, requests requestLoader, logger *zap.Logger) *OfferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferService{offers: offers, requests: requests, logger: logger}
}

// ListOffers returns the offers on a request. Partners only see the ones they made.
func (s *OfferService) ListOffers(ctx context.Context, requestID int64, actor *models.JWTClaims) ([]models.Offer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if !canView(req, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not visible to you")
	}

	offers, err := s.offers.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offers")
	}
	if actor.IsAdministrator() || req.IsOwnedBy(actor.UserID) {
		return offers, nil
	}
	own := make([]models.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.MatchedPartnerID == actor.UserID {
			own = append(own, offer)
		}
	}
	return own, nil
}
