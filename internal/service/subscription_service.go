package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type subscriptionStore interface {
	Create(ctx context.Context, sub *models.RequestSubscription) error
	Delete(ctx context.Context, userID, requestID int64) error
	ListByRequest(ctx context.Context, requestID int64) ([]models.RequestSubscription, error)
}

// SubscriptionService lets users follow changes on individual requests.
type SubscriptionService struct {
	subs     subscriptionStore
	requests requestLoader
	logger   *zap.Logger
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(subs subscriptionStore, requests requestLoader, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{subs: subs, requests: requests, logger: logger}
}

// Subscribe follows a request for actor, or for userID when actor is an administrator.
func (s *SubscriptionService) Subscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) (*models.RequestSubscription, error) {
	target, err := actingFor(actor, userID)
	if err != nil {
		return nil, err
	}
	req, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if !canView(req, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not visible to you")
	}

	sub := &models.RequestSubscription{UserID: target, RequestID: requestID}
	if err := s.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already subscribed to this request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to subscribe")
	}
	s.logger.Info("request subscription created", zap.Int64("request_id", requestID), zap.Int64("user_id", target))
	return sub, nil
}

// Unsubscribe stops following a request.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, requestID int64, userID *int64, actor *models.JWTClaims) error {
	target, err := actingFor(actor, userID)
	if err != nil {
		return err
	}
	if err := s.subs.Delete(ctx, target, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unsubscribe")
	}
	return nil
}

// ListSubscribers returns the subscriptions on a request for its owner or an administrator.
func (s *SubscriptionService) ListSubscribers(ctx context.Context, requestID int64, actor *models.JWTClaims) ([]models.RequestSubscription, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsOwnedBy(actor.UserID) && !actor.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the request owner or an administrator may list subscribers")
	}
	subs, err := s.subs.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscribers")
	}
	return subs, nil
}

// actingFor resolves the user an operation applies to. Only administrators may
// name somebody else.
func actingFor(actor *models.JWTClaims, userID *int64) (int64, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	if userID == nil || *userID == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.IsAdministrator() {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "only administrators may act on behalf of another user")
	}
	return *userID, nil
}

func loadRequest(ctx context.Context, requests requestLoader, id int64) (*models.Request, error) {
	req, err := requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}
