package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type lifecycleStore interface {
	WithinTx(ctx context.Context, fn func(tx repository.LifecycleTx) error) error
}

type offerReader interface {
	GetByID(ctx context.Context, id int64) (*models.Offer, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type lifecycleMetrics interface {
	RecordTransition(from, to models.RequestStatusCode)
	RecordOfferAccepted()
}

type cacheDeleter interface {
	Delete(ctx context.Context, key string) error
}

type fileRemover interface {
	Delete(name string) error
}

type partnerDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// LifecycleService moves requests between statuses and offers between
// active, inactive and accepted, under a row lock on the parent request.
type LifecycleService struct {
	store     lifecycleStore
	offers    offerReader
	audit     auditLogger
	events    eventPublisher
	metrics   lifecycleMetrics
	cache     cacheDeleter
	files     fileRemover
	partners  partnerDirectory
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// LifecycleServiceOption configures the service.
type LifecycleServiceOption func(*LifecycleService)

// WithLifecycleMetrics records transitions and acceptances.
func WithLifecycleMetrics(metrics lifecycleMetrics) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.metrics = metrics
	}
}

// WithLifecycleCache evicts cached request reads after a change.
func WithLifecycleCache(cache cacheDeleter) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.cache = cache
	}
}

// WithLifecycleFiles removes stored attachments of deleted requests.
func WithLifecycleFiles(files fileRemover) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.files = files
	}
}

// WithLifecyclePartners resolves the partner an administrator makes an offer for.
func WithLifecyclePartners(partners partnerDirectory) LifecycleServiceOption {
	return func(s *LifecycleService) {
		s.partners = partners
	}
}

// WithLifecycleClock overrides the time source.
func WithLifecycleClock(now func() time.Time) LifecycleServiceOption {
	return func(s *LifecycleService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLifecycleService constructs the service with defaults.
func NewLifecycleService(store lifecycleStore, offers offerReader, audit auditLogger, events eventPublisher, validate *validator.Validate, logger *zap.Logger, opts ...LifecycleServiceOption) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &LifecycleService{
		store:     store,
		offers:    offers,
		audit:     audit,
		events:    events,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

type statusChange struct {
	requestID int64
	from      models.RequestStatusCode
	to        models.RequestStatusCode
}

// TransitionRequestStatus moves a request to target after checking, in order:
// existence, actor rights, target validity, terminal state, the edge table and
// finally whether the edge is reserved for administrators.
func (s *LifecycleService) TransitionRequestStatus(ctx context.Context, requestID int64, target models.RequestStatusCode, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	var (
		updated *models.Request
		change  statusChange
	)
	err := s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		isAdmin := actor.IsAdministrator()
		if !req.IsOwnedBy(actor.UserID) && !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, "only the request owner or an administrator may change its status")
		}
		if !target.Known() {
			return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status code %q", target))
		}
		if req.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and can no longer change status", req.Status))
		}
		rule, ok := lookupTransition(req.Status, target)
		if !ok {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move request from %s to %s", req.Status, target))
		}
		if !rule.ownerAllowed && !isAdmin {
			return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("only an administrator may move a request to %s", target))
		}
		if target == models.StatusMatchMade && req.MatchedPartnerID == nil {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "a request is matched by accepting one of its offers")
		}
		if err := syncOffersForTransition(ctx, tx, req, target); err != nil {
			return err
		}
		if err := tx.UpdateRequestStatus(ctx, req.ID, target); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
		}
		change = statusChange{requestID: req.ID, from: req.Status, to: target}
		req.Status = target
		req.UpdatedAt = s.now()
		updated = req
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to change request status")
	}

	s.afterStatusChange(ctx, change, actor.UserID)
	return updated, nil
}

// AcceptOffer marks an offer accepted for its request owner. Sibling offers are
// deactivated, the partner is recorded on the request and the request moves to match_made.
func (s *LifecycleService) AcceptOffer(ctx context.Context, offerID int64, actor *models.JWTClaims) (*models.Offer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	current, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var (
		accepted *models.Offer
		change   statusChange
	)
	err = s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, current.RequestID)
		if err != nil {
			return err
		}
		offer, err := lockOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if !req.IsOwnedBy(actor.UserID) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the request owner may accept an offer")
		}
		if offer.IsAccepted {
			return appErrors.Clone(appErrors.ErrAlreadyAccepted, "offer has already been accepted")
		}
		if req.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and can no longer accept offers", req.Status))
		}
		if req.Status != models.StatusValidated && req.Status != models.StatusOfferMade {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request in status %s is not awaiting an offer", req.Status))
		}

		now := s.now()
		if _, err := tx.DeactivateOtherOffers(ctx, req.ID, offer.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate sibling offers")
		}
		if err := tx.MarkOfferAccepted(ctx, offer.ID, now); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept offer")
		}
		if err := tx.SetMatchedPartner(ctx, req.ID, offer.MatchedPartnerID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record matched partner")
		}
		if err := tx.UpdateRequestStatus(ctx, req.ID, models.StatusMatchMade); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
		}

		offer.IsAccepted = true
		offer.AcceptedAt = &now
		offer.Status = models.OfferActive
		offer.UpdatedAt = now
		accepted = offer
		change = statusChange{requestID: req.ID, from: req.Status, to: models.StatusMatchMade}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to accept offer")
	}

	if s.metrics != nil {
		s.metrics.RecordOfferAccepted()
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionOfferAccept, "offer", accepted.ID, nil, accepted)
	s.publish(ctx, Event{Type: EventOfferAccepted, RequestID: accepted.RequestID, OfferID: accepted.ID, ActorID: actor.UserID})
	s.afterStatusChange(ctx, change, actor.UserID)
	return accepted, nil
}

// ChangeOfferStatus toggles an offer for an administrator or the proposing partner.
// Activating an offer deactivates every other active offer on the same request.
func (s *LifecycleService) ChangeOfferStatus(ctx context.Context, offerID int64, target models.OfferStatus, actor *models.JWTClaims) (*models.Offer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be ACTIVE or INACTIVE")
	}
	current, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.Offer
		changed bool
		change  *statusChange
	)
	err = s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, current.RequestID)
		if err != nil {
			return err
		}
		offer, err := lockOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if !actor.IsAdministrator() && offer.MatchedPartnerID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the proposing partner or an administrator may change an offer")
		}
		if req.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and its offers can no longer change", req.Status))
		}
		result = offer
		if offer.Status == target {
			return nil
		}

		switch target {
		case models.OfferActive:
			if req.Status != models.StatusValidated && req.Status != models.StatusOfferMade {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("offers cannot be activated while the request is %s", req.Status))
			}
			if _, err := tx.DeactivateOtherOffers(ctx, req.ID, offer.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate sibling offers")
			}
			if err := tx.SetOfferStatus(ctx, offer.ID, models.OfferActive); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate offer")
			}
			if req.Status == models.StatusValidated {
				if err := tx.UpdateRequestStatus(ctx, req.ID, models.StatusOfferMade); err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
				}
				change = &statusChange{requestID: req.ID, from: req.Status, to: models.StatusOfferMade}
			}
		case models.OfferInactive:
			if offer.IsAccepted {
				return appErrors.Clone(appErrors.ErrConflict, "an accepted offer cannot be deactivated")
			}
			reverted, err := deactivateOffer(ctx, tx, req, offer.ID)
			if err != nil {
				return err
			}
			change = reverted
		}
		offer.Status = target
		offer.UpdatedAt = s.now()
		changed = true
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to change offer status")
	}

	if changed {
		s.emitAudit(ctx, actor.UserID, models.AuditActionOfferStatus, "offer", result.ID, current, result)
		if change != nil {
			s.afterStatusChange(ctx, *change, actor.UserID)
		}
	}
	return result, nil
}

// CreateOffer records a new active offer on a validated request. Any previously
// active offer is superseded and a validated request advances to offer_made.
func (s *LifecycleService) CreateOffer(ctx context.Context, requestID int64, input dto.CreateOfferRequest, actor *models.JWTClaims) (*models.Offer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdministrator() && !actor.IsPartner() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only partners may make offers")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Validation(err, "invalid offer payload")
	}
	description := sanitizeHTML(input.Description)
	if description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "description is required")
	}
	partnerID := actor.UserID
	onBehalf := actor.IsAdministrator() && input.PartnerID != nil
	if onBehalf {
		partnerID = *input.PartnerID
	}

	var (
		created *models.Offer
		change  *statusChange
	)
	err := s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.IsOwnedBy(partnerID) {
			return appErrors.Clone(appErrors.ErrForbidden, "a request owner cannot make an offer on their own request")
		}
		if onBehalf {
			if err := s.checkPartner(ctx, partnerID); err != nil {
				return err
			}
		}
		if req.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and can no longer receive offers", req.Status))
		}
		if req.Status != models.StatusValidated && req.Status != models.StatusOfferMade {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request in status %s is not open for offers", req.Status))
		}

		if _, err := tx.DeactivateOtherOffers(ctx, req.ID, 0); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate sibling offers")
		}
		offer := &models.Offer{
			RequestID:        req.ID,
			MatchedPartnerID: partnerID,
			Description:      description,
			PartnerInfo:      sanitizeHTML(input.PartnerInfo),
			Status:           models.OfferActive,
		}
		if err := tx.InsertOffer(ctx, offer); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offer")
		}
		if req.Status == models.StatusValidated {
			if err := tx.UpdateRequestStatus(ctx, req.ID, models.StatusOfferMade); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
			}
			change = &statusChange{requestID: req.ID, from: req.Status, to: models.StatusOfferMade}
		}
		created = offer
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to create offer")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionOfferCreate, "offer", created.ID, nil, created)
	s.publish(ctx, Event{Type: EventOfferCreated, RequestID: created.RequestID, OfferID: created.ID, ActorID: actor.UserID})
	if change != nil {
		s.afterStatusChange(ctx, *change, actor.UserID)
	}
	return created, nil
}

func (s *LifecycleService) checkPartner(ctx context.Context, id int64) error {
	if s.partners == nil {
		return nil
	}
	user, err := s.partners.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("partner %d does not exist", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load partner")
	}
	if user.Role != models.RolePartner || !user.Active {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %d is not an active partner", id))
	}
	return nil
}

// RejectOffer lets the request owner decline an offer. When no active offer remains
// on a request at offer_made, the request returns to validated.
func (s *LifecycleService) RejectOffer(ctx context.Context, offerID int64, actor *models.JWTClaims) (*models.Offer, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	current, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	var (
		rejected *models.Offer
		change   *statusChange
	)
	err = s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, current.RequestID)
		if err != nil {
			return err
		}
		offer, err := lockOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if !req.IsOwnedBy(actor.UserID) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the request owner may reject an offer")
		}
		if offer.IsAccepted {
			return appErrors.Clone(appErrors.ErrAlreadyAccepted, "an accepted offer cannot be rejected")
		}
		if req.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and its offers can no longer change", req.Status))
		}
		if offer.Status == models.OfferActive {
			reverted, err := deactivateOffer(ctx, tx, req, offer.ID)
			if err != nil {
				return err
			}
			change = reverted
		}
		offer.Status = models.OfferInactive
		offer.UpdatedAt = s.now()
		rejected = offer
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to reject offer")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionOfferReject, "offer", rejected.ID, current, rejected)
	s.publish(ctx, Event{Type: EventOfferRejected, RequestID: rejected.RequestID, OfferID: rejected.ID, ActorID: actor.UserID})
	if change != nil {
		s.afterStatusChange(ctx, *change, actor.UserID)
	}
	return rejected, nil
}

// DeleteRequest removes a draft request for its owner or an administrator.
func (s *LifecycleService) DeleteRequest(ctx context.Context, requestID int64, actor *models.JWTClaims) (bool, error) {
	if actor == nil {
		return false, appErrors.ErrUnauthorized
	}
	var (
		deleted *models.Request
		files   []string
	)
	err := s.store.WithinTx(ctx, func(tx repository.LifecycleTx) error {
		req, err := lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !req.IsOwnedBy(actor.UserID) && !actor.IsAdministrator() {
			return appErrors.Clone(appErrors.ErrForbidden, "only the request owner or an administrator may delete it")
		}
		if req.Status != models.StatusDraft {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("only draft requests can be deleted, request is %s", req.Status))
		}
		paths, err := tx.DeleteRequest(ctx, req.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
		}
		deleted, files = req, paths
		return nil
	})
	if err != nil {
		return false, asAppError(err, "failed to delete request")
	}

	s.evict(ctx, deleted.ID)
	s.removeFiles(deleted.ID, files)
	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestDelete, "request", deleted.ID, deleted, nil)
	return true, nil
}

// syncOffersForTransition keeps offer_made tied to an active offer: entering it
// needs one, and withdrawing to validated deactivates the active ones.
func syncOffersForTransition(ctx context.Context, tx repository.LifecycleTx, req *models.Request, target models.RequestStatusCode) error {
	switch {
	case req.Status == models.StatusValidated && target == models.StatusOfferMade:
		active, err := tx.CountActiveOffers(ctx, req.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active offers")
		}
		if active == 0 {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "a request reaches offer_made when a partner makes an offer")
		}
	case req.Status == models.StatusOfferMade && target == models.StatusValidated:
		if _, err := tx.DeactivateOtherOffers(ctx, req.ID, 0); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate offers")
		}
	}
	return nil
}

func (s *LifecycleService) removeFiles(requestID int64, paths []string) {
	if s.files == nil {
		return
	}
	for _, path := range paths {
		if err := s.files.Delete(path); err != nil {
			s.logger.Warn("failed to remove document file", zap.Int64("request_id", requestID), zap.String("path", path), zap.Error(err))
		}
	}
}

// deactivateOffer sets an offer inactive and reverts an offer_made request to
// validated when no active offer remains.
func deactivateOffer(ctx context.Context, tx repository.LifecycleTx, req *models.Request, offerID int64) (*statusChange, error) {
	if err := tx.SetOfferStatus(ctx, offerID, models.OfferInactive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate offer")
	}
	if req.Status != models.StatusOfferMade {
		return nil, nil
	}
	remaining, err := tx.CountActiveOffers(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active offers")
	}
	if remaining > 0 {
		return nil, nil
	}
	if err := tx.UpdateRequestStatus(ctx, req.ID, models.StatusValidated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}
	return &statusChange{requestID: req.ID, from: req.Status, to: models.StatusValidated}, nil
}

func (s *LifecycleService) loadOffer(ctx context.Context, offerID int64) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offer")
	}
	return offer, nil
}

func lockRequest(ctx context.Context, tx repository.LifecycleTx, id int64) (*models.Request, error) {
	req, err := tx.LockRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

func lockOffer(ctx context.Context, tx repository.LifecycleTx, id int64) (*models.Offer, error) {
	offer, err := tx.LockOffer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offer")
	}
	return offer, nil
}

func (s *LifecycleService) afterStatusChange(ctx context.Context, change statusChange, actorID int64) {
	if change.requestID == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTransition(change.from, change.to)
	}
	s.evict(ctx, change.requestID)
	s.emitAudit(ctx, actorID, models.AuditActionRequestTransition, "request", change.requestID,
		map[string]string{"status": string(change.from)},
		map[string]string{"status": string(change.to)})
	s.publish(ctx, Event{
		Type:      EventRequestStatusChanged,
		RequestID: change.requestID,
		From:      change.from,
		To:        change.to,
		ActorID:   actorID,
	})
}

func (s *LifecycleService) evict(ctx context.Context, requestID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, requestCacheKey(requestID)); err != nil {
		s.logger.Warn("failed to evict cached request", zap.Int64("request_id", requestID), zap.Error(err))
	}
}

func (s *LifecycleService) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now()
	s.events.Publish(ctx, event)
}

func (s *LifecycleService) emitAudit(ctx context.Context, actorID int64, action, resource string, resourceID int64, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	id := strconv.FormatInt(resourceID, 10)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
		IPAddress:  "system",
		UserAgent:  "lifecycle-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// asAppError keeps typed errors raised inside a transaction and wraps infrastructure failures.
func asAppError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
