package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

const requestCacheTTL = 5 * time.Minute

func requestCacheKey(id int64) string {
	return fmt.Sprintf("%srequest:%d", CacheKeyPrefix, id)
}

type requestStore interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	UpdateDetail(ctx context.Context, id int64, detail models.RequestDetail, editable []models.RequestStatusCode) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
}

type readCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RequestService handles request submission, editing and scoped reads.
type RequestService struct {
	repo      requestStore
	audit     auditLogger
	events    eventPublisher
	cache     readCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs the service. cache may be nil.
func NewRequestService(repo requestStore, audit auditLogger, events eventPublisher, cache readCache, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{repo: repo, audit: audit, events: events, cache: cache, validator: validate, logger: logger}
}

// Create stores a new request owned by actor, in draft unless submitted straight to review.
func (s *RequestService) Create(ctx context.Context, input dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateDetail(input.Detail); err != nil {
		return nil, err
	}
	status := models.StatusDraft
	if input.Submit {
		status = models.StatusUnderReview
	}
	req := &models.Request{
		UserID: actor.UserID,
		Status: status,
		Detail: input.Detail,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestCreate, req.ID, nil, req)
	s.publish(ctx, Event{Type: EventRequestCreated, RequestID: req.ID, To: req.Status, ActorID: actor.UserID})
	return req, nil
}

// UpdateDetail replaces the detail of a request that is still draft or under review.
func (s *RequestService) UpdateDetail(ctx context.Context, id int64, input dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsOwnedBy(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the request owner may edit it")
	}
	if !isEditable(current.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request in status %s can no longer be edited", current.Status))
	}
	if err := s.validateDetail(input.Detail); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateDetail(ctx, id, input.Detail, editableStatuses)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request changed status while being edited")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	s.evict(ctx, id)
	s.emitAudit(ctx, actor.UserID, models.AuditActionRequestUpdate, id, current.Detail, updated.Detail)
	s.publish(ctx, Event{Type: EventRequestUpdated, RequestID: id, To: updated.Status, ActorID: actor.UserID})
	return updated, nil
}

// Get returns a request the actor is allowed to see, with the transitions the actor may trigger.
func (s *RequestService) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*dto.RequestView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.cached(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(req, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is not visible to you")
	}
	return viewFor(req, actor), nil
}

// List returns requests scoped to the actor's role.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]dto.RequestView, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	for _, status := range query.Status {
		if !status.Known() {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status code %q", status))
		}
	}
	filter := scopedRequestFilter(query, actor)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	views := make([]dto.RequestView, 0, len(items))
	for i := range items {
		views = append(views, *viewFor(&items[i], actor))
	}
	return views, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func scopedRequestFilter(query dto.RequestQuery, actor *models.JWTClaims) models.RequestFilter {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	filter := models.RequestFilter{Status: query.Status, Search: query.Search, Page: page, PageSize: pageSize}
	self := actor.UserID
	switch {
	case actor.IsAdministrator():
		if query.Mine {
			filter.UserID = &self
		}
	case actor.IsPartner():
		if query.Mine {
			filter.UserID = &self
		} else {
			filter.ViewerID = &self
			filter.ViewerStatuses = partnerVisibleStatuses
		}
	default:
		filter.UserID = &self
	}
	return filter
}

func canView(req *models.Request, actor *models.JWTClaims) bool {
	if actor.IsAdministrator() || req.IsOwnedBy(actor.UserID) {
		return true
	}
	if req.MatchedPartnerID != nil && *req.MatchedPartnerID == actor.UserID {
		return true
	}
	if actor.IsPartner() {
		for _, status := range partnerVisibleStatuses {
			if req.Status == status {
				return true
			}
		}
	}
	return false
}

func viewFor(req *models.Request, actor *models.JWTClaims) *dto.RequestView {
	view := &dto.RequestView{Request: *req, StatusLabel: req.Status.Label(), AllowedTransitions: []models.RequestStatusCode{}}
	isAdmin := actor.IsAdministrator()
	if !isAdmin && !req.IsOwnedBy(actor.UserID) {
		return view
	}
	for _, target := range AllowedTransitions(req.Status) {
		rule, _ := lookupTransition(req.Status, target)
		if isAdmin || rule.ownerAllowed {
			view.AllowedTransitions = append(view.AllowedTransitions, target)
		}
	}
	return view
}

func isEditable(status models.RequestStatusCode) bool {
	for _, s := range editableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *RequestService) validateDetail(detail models.RequestDetail) error {
	if err := s.validator.Struct(detail); err != nil {
		return appErrors.Validation(err, "invalid request detail")
	}
	if err := detail.CheckDates(); err != nil {
		return appErrors.Validation(err, "invalid delivery dates")
	}
	return nil
}

func (s *RequestService) load(ctx context.Context, id int64) (*models.Request, error) {
	return loadRequest(ctx, s.repo, id)
}

func (s *RequestService) cached(ctx context.Context, id int64) (*models.Request, error) {
	if s.cache != nil {
		var req models.Request
		if hit, err := s.cache.Get(ctx, requestCacheKey(id), &req); err == nil && hit {
			return &req, nil
		}
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, requestCacheKey(id), req, requestCacheTTL)
	}
	return req, nil
}

func (s *RequestService) evict(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, requestCacheKey(id)); err != nil {
		s.logger.Warn("failed to evict cached request", zap.Int64("request_id", id), zap.Error(err))
	}
}

func (s *RequestService) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, event)
}

func (s *RequestService) emitAudit(ctx context.Context, actorID int64, action string, requestID int64, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	id := strconv.FormatInt(requestID, 10)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "request",
		ResourceID: &id,
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
		IPAddress:  "system",
		UserAgent:  "request-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
