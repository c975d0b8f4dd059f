package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type opportunityStore interface {
	Create(ctx context.Context, opp *models.Opportunity) error
	GetByID(ctx context.Context, id int64) (*models.Opportunity, error)
	List(ctx context.Context, filter models.OpportunityFilter) ([]models.Opportunity, int, error)
	UpdateStatus(ctx context.Context, id int64, status models.OpportunityStatus) error
}

// OpportunityService publishes and moderates partner opportunities.
type OpportunityService struct {
	repo      opportunityStore
	audit     auditLogger
	events    eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOpportunityService constructs the service.
func NewOpportunityService(repo opportunityStore, audit auditLogger, events eventPublisher, validate *validator.Validate, logger *zap.Logger) *OpportunityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OpportunityService{repo: repo, audit: audit, events: events, validator: validate, logger: logger}
}

// Create stores an opportunity. Administrators publish immediately, partners go through review.
func (s *OpportunityService) Create(ctx context.Context, input dto.CreateOpportunityRequest, actor *models.JWTClaims) (*models.Opportunity, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdministrator() && !actor.IsPartner() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only partners may publish opportunities")
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Validation(err, "invalid opportunity payload")
	}
	opp := &models.Opportunity{
		UserID:                 actor.UserID,
		Title:                  strings.TrimSpace(input.Title),
		Type:                   strings.TrimSpace(input.Type),
		Status:                 models.OpportunityPendingReview,
		Summary:                input.Summary,
		CoverageActivity:       strings.TrimSpace(input.CoverageActivity),
		TargetAudience:         pq.StringArray(input.TargetAudience),
		ImplementationLocation: strings.TrimSpace(input.ImplementationLocation),
		URL:                    input.URL,
	}
	if opp.TargetAudience == nil {
		opp.TargetAudience = pq.StringArray{}
	}
	if input.ClosingDate != "" {
		closing, err := time.Parse("2006-01-02", input.ClosingDate)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid closing_date")
		}
		opp.ClosingDate = &closing
	}
	if actor.IsAdministrator() {
		opp.Status = models.OpportunityActive
	}
	if err := s.repo.Create(ctx, opp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create opportunity")
	}

	s.emitAudit(ctx, actor.UserID, models.AuditActionOpportunityCreate, opp.ID, nil, opp)
	if opp.Status == models.OpportunityActive {
		s.publish(ctx, Event{Type: EventOpportunityCreated, OpportunityID: opp.ID, ActorID: actor.UserID})
	}
	return opp, nil
}

// Get returns an opportunity. Unpublished ones are visible to their author and administrators.
func (s *OpportunityService) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Opportunity, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.Status != models.OpportunityActive && opp.UserID != actor.UserID && !actor.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "opportunity not found")
	}
	return opp, nil
}

// List returns opportunities. Non-administrators only see active ones besides their own.
func (s *OpportunityService) List(ctx context.Context, query dto.OpportunityQuery, actor *models.JWTClaims) ([]models.Opportunity, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown opportunity status")
		}
	}
	filter := models.OpportunityFilter{Status: query.Status, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	self := actor.UserID
	switch {
	case query.Mine:
		filter.UserID = &self
	case !actor.IsAdministrator():
		filter.Status = []models.OpportunityStatus{models.OpportunityActive}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list opportunities")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus moderates an opportunity. Activating it notifies interested users.
func (s *OpportunityService) UpdateStatus(ctx context.Context, id int64, input dto.UpdateOpportunityStatusRequest, actor *models.JWTClaims) (*models.Opportunity, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may moderate opportunities")
	}
	if !input.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown opportunity status")
	}
	opp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp.Status == input.Status {
		return opp, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, input.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "opportunity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update opportunity")
	}
	previous := opp.Status
	opp.Status = input.Status
	opp.UpdatedAt = time.Now().UTC()

	s.emitAudit(ctx, actor.UserID, models.AuditActionOpportunityStatus, id, map[string]string{"status": string(previous)}, map[string]string{"status": string(opp.Status)})
	if opp.Status == models.OpportunityActive {
		s.publish(ctx, Event{Type: EventOpportunityCreated, OpportunityID: id, ActorID: actor.UserID})
	}
	return opp, nil
}

func (s *OpportunityService) load(ctx context.Context, id int64) (*models.Opportunity, error) {
	opp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "opportunity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load opportunity")
	}
	return opp, nil
}

func (s *OpportunityService) publish(ctx context.Context, event Event) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}

func (s *OpportunityService) emitAudit(ctx context.Context, actorID int64, action string, id int64, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	resourceID := strconv.FormatInt(id, 10)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "opportunity",
		ResourceID: &resourceID,
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
		IPAddress:  "system",
		UserAgent:  "opportunity-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
