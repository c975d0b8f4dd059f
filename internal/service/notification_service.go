package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/pkg/jobs"
	"github.com/noah-isme/capdev-portal-api/pkg/mailer"
)

// JobTypeEmail tags notification jobs on the delivery queue.
const JobTypeEmail = "notification.email"

type requestLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Request, error)
}

type opportunityLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Opportunity, error)
}

type subscriberLister interface {
	SubscriberIDs(ctx context.Context, requestID int64) ([]int64, error)
}

type recipientDirectory interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.User, error)
}

type interestMatcher interface {
	FindInterestedUsers(ctx context.Context, entity models.EntityType, attrs []models.AttributeValue) ([]int64, error)
}

type emailRenderer interface {
	Render(kind EmailKind, data EmailData) (RenderedEmail, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type notificationMetrics interface {
	RecordNotification(event string, err error)
}

// NotificationDeps groups the collaborators of NotificationService.
type NotificationDeps struct {
	Requests      requestLoader
	Offers        offerReader
	Opportunities opportunityLoader
	Subscriptions subscriberLister
	Users         recipientDirectory
	Matcher       interestMatcher
	Templates     emailRenderer
	Queue         jobEnqueuer
	Sender        mailer.Sender
	Metrics       notificationMetrics
	PortalURL     string
}

// EmailJob is the payload carried by queued notification jobs.
type EmailJob struct {
	Event   EventType
	Message mailer.Message
}

// NotificationService listens to domain events, resolves who should hear about
// them and queues one email per recipient. Failures are logged and never reach
// the operation that published the event.
type NotificationService struct {
	deps   NotificationDeps
	logger *zap.Logger
}

// NewNotificationService constructs the listener.
func NewNotificationService(deps NotificationDeps, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{deps: deps, logger: logger}
}

// HandleEvent implements EventListener.
func (s *NotificationService) HandleEvent(ctx context.Context, event Event) {
	var err error
	switch event.Type {
	case EventRequestStatusChanged:
		err = s.onStatusChanged(ctx, event)
		if err == nil && submitted(event) {
			err = s.onRequestPublished(ctx, event)
		}
	case EventOfferCreated:
		err = s.onOfferCreated(ctx, event)
	case EventOfferAccepted, EventOfferRejected:
		err = s.onOfferDecision(ctx, event)
	case EventRequestCreated, EventRequestUpdated:
		err = s.onRequestPublished(ctx, event)
	case EventOpportunityCreated:
		err = s.onOpportunityCreated(ctx, event)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("event", string(event.Type)),
			zap.Int64("request_id", event.RequestID),
			zap.Int64("offer_id", event.OfferID),
			zap.Int64("opportunity_id", event.OpportunityID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event Event) error {
	req, err := s.deps.Requests.GetByID(ctx, event.RequestID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	recipients := []int64{req.UserID}
	if req.MatchedPartnerID != nil {
		recipients = append(recipients, *req.MatchedPartnerID)
	}
	subscribers, err := s.subscribers(ctx, req.ID)
	if err != nil {
		return err
	}
	recipients = append(recipients, subscribers...)

	data := EmailData{Request: req, FromStatus: event.From, ToStatus: event.To}
	return s.dispatch(ctx, event, EmailStatusChanged, data, recipients, event.ActorID)
}

// submitted reports a draft leaving the owner's hands for the first review.
func submitted(event Event) bool {
	return event.From == models.StatusDraft && event.To == models.StatusUnderReview
}

func (s *NotificationService) onOfferCreated(ctx context.Context, event Event) error {
	req, offer, err := s.loadOffer(ctx, event)
	if err != nil {
		return err
	}
	subscribers, err := s.subscribers(ctx, req.ID)
	if err != nil {
		return err
	}
	recipients := append([]int64{req.UserID}, subscribers...)
	return s.dispatch(ctx, event, EmailOfferReceived, EmailData{Request: req, Offer: offer}, recipients, offer.MatchedPartnerID)
}

func (s *NotificationService) onOfferDecision(ctx context.Context, event Event) error {
	req, offer, err := s.loadOffer(ctx, event)
	if err != nil {
		return err
	}
	subscribers, err := s.subscribers(ctx, req.ID)
	if err != nil {
		return err
	}
	recipients := append([]int64{offer.MatchedPartnerID}, subscribers...)
	kind := EmailOfferAccepted
	if event.Type == EventOfferRejected {
		kind = EmailOfferRejected
	}
	return s.dispatch(ctx, event, kind, EmailData{Request: req, Offer: offer}, recipients, event.ActorID)
}

func (s *NotificationService) onRequestPublished(ctx context.Context, event Event) error {
	if event.To == models.StatusDraft {
		return nil
	}
	req, err := s.deps.Requests.GetByID(ctx, event.RequestID)
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if req.Status == models.StatusDraft {
		return nil
	}
	interested, err := s.deps.Matcher.FindInterestedUsers(ctx, models.EntityRequest, req.Attributes())
	if err != nil {
		return fmt.Errorf("match preferences: %w", err)
	}
	return s.dispatch(ctx, event, EmailRequestMatch, EmailData{Request: req}, interested, req.UserID)
}

func (s *NotificationService) onOpportunityCreated(ctx context.Context, event Event) error {
	if s.deps.Opportunities == nil {
		return errors.New("opportunity lookup not configured")
	}
	opp, err := s.deps.Opportunities.GetByID(ctx, event.OpportunityID)
	if err != nil {
		return fmt.Errorf("load opportunity: %w", err)
	}
	if opp.Status != models.OpportunityActive {
		return nil
	}
	interested, err := s.deps.Matcher.FindInterestedUsers(ctx, models.EntityOpportunity, opp.Attributes())
	if err != nil {
		return fmt.Errorf("match preferences: %w", err)
	}
	return s.dispatch(ctx, event, EmailOpportunityMatch, EmailData{Opportunity: opp}, interested, opp.UserID)
}

func (s *NotificationService) loadOffer(ctx context.Context, event Event) (*models.Request, *models.Offer, error) {
	offer, err := s.deps.Offers.GetByID(ctx, event.OfferID)
	if err != nil {
		return nil, nil, fmt.Errorf("load offer: %w", err)
	}
	req, err := s.deps.Requests.GetByID(ctx, offer.RequestID)
	if err != nil {
		return nil, nil, fmt.Errorf("load request: %w", err)
	}
	return req, offer, nil
}

func (s *NotificationService) subscribers(ctx context.Context, requestID int64) ([]int64, error) {
	if s.deps.Subscriptions == nil {
		return nil, nil
	}
	ids, err := s.deps.Subscriptions.SubscriberIDs(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return ids, nil
}

// dispatch renders and queues one email per active recipient, skipping exclude.
func (s *NotificationService) dispatch(ctx context.Context, event Event, kind EmailKind, data EmailData, recipients []int64, exclude int64) error {
	ids := uniqueIDs(recipients, exclude)
	if len(ids) == 0 {
		return nil
	}
	users, err := s.deps.Users.FindActiveByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve recipients: %w", err)
	}
	data.PortalURL = s.deps.PortalURL

	queued := 0
	for _, user := range users {
		if user.Email == "" {
			continue
		}
		data.RecipientName = user.FullName
		rendered, err := s.deps.Templates.Render(kind, data)
		if err != nil {
			return fmt.Errorf("render %s: %w", kind, err)
		}
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: JobTypeEmail,
			Payload: EmailJob{
				Event: event.Type,
				Message: mailer.Message{
					To:       user.Email,
					ToName:   user.FullName,
					Subject:  rendered.Subject,
					HTMLBody: rendered.HTML,
					TextBody: rendered.Text,
				},
			},
		}
		if err := s.deps.Queue.Enqueue(job); err != nil {
			s.recordNotification(event.Type, err)
			s.logger.Warn("failed to queue notification", zap.String("event", string(event.Type)), zap.Int64("user_id", user.ID), zap.Error(err))
			continue
		}
		queued++
	}
	s.logger.Info("notifications queued",
		zap.String("event", string(event.Type)),
		zap.String("template", string(kind)),
		zap.Int("recipients", queued),
	)
	return nil
}

// Deliver is the queue handler sending one queued email.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(EmailJob)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	err := s.deps.Sender.Send(ctx, payload.Message)
	s.recordNotification(payload.Event, err)
	if err != nil {
		return err
	}
	s.logger.Debug("notification sent", zap.String("job_id", job.ID), zap.String("event", string(payload.Event)))
	return nil
}

func (s *NotificationService) recordNotification(event EventType, err error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordNotification(string(event), err)
	}
}

func uniqueIDs(ids []int64, exclude int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
