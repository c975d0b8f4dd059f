package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/pkg/logger"
)

// EventType names a domain event.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestUpdated       EventType = "request.updated"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventOfferCreated         EventType = "offer.created"
	EventOfferAccepted        EventType = "offer.accepted"
	EventOfferRejected        EventType = "offer.rejected"
	EventOpportunityCreated   EventType = "opportunity.created"
)

// Event describes something that already happened and was committed.
type Event struct {
	Type          EventType
	RequestID     int64
	OfferID       int64
	OpportunityID int64
	From          models.RequestStatusCode
	To            models.RequestStatusCode
	ActorID       int64
	OccurredAt    time.Time
}

// EventListener reacts to published events.
type EventListener interface {
	HandleEvent(ctx context.Context, event Event)
}

// EventListenerFunc adapts a function into an EventListener.
type EventListenerFunc func(ctx context.Context, event Event)

// HandleEvent implements EventListener.
func (f EventListenerFunc) HandleEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

type eventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventBus fans events out to listeners synchronously. A panicking listener is
// logged and does not affect other listeners or the publisher.
type EventBus struct {
	mu        sync.RWMutex
	listeners []EventListener
	logger    *zap.Logger
}

// NewEventBus constructs an empty bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{logger: logger}
}

// Subscribe registers a listener for every event.
func (b *EventBus) Subscribe(listener EventListener) {
	if listener == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, listener)
	b.mu.Unlock()
}

// Publish logs the event and delivers it to all listeners.
func (b *EventBus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	logger.WithContext(ctx, b.logger).Info("event_published",
		zap.String("event", string(event.Type)),
		zap.Int64("request", event.RequestID),
		zap.Int64("offer_id", event.OfferID),
		zap.Int64("opportunity_id", event.OpportunityID),
		zap.String("from", string(event.From)),
		zap.String("to", string(event.To)),
		zap.Int64("actor_id", event.ActorID),
	)

	b.mu.RLock()
	listeners := append([]EventListener(nil), b.listeners...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.deliver(ctx, listener, event)
	}
}

func (b *EventBus) deliver(ctx context.Context, listener EventListener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked", zap.String("event", string(event.Type)), zap.Any("panic", r))
		}
	}()
	listener.HandleEvent(ctx, event)
}
