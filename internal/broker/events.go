package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%s", event.OrderID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("order-%s", event.OrderID), event)
}

// PublishVerification publishes a verification submitted or resolved event
func (ep *EventPublisher) PublishVerification(ctx context.Context, event *models.VerificationEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("verification-%s", event.RequestID), event)
}

// PublishTicketCreated publishes TicketCreated event
func (ep *EventPublisher) PublishTicketCreated(ctx context.Context, event *models.TicketCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("ticket-%s", event.TicketID), event)
}

// FeedHandler receives every known domain event with its raw payload
type FeedHandler func(ctx context.Context, eventType string, payload json.RawMessage) error

// EventHandler routes incoming events to the feed
type EventHandler struct {
	onEvent FeedHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler(onEvent FeedHandler) *EventHandler {
	return &EventHandler{onEvent: onEvent}
}

var knownEventTypes = map[string]bool{
	models.EventTypeOrderPlaced:          true,
	models.EventTypeOrderStatusChanged:   true,
	models.EventTypeVerificationCreated:  true,
	models.EventTypeVerificationResolved: true,
	models.EventTypeTicketCreated:        true,
}

// HandleMessage decodes the event envelope and forwards known event types
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if !knownEventTypes[baseEvent.EventType] {
		return fmt.Errorf("unhandled event type: %s", baseEvent.EventType)
	}
	return eh.onEvent(ctx, baseEvent.EventType, json.RawMessage(msg.Value))
}
