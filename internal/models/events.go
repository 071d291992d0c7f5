package models

import "time"

// Event types
const (
	EventTypeOrderPlaced          = "ORDER_PLACED"
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypeVerificationCreated  = "VERIFICATION_SUBMITTED"
	EventTypeVerificationResolved = "VERIFICATION_RESOLVED"
	EventTypeTicketCreated        = "TICKET_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when checkout commits an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       string        `json:"order_id"`
	CustomerName  string        `json:"customer_name"`
	Total         string        `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	ItemCount     int           `json:"item_count"`
}

// OrderStatusChangedEvent published after every admin or approval transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    string      `json:"order_id"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status"`
	Actor      string      `json:"actor"`
}

// VerificationEvent published when a request is submitted or resolved
type VerificationEvent struct {
	BaseEvent
	RequestID string             `json:"request_id"`
	Type      VerificationType   `json:"type"`
	Status    VerificationStatus `json:"status"`
	OrderID   string             `json:"order_id,omitempty"`
	PlanName  string             `json:"plan_name,omitempty"`
	Actor     string             `json:"actor,omitempty"`
}

// TicketCreatedEvent published when a customer opens a ticket
type TicketCreatedEvent struct {
	BaseEvent
	TicketID string `json:"ticket_id"`
	Category string `json:"category"`
}
