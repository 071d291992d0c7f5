package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

// Order statuses
const (
	OrderStatusVerificationPending OrderStatus = "Verification Pending"
	OrderStatusProcessing          OrderStatus = "Processing"
	OrderStatusShipped             OrderStatus = "Shipped"
	OrderStatusOutForDelivery      OrderStatus = "Out for Delivery"
	OrderStatusDelivered           OrderStatus = "Delivered"
	OrderStatusCompleted           OrderStatus = "Completed"
)

// PaymentMethod chosen at checkout.
type PaymentMethod string

const (
	PaymentMethodPrepaid PaymentMethod = "PREPAID"
	PaymentMethodCOD     PaymentMethod = "COD"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPrepaid || m == PaymentMethodCOD
}

// PaymentStatus tracks collection of the order total.
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending             PaymentStatus = "PENDING"
	PaymentStatusVerificationPending PaymentStatus = "VERIFICATION_PENDING"
	PaymentStatusCompleted           PaymentStatus = "COMPLETED"
	PaymentStatusFailed              PaymentStatus = "FAILED"
)

// DefaultCarrier is used when the admin leaves the carrier blank.
const DefaultCarrier = "SpeedPost Express"

// Order represents a customer order
type Order struct {
	ID            string          `db:"id" json:"id"`
	Items         CartItems       `db:"items" json:"items"`
	Customer      CustomerDetails `db:"customer" json:"customer"`
	CustomerPhone string          `db:"customer_phone" json:"-"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingFee   decimal.Decimal `db:"shipping_fee" json:"shipping_fee"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        OrderStatus     `db:"status" json:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
	ScreenshotURL string          `db:"screenshot_url" json:"screenshot_url,omitempty"`
	TrackingID    string          `db:"tracking_id" json:"tracking_id,omitempty"`
	Carrier       string          `db:"carrier" json:"carrier,omitempty"`
	AdminContact  string          `db:"admin_contact" json:"admin_contact,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"date"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderFilter narrows an admin order listing.
type OrderFilter struct {
	Status OrderStatus
	Phone  string
}

// OrderEvent records one status transition and who made it.
type OrderEvent struct {
	ID         int64       `db:"id" json:"id"`
	OrderID    string      `db:"order_id" json:"order_id"`
	FromStatus OrderStatus `db:"from_status" json:"from_status"`
	ToStatus   OrderStatus `db:"to_status" json:"to_status"`
	Actor      string      `db:"actor" json:"actor"`
	Note       string      `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCompleted
}

var advanceSteps = map[OrderStatus]OrderStatus{
	OrderStatusShipped:        OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

// ApprovePayment moves a verified prepaid order out of Verification Pending.
// Orders with nothing to ship complete immediately.
func (o *Order) ApprovePayment() error {
	if o.Status != OrderStatusVerificationPending {
		return ErrInvalidTransition
	}
	o.PaymentStatus = PaymentStatusCompleted
	if o.Items.HasPhysical() {
		o.Status = OrderStatusProcessing
	} else {
		o.Status = OrderStatusCompleted
	}
	return nil
}

// Ship records tracking data and moves Processing to Shipped.
func (o *Order) Ship(trackingID, carrier, adminContact string) error {
	if o.Status != OrderStatusProcessing {
		return ErrInvalidTransition
	}
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return NewValidationError("tracking_id", "is required")
	}
	carrier = strings.TrimSpace(carrier)
	if carrier == "" {
		carrier = DefaultCarrier
	}
	o.TrackingID = trackingID
	o.Carrier = carrier
	o.AdminContact = strings.TrimSpace(adminContact)
	o.Status = OrderStatusShipped
	return nil
}

// Advance moves a shipped order one step forward. Delivering a COD order
// marks its cash as collected.
func (o *Order) Advance() error {
	next, ok := advanceSteps[o.Status]
	if !ok {
		return ErrInvalidTransition
	}
	o.Status = next
	if next == OrderStatusDelivered && o.PaymentMethod == PaymentMethodCOD {
		o.PaymentStatus = PaymentStatusCompleted
	}
	return nil
}

// Paid reports whether the customer may see delivery links.
func (o *Order) Paid() bool {
	return o.PaymentStatus == PaymentStatusCompleted
}

// Redacted hides delivery links until payment is completed.
func (o Order) Redacted() Order {
	if !o.Paid() {
		o.Items = o.Items.Redacted()
	}
	return o
}

// NewOrderID generates the customer-facing order id from a random token.
func NewOrderID(token string) string {
	t := strings.ToUpper(strings.ReplaceAll(token, "-", ""))
	if len(t) > 10 {
		t = t[:10]
	}
	return "ORD-" + t
}

// OrderIDFragment is the short form used in payment notes.
func OrderIDFragment(orderID string) string {
	f := strings.TrimPrefix(orderID, "ORD-")
	if len(f) > 8 {
		f = f[:8]
	}
	return f
}
