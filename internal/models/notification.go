package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationKind identifies which message template produced a notification.
type NotificationKind string

const (
	NotificationOrderPlaced     NotificationKind = "ORDER_PLACED"
	NotificationDigitalDelivery NotificationKind = "DIGITAL_DELIVERY"
	NotificationLoginCode       NotificationKind = "LOGIN_CODE"
)

// NotificationStatus tracks outbox delivery.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification is an outbox row written with the business change that caused it.
type Notification struct {
	ID            string             `db:"id" json:"id"`
	Kind          NotificationKind   `db:"kind" json:"kind"`
	OrderID       *string            `db:"order_id" json:"order_id,omitempty"`
	Recipient     string             `db:"recipient" json:"recipient"`
	Message       string             `db:"message" json:"message"`
	DeepLink      string             `db:"deep_link" json:"deep_link"`
	Status        NotificationStatus `db:"status" json:"status"`
	Attempts      int                `db:"attempts" json:"attempts"`
	LastError     string             `db:"last_error" json:"last_error,omitempty"`
	NextAttemptAt time.Time          `db:"next_attempt_at" json:"next_attempt_at"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	SentAt        *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}

// NotificationFilter narrows an admin outbox listing.
type NotificationFilter struct {
	Status  NotificationStatus
	OrderID string
}

// CheckoutPhase is the step a checkout session is waiting on.
type CheckoutPhase string

const (
	CheckoutPhaseDetails CheckoutPhase = "DETAILS"
	CheckoutPhaseMethod  CheckoutPhase = "METHOD"
	CheckoutPhasePayment CheckoutPhase = "PAYMENT"
	CheckoutPhaseDone    CheckoutPhase = "DONE"
)

// PaymentReference is what the customer pays against. It is a display aid
// only; confirmation stays manual.
type PaymentReference struct {
	PayeeHandle string `json:"payee_handle"`
	PayeeName   string `json:"payee_name"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Note        string `json:"note"`
	UPIURI      string `json:"upi_uri"`
	QRImageURL  string `json:"qr_image_url"`
}

// CheckoutSession is the server-side state of one checkout.
type CheckoutSession struct {
	ID            string            `json:"id"`
	OrderID       string            `json:"order_id"`
	CartID        string            `json:"cart_id"`
	Items         CartItems         `json:"items"`
	Phase         CheckoutPhase     `json:"phase"`
	Customer      *CustomerDetails  `json:"customer,omitempty"`
	PaymentMethod PaymentMethod     `json:"payment_method,omitempty"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	ShippingFee   decimal.Decimal   `json:"shipping_fee"`
	Total         decimal.Decimal   `json:"total"`
	Reference     *PaymentReference `json:"payment_reference,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Redacted hides delivery links for display.
func (s CheckoutSession) Redacted() CheckoutSession {
	s.Items = s.Items.Redacted()
	return s
}
