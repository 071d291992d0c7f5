package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VerificationType says what a payment claim activates.
type VerificationType string

const (
	VerificationTypeSubscription VerificationType = "SUBSCRIPTION"
	VerificationTypeProduct      VerificationType = "PRODUCT"
)

// VerificationStatus is the admin review outcome.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "PENDING"
	VerificationStatusApproved VerificationStatus = "APPROVED"
	VerificationStatusRejected VerificationStatus = "REJECTED"
)

// VerificationRequest is a customer-submitted claim of payment awaiting review.
type VerificationRequest struct {
	ID             string             `db:"id" json:"id"`
	Type           VerificationType   `db:"type" json:"type"`
	Name           string             `db:"name" json:"name"`
	Phone          string             `db:"phone" json:"phone"`
	Email          string             `db:"email" json:"email,omitempty"`
	OrderID        *string            `db:"order_id" json:"order_id,omitempty"`
	PlanName       string             `db:"plan_name" json:"plan_name,omitempty"`
	Price          decimal.Decimal    `db:"price" json:"price"`
	TransactionID  string             `db:"transaction_id" json:"transaction_id,omitempty"`
	ScreenshotURL  string             `db:"screenshot_url" json:"screenshot_url,omitempty"`
	AutoRenew      bool               `db:"auto_renew" json:"auto_renew"`
	Status         VerificationStatus `db:"status" json:"status"`
	RequestDate    time.Time          `db:"request_date" json:"request_date"`
	ResolvedAt     *time.Time         `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy     string             `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNote string             `db:"resolution_note" json:"resolution_note,omitempty"`
}

// SubscriptionPlan is a purchasable premium entitlement.
type SubscriptionPlan struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
}

// SubscriptionPlans is the fixed plan catalogue.
var SubscriptionPlans = []SubscriptionPlan{
	{Name: "Monthly", Price: decimal.NewFromInt(199), DurationDays: 30},
	{Name: "Quarterly", Price: decimal.NewFromInt(499), DurationDays: 90},
	{Name: "Yearly", Price: decimal.NewFromInt(1499), DurationDays: 365},
}

// FindPlan looks a plan up by name.
func FindPlan(name string) (SubscriptionPlan, bool) {
	for _, p := range SubscriptionPlans {
		if p.Name == name {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}
