package models

import "time"

// TicketStatus is either Open or Closed.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "Open"
	TicketStatusClosed TicketStatus = "Closed"
)

// Valid reports whether s is a known ticket status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// TicketCategories is the fixed set customers choose from.
var TicketCategories = []string{
	"भुगतान समस्या",
	"ऑर्डर समस्या",
	"डिलीवरी समस्या",
	"तकनीकी समस्या",
	"खाता समस्या",
	"अन्य",
}

// ValidTicketCategory reports whether c is in TicketCategories.
func ValidTicketCategory(c string) bool {
	for _, v := range TicketCategories {
		if v == c {
			return true
		}
	}
	return false
}

// SupportTicket is a customer support request.
type SupportTicket struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Phone       string       `db:"phone" json:"phone"`
	Category    string       `db:"category" json:"category"`
	Description string       `db:"description" json:"description"`
	Status      TicketStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Toggled returns the opposite status.
func (t *SupportTicket) Toggled() TicketStatus {
	if t.Status == TicketStatusOpen {
		return TicketStatusClosed
	}
	return TicketStatusOpen
}

// UserProfile holds identity, optional birth details and subscription state.
type UserProfile struct {
	Phone              string     `db:"phone" json:"phone"`
	Name               string     `db:"name" json:"name"`
	Email              string     `db:"email" json:"email,omitempty"`
	WhatsApp           string     `db:"whatsapp" json:"whatsapp,omitempty"`
	BirthDate          string     `db:"birth_date" json:"birth_date,omitempty"`
	BirthTime          string     `db:"birth_time" json:"birth_time,omitempty"`
	BirthPlace         string     `db:"birth_place" json:"birth_place,omitempty"`
	SubscriptionPlan   string     `db:"subscription_plan" json:"subscription_plan,omitempty"`
	SubscriptionExpiry *time.Time `db:"subscription_expiry" json:"subscription_expiry,omitempty"`
	IsPremium          bool       `db:"is_premium" json:"is_premium"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// IsPremiumActive is true while the subscription has not expired.
func (p *UserProfile) IsPremiumActive(now time.Time) bool {
	return p.SubscriptionExpiry != nil && p.SubscriptionExpiry.After(now)
}

// DeletionResult counts what an account deletion removed.
type DeletionResult struct {
	Orders        int64 `json:"orders"`
	Tickets       int64 `json:"tickets"`
	Verifications int64 `json:"verifications"`
	Profile       bool  `json:"profile"`
}
