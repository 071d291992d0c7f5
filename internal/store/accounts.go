package store

import (
	"context"
	"time"

	"storefront-service/internal/models"
)

const ticketColumns = `id, name, phone, category, description, status, created_at, updated_at`

// CreateTicket inserts a support ticket
func (s *Store) CreateTicket(ctx context.Context, t *models.SupportTicket) error {
	_, err := s.exec(ctx,
		"INSERT INTO support_tickets ("+ticketColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		t.ID, t.Name, t.Phone, t.Category, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	return err
}

// GetTicketByID retrieves a support ticket
func (s *Store) GetTicketByID(ctx context.Context, id string) (*models.SupportTicket, error) {
	var t models.SupportTicket
	if err := s.get(ctx, &t, "SELECT "+ticketColumns+" FROM support_tickets WHERE id = $1", id); err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return &t, nil
}

// LockTicket retrieves a ticket and holds its row lock until the transaction ends
func (s *Store) LockTicket(ctx context.Context, id string) (*models.SupportTicket, error) {
	var t models.SupportTicket
	if err := s.get(ctx, &t, "SELECT "+ticketColumns+" FROM support_tickets WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, notFound(err, "ticket", id)
	}
	return &t, nil
}

// ListTickets retrieves tickets, newest first
func (s *Store) ListTickets(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error) {
	tickets := []models.SupportTicket{}
	err := s.selectAll(ctx, &tickets,
		"SELECT "+ticketColumns+" FROM support_tickets WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC",
		string(status))
	return tickets, err
}

// UpdateTicketStatus sets a ticket's status
func (s *Store) UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus, at time.Time) error {
	n, err := s.exec(ctx, "UPDATE support_tickets SET status = $2, updated_at = $3 WHERE id = $1", id, status, at)
	return execOne(n, err, "ticket", id)
}

// DeleteTicketsByPhone removes every ticket raised with exactly this phone
func (s *Store) DeleteTicketsByPhone(ctx context.Context, phone string) (int64, error) {
	return s.exec(ctx, "DELETE FROM support_tickets WHERE phone = $1", phone)
}

const profileColumns = `phone, name, email, whatsapp, birth_date, birth_time, birth_place,
	subscription_plan, subscription_expiry, is_premium, created_at, updated_at`

// GetProfile retrieves a user profile by phone
func (s *Store) GetProfile(ctx context.Context, phone string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.get(ctx, &p, "SELECT "+profileColumns+" FROM user_profiles WHERE phone = $1", phone); err != nil {
		return nil, notFound(err, "profile", phone)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a user profile
func (s *Store) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (phone) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, whatsapp = EXCLUDED.whatsapp,
			birth_date = EXCLUDED.birth_date, birth_time = EXCLUDED.birth_time,
			birth_place = EXCLUDED.birth_place, subscription_plan = EXCLUDED.subscription_plan,
			subscription_expiry = EXCLUDED.subscription_expiry, is_premium = EXCLUDED.is_premium,
			updated_at = EXCLUDED.updated_at`

	_, err := s.exec(ctx, query,
		p.Phone, p.Name, p.Email, p.WhatsApp, p.BirthDate, p.BirthTime, p.BirthPlace,
		p.SubscriptionPlan, p.SubscriptionExpiry, p.IsPremium, p.CreatedAt, p.UpdatedAt)
	return err
}

// DeleteProfile removes a profile and reports whether one existed
func (s *Store) DeleteProfile(ctx context.Context, phone string) (bool, error) {
	n, err := s.exec(ctx, "DELETE FROM user_profiles WHERE phone = $1", phone)
	return n > 0, err
}
