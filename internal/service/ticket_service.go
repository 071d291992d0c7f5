package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TicketService handles customer support tickets
type TicketService struct {
	repo      store.Repository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewTicketService creates a new ticket service
func NewTicketService(repo store.Repository, publisher Publisher) *TicketService {
	return &TicketService{
		repo:      repo,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// TicketRequest is what a customer submits
type TicketRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// CreateTicket opens a new ticket
func (s *TicketService) CreateTicket(ctx context.Context, req TicketRequest) (*models.SupportTicket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CreateTicket")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	phone, err := models.NormalizePhone("phone", req.Phone)
	if err != nil {
		return nil, err
	}
	if !models.ValidTicketCategory(req.Category) {
		return nil, models.NewValidationError("category", "unknown category")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, models.NewValidationError("description", "is required")
	}

	now := s.now()
	ticket := &models.SupportTicket{
		ID:          uuid.NewString(),
		Name:        name,
		Phone:       phone,
		Category:    req.Category,
		Description: description,
		Status:      models.TicketStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	util.TicketsCreatedTotal.WithLabelValues(ticket.Category).Inc()
	s.logger.Info("Ticket created", zap.String("ticket_id", ticket.ID), zap.String("category", ticket.Category))

	event := &models.TicketCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypeTicketCreated, now),
		TicketID:  ticket.ID,
		Category:  ticket.Category,
	}
	if err := s.publisher.PublishTicketCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish TicketCreated event", zap.Error(err))
	}
	return ticket, nil
}

// ListTickets retrieves tickets; an empty status lists all
func (s *TicketService) ListTickets(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.ListTickets")
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("status", "must be Open or Closed")
	}
	return s.repo.ListTickets(ctx, status)
}

// GetTicket retrieves a ticket
func (s *TicketService) GetTicket(ctx context.Context, id string) (*models.SupportTicket, error) {
	return s.repo.GetTicketByID(ctx, id)
}

// ToggleTicket flips a ticket between Open and Closed
func (s *TicketService) ToggleTicket(ctx context.Context, id string) (*models.SupportTicket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.ToggleTicket")
	defer span.End()

	return s.update(ctx, id, func(t *models.SupportTicket) models.TicketStatus { return t.Toggled() })
}

// SetTicketStatus closes or reopens a ticket explicitly
func (s *TicketService) SetTicketStatus(ctx context.Context, id string, status models.TicketStatus) (*models.SupportTicket, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.SetTicketStatus")
	defer span.End()

	if !status.Valid() {
		return nil, models.NewValidationError("status", "must be Open or Closed")
	}
	return s.update(ctx, id, func(*models.SupportTicket) models.TicketStatus { return status })
}

func (s *TicketService) update(ctx context.Context, id string, next func(*models.SupportTicket) models.TicketStatus) (*models.SupportTicket, error) {
	var ticket *models.SupportTicket
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		ticket, err = tx.LockTicket(ctx, id)
		if err != nil {
			return err
		}
		ticket.Status = next(ticket)
		ticket.UpdatedAt = s.now()
		return tx.UpdateTicketStatus(ctx, id, ticket.Status, ticket.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ticket status changed", zap.String("ticket_id", id), zap.String("status", string(ticket.Status)))
	return ticket, nil
}
