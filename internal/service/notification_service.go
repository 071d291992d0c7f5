package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationConfig tunes the outbox.
type NotificationConfig struct {
	AdminNumber string
	CountryCode string
	MaxAttempts int
	BatchSize   int
	BaseBackoff time.Duration
}

// NotificationService writes outbox rows alongside business changes and
// later delivers them through a Dispatcher.
type NotificationService struct {
	repo       store.Repository
	dispatcher Dispatcher
	cfg        NotificationConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo store.Repository, dispatcher Dispatcher, cfg NotificationConfig) *NotificationService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	return &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// DispatchStats summarises one DispatchDue pass.
type DispatchStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Retry  int `json:"retry"`
}

// EnqueueOrderPlaced writes the admin alert for a new order into tx.
func (s *NotificationService) EnqueueOrderPlaced(ctx context.Context, tx store.Repository, order *models.Order) error {
	recipient := notify.Recipient(s.cfg.AdminNumber, s.cfg.CountryCode)
	return s.enqueue(ctx, tx, models.NotificationOrderPlaced, order.ID, recipient, notify.OrderPlacedMessage(order))
}

// EnqueueDigitalDelivery writes the customer's download message into tx. It
// reports false when the order has no digital items or no WhatsApp contact.
func (s *NotificationService) EnqueueDigitalDelivery(ctx context.Context, tx store.Repository, order *models.Order) (bool, error) {
	if !order.Items.HasDigital() || order.Customer.WhatsApp == "" {
		return false, nil
	}
	recipient := notify.Recipient(order.Customer.WhatsApp, s.cfg.CountryCode)
	err := s.enqueue(ctx, tx, models.NotificationDigitalDelivery, order.ID, recipient, notify.DigitalDeliveryMessage(order))
	return err == nil, err
}

// EnqueueLoginCode writes a one-time login code message to phone.
func (s *NotificationService) EnqueueLoginCode(ctx context.Context, tx store.Repository, phone, code string, ttl time.Duration) error {
	recipient := notify.Recipient(phone, s.cfg.CountryCode)
	return s.enqueue(ctx, tx, models.NotificationLoginCode, "", recipient, notify.LoginCodeMessage(code, ttl))
}

func (s *NotificationService) enqueue(ctx context.Context, tx store.Repository, kind models.NotificationKind, orderID, recipient, message string) error {
	now := s.now()
	n := &models.Notification{
		ID:            uuid.NewString(),
		Kind:          kind,
		Recipient:     recipient,
		Message:       message,
		DeepLink:      notify.DeepLink(recipient, message),
		Status:        models.NotificationStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	if orderID != "" {
		n.OrderID = &orderID
	}
	if err := tx.EnqueueNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", kind, err)
	}
	return nil
}

// DispatchDue sends every pending notification whose next attempt is due.
// Failures back off quadratically until MaxAttempts, then the row is FAILED.
func (s *NotificationService) DispatchDue(ctx context.Context) (DispatchStats, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.DispatchDue")
	defer span.End()

	var stats DispatchStats
	due, err := s.repo.ListDueNotifications(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list due notifications: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		n := &due[i]
		sendErr := s.dispatcher.Send(ctx, n)
		now := s.now()
		n.Attempts++

		switch {
		case sendErr == nil:
			n.Status = models.NotificationStatusSent
			n.SentAt = &now
			n.LastError = ""
			stats.Sent++
			util.NotificationsDispatchedTotal.WithLabelValues(string(n.Kind), "sent").Inc()
		case n.Attempts >= s.cfg.MaxAttempts:
			n.Status = models.NotificationStatusFailed
			n.LastError = sendErr.Error()
			stats.Failed++
			util.NotificationsDispatchedTotal.WithLabelValues(string(n.Kind), "failed").Inc()
			s.logger.Error("Notification gave up",
				zap.String("notification_id", n.ID),
				zap.Int("attempts", n.Attempts),
				zap.Error(sendErr))
		default:
			n.LastError = sendErr.Error()
			n.NextAttemptAt = now.Add(s.backoff(n.Attempts))
			stats.Retry++
			util.NotificationsDispatchedTotal.WithLabelValues(string(n.Kind), "retry").Inc()
			s.logger.Warn("Notification dispatch failed, will retry",
				zap.String("notification_id", n.ID),
				zap.Int("attempts", n.Attempts),
				zap.Time("next_attempt_at", n.NextAttemptAt),
				zap.Error(sendErr))
		}

		if err := s.repo.UpdateNotification(ctx, n); err != nil {
			return stats, fmt.Errorf("failed to record dispatch of %s: %w", n.ID, err)
		}
	}
	return stats, nil
}

func (s *NotificationService) backoff(attempts int) time.Duration {
	return s.cfg.BaseBackoff * time.Duration(attempts*attempts)
}

// Retry puts a FAILED notification back in the queue with a fresh budget.
func (s *NotificationService) Retry(ctx context.Context, id string) (*models.Notification, error) {
	ctx, span := util.StartSpan(ctx, "NotificationService.Retry")
	defer span.End()

	n, err := s.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != models.NotificationStatusFailed {
		return nil, fmt.Errorf("notification %s is %s: %w", id, n.Status, models.ErrInvalidTransition)
	}

	n.Status = models.NotificationStatusPending
	n.Attempts = 0
	n.NextAttemptAt = s.now()
	if err := s.repo.UpdateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to requeue notification: %w", err)
	}

	s.logger.Info("Notification requeued", zap.String("notification_id", id))
	return n, nil
}

// GetNotification retrieves one outbox row
func (s *NotificationService) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	return s.repo.GetNotificationByID(ctx, id)
}

// ListNotifications retrieves outbox rows for the admin
func (s *NotificationService) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, filter)
}
