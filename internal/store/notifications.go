package store

import (
	"context"
	"time"

	"storefront-service/internal/models"
)

const notificationColumns = `id, kind, order_id, recipient, message, deep_link, status, attempts,
	last_error, next_attempt_at, created_at, sent_at`

// EnqueueNotification writes an outbox row
func (s *Store) EnqueueNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.exec(ctx,
		"INSERT INTO notifications ("+notificationColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		n.ID, n.Kind, n.OrderID, n.Recipient, n.Message, n.DeepLink, n.Status, n.Attempts,
		n.LastError, n.NextAttemptAt, n.CreatedAt, n.SentAt)
	return err
}

// GetNotificationByID retrieves an outbox row
func (s *Store) GetNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.get(ctx, &n, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id); err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

// UpdateNotification writes delivery progress
func (s *Store) UpdateNotification(ctx context.Context, n *models.Notification) error {
	rows, err := s.exec(ctx,
		`UPDATE notifications SET status = $2, attempts = $3, last_error = $4, next_attempt_at = $5, sent_at = $6
		WHERE id = $1`,
		n.ID, n.Status, n.Attempts, n.LastError, n.NextAttemptAt, n.SentAt)
	return execOne(rows, err, "notification", n.ID)
}

// ListDueNotifications retrieves pending rows whose next attempt is due, oldest first
func (s *Store) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.selectAll(ctx, &out,
		"SELECT "+notificationColumns+` FROM notifications
		WHERE status = 'PENDING' AND next_attempt_at <= $1
		ORDER BY next_attempt_at LIMIT $2`,
		now, limit)
	return out, err
}

// ListNotifications retrieves outbox rows, newest first
func (s *Store) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.selectAll(ctx, &out,
		"SELECT "+notificationColumns+` FROM notifications
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR order_id = $2)
		ORDER BY created_at DESC`,
		string(filter.Status), filter.OrderID)
	return out, err
}
