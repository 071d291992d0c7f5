package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/lib/pq"
)

const pendingOrderIndex = "uniq_verification_pending_order"

const verificationColumns = `id, type, name, phone, email, order_id, plan_name, price, transaction_id,
	screenshot_url, auto_renew, status, request_date, resolved_at, resolved_by, resolution_note`

// CreateVerification inserts a pending verification request. The partial
// unique index on order_id rejects a second pending request for one order.
func (s *Store) CreateVerification(ctx context.Context, req *models.VerificationRequest) error {
	query := `
		INSERT INTO verification_requests (` + verificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.exec(ctx, query,
		req.ID, req.Type, req.Name, req.Phone, req.Email, req.OrderID, req.PlanName, req.Price,
		req.TransactionID, req.ScreenshotURL, req.AutoRenew, req.Status, req.RequestDate,
		req.ResolvedAt, req.ResolvedBy, req.ResolutionNote)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == pendingOrderIndex {
		return fmt.Errorf("order %s: %w", *req.OrderID, models.ErrDuplicatePending)
	}
	return err
}

// GetVerificationByID retrieves a verification request
func (s *Store) GetVerificationByID(ctx context.Context, id string) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := s.get(ctx, &req, "SELECT "+verificationColumns+" FROM verification_requests WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "verification request", id)
	}
	return &req, nil
}

// LockVerification retrieves a verification request under a row lock
func (s *Store) LockVerification(ctx context.Context, id string) (*models.VerificationRequest, error) {
	var req models.VerificationRequest
	err := s.get(ctx, &req, "SELECT "+verificationColumns+" FROM verification_requests WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "verification request", id)
	}
	return &req, nil
}

// ListVerifications retrieves requests in a status, most recently submitted first
func (s *Store) ListVerifications(ctx context.Context, status models.VerificationStatus) ([]models.VerificationRequest, error) {
	reqs := []models.VerificationRequest{}
	err := s.selectAll(ctx, &reqs,
		"SELECT "+verificationColumns+" FROM verification_requests WHERE ($1 = '' OR status = $1) ORDER BY request_date DESC",
		string(status))
	return reqs, err
}

// HasPendingVerification reports whether an order already awaits review
func (s *Store) HasPendingVerification(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM verification_requests WHERE order_id = $1 AND status = 'PENDING')", orderID)
	return exists, err
}

// HasPendingSubscription reports whether a phone already awaits review for a plan
func (s *Store) HasPendingSubscription(ctx context.Context, phone, planName string) (bool, error) {
	var exists bool
	err := s.get(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM verification_requests
			WHERE type = 'SUBSCRIPTION' AND phone = $1 AND plan_name = $2 AND status = 'PENDING')`,
		phone, planName)
	return exists, err
}

// ResolveVerification moves a request out of PENDING. It reports false when
// the request was already resolved, which callers treat as a conflict.
func (s *Store) ResolveVerification(ctx context.Context, id string, status models.VerificationStatus, actor, note string, at time.Time) (bool, error) {
	n, err := s.exec(ctx,
		`UPDATE verification_requests SET status = $2, resolved_by = $3, resolution_note = $4, resolved_at = $5
		WHERE id = $1 AND status = 'PENDING'`,
		id, status, actor, note, at)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteSubscriptionVerificationsByPhone removes subscription claims made by a phone
func (s *Store) DeleteSubscriptionVerificationsByPhone(ctx context.Context, phone string) (int64, error) {
	return s.exec(ctx, "DELETE FROM verification_requests WHERE type = 'SUBSCRIPTION' AND phone = $1", phone)
}
