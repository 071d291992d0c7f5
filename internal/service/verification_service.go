package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerificationService is the admin payment review queue
type VerificationService struct {
	repo          store.Repository
	uploader      Uploader
	publisher     Publisher
	notifications *NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService creates a new verification service
func NewVerificationService(repo store.Repository, uploader Uploader, publisher Publisher, notifications *NotificationService) *VerificationService {
	return &VerificationService{
		repo:          repo,
		uploader:      uploader,
		publisher:     publisher,
		notifications: notifications,
		logger:        util.GetLogger(),
		now:           time.Now,
	}
}

// SubscriptionRequest is a customer's claim of payment for a plan
type SubscriptionRequest struct {
	Name          string `json:"name" form:"name"`
	Phone         string `json:"phone" form:"phone"`
	Email         string `json:"email" form:"email"`
	PlanName      string `json:"plan_name" form:"plan_name"`
	TransactionID string `json:"transaction_id" form:"transaction_id"`
	AutoRenew     bool   `json:"auto_renew" form:"auto_renew"`
}

// Plans returns the subscription plan catalogue
func (s *VerificationService) Plans() []models.SubscriptionPlan {
	return models.SubscriptionPlans
}

// List returns pending requests, most recent first
func (s *VerificationService) List(ctx context.Context) ([]models.VerificationRequest, error) {
	return s.ListByStatus(ctx, models.VerificationStatusPending)
}

// ListByStatus returns requests in a status; empty means all
func (s *VerificationService) ListByStatus(ctx context.Context, status models.VerificationStatus) ([]models.VerificationRequest, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.ListByStatus")
	defer span.End()

	switch status {
	case "", models.VerificationStatusPending, models.VerificationStatusApproved, models.VerificationStatusRejected:
	default:
		return nil, models.NewValidationError("status", "must be PENDING, APPROVED or REJECTED")
	}
	return s.repo.ListVerifications(ctx, status)
}

// Get retrieves one request
func (s *VerificationService) Get(ctx context.Context, id string) (*models.VerificationRequest, error) {
	return s.repo.GetVerificationByID(ctx, id)
}

// Approve resolves a pending request and applies what it pays for: the
// order leaves Verification Pending, or the profile gains the plan. A request
// that is no longer pending yields ErrAlreadyResolved and changes nothing.
func (s *VerificationService) Approve(ctx context.Context, actor, id string) (*models.VerificationRequest, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.Approve")
	defer span.End()

	var req *models.VerificationRequest
	var order *models.Order
	var from models.OrderStatus

	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.LockVerification(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != models.VerificationStatusPending {
			return fmt.Errorf("request %s is %s: %w", id, req.Status, models.ErrAlreadyResolved)
		}

		now := s.now()
		switch req.Type {
		case models.VerificationTypeProduct:
			order, from, err = s.approveOrder(ctx, tx, req, actor, now)
		case models.VerificationTypeSubscription:
			err = s.activatePlan(ctx, tx, req, now)
		default:
			err = fmt.Errorf("unknown verification type %q", req.Type)
		}
		if err != nil {
			return err
		}

		return s.resolve(ctx, tx, req, models.VerificationStatusApproved, actor, "", now)
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyResolved) {
			util.VerificationsConflictTotal.Inc()
		}
		util.RecordError(span, err)
		return nil, err
	}

	util.VerificationsResolvedTotal.WithLabelValues(string(req.Type), string(req.Status)).Inc()
	s.logger.Info("Verification approved",
		zap.String("request_id", id),
		zap.String("type", string(req.Type)),
		zap.String("actor", actor))

	publishVerification(ctx, s.publisher, s.logger, models.EventTypeVerificationResolved, req, actor)
	if order != nil {
		util.OrderTransitionsTotal.WithLabelValues(string(order.Status)).Inc()
		publishStatusChanged(ctx, s.publisher, s.logger, order.ID, from, order.Status, actor)
	}
	return req, nil
}

func (s *VerificationService) approveOrder(ctx context.Context, tx store.Repository, req *models.VerificationRequest, actor string, now time.Time) (*models.Order, models.OrderStatus, error) {
	if req.OrderID == nil {
		return nil, "", fmt.Errorf("product request %s has no order", req.ID)
	}

	order, err := tx.LockOrder(ctx, *req.OrderID)
	if err != nil {
		return nil, "", err
	}
	from := order.Status
	if err := order.ApprovePayment(); err != nil {
		return nil, "", fmt.Errorf("order %s is %s: %w", order.ID, from, err)
	}

	order.UpdatedAt = now
	if err := tx.UpdateOrder(ctx, order); err != nil {
		return nil, "", fmt.Errorf("failed to update order: %w", err)
	}

	note := "payment verified"
	queued, err := s.notifications.EnqueueDigitalDelivery(ctx, tx, order)
	if err != nil {
		return nil, "", err
	}
	if queued {
		note += ", digital delivery queued"
	}
	if err := appendEvent(ctx, tx, order.ID, from, order.Status, actor, note, now); err != nil {
		return nil, "", err
	}
	return order, from, nil
}

func (s *VerificationService) activatePlan(ctx context.Context, tx store.Repository, req *models.VerificationRequest, now time.Time) error {
	plan, ok := models.FindPlan(req.PlanName)
	if !ok {
		return fmt.Errorf("request %s names unknown plan %q", req.ID, req.PlanName)
	}

	profile, err := tx.GetProfile(ctx, req.Phone)
	if errors.Is(err, models.ErrNotFound) {
		profile = &models.UserProfile{Phone: req.Phone, Name: req.Name, Email: req.Email, CreatedAt: now}
	} else if err != nil {
		return err
	}

	expiry := now.AddDate(0, 0, plan.DurationDays)
	profile.SubscriptionPlan = plan.Name
	profile.SubscriptionExpiry = &expiry
	profile.IsPremium = true
	profile.UpdatedAt = now

	if err := tx.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to activate plan: %w", err)
	}
	return nil
}

func (s *VerificationService) resolve(ctx context.Context, tx store.Repository, req *models.VerificationRequest, status models.VerificationStatus, actor, note string, at time.Time) error {
	ok, err := tx.ResolveVerification(ctx, req.ID, status, actor, note, at)
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}
	if !ok {
		return fmt.Errorf("request %s: %w", req.ID, models.ErrAlreadyResolved)
	}

	req.Status = status
	req.ResolvedBy = actor
	req.ResolutionNote = note
	req.ResolvedAt = &at
	return nil
}

// Reject resolves a pending request without touching its order or profile.
// The customer may resubmit payment afterwards.
func (s *VerificationService) Reject(ctx context.Context, actor, id, note string) (*models.VerificationRequest, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.Reject")
	defer span.End()

	var req *models.VerificationRequest
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		req, err = tx.LockVerification(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != models.VerificationStatusPending {
			return fmt.Errorf("request %s is %s: %w", id, req.Status, models.ErrAlreadyResolved)
		}
		return s.resolve(ctx, tx, req, models.VerificationStatusRejected, actor, strings.TrimSpace(note), s.now())
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyResolved) {
			util.VerificationsConflictTotal.Inc()
		}
		return nil, err
	}

	util.VerificationsResolvedTotal.WithLabelValues(string(req.Type), string(req.Status)).Inc()
	s.logger.Info("Verification rejected",
		zap.String("request_id", id),
		zap.String("actor", actor),
		zap.String("note", req.ResolutionNote))

	publishVerification(ctx, s.publisher, s.logger, models.EventTypeVerificationResolved, req, actor)
	return req, nil
}

// SubmitSubscription queues a plan purchase for review. A transaction id or
// a screenshot is required; one pending request per phone and plan.
func (s *VerificationService) SubmitSubscription(ctx context.Context, in SubscriptionRequest, shot *Screenshot) (*models.VerificationRequest, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.SubmitSubscription")
	defer span.End()

	plan, ok := models.FindPlan(in.PlanName)
	if !ok {
		return nil, models.NewValidationError("plan_name", "unknown plan")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	phone, err := models.NormalizePhone("phone", in.Phone)
	if err != nil {
		return nil, err
	}

	var txID string
	if strings.TrimSpace(in.TransactionID) != "" {
		if txID, err = models.NormalizeTransactionID(in.TransactionID); err != nil {
			return nil, err
		}
	}
	if txID == "" && shot.empty() {
		return nil, models.NewValidationError("transaction_id", "transaction id or screenshot is required")
	}

	pending, err := s.repo.HasPendingSubscription(ctx, phone, plan.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("plan %s for %s: %w", plan.Name, phone, models.ErrDuplicatePending)
	}

	req := &models.VerificationRequest{
		ID:            uuid.NewString(),
		Type:          models.VerificationTypeSubscription,
		Name:          name,
		Phone:         phone,
		Email:         strings.TrimSpace(in.Email),
		PlanName:      plan.Name,
		Price:         plan.Price,
		TransactionID: txID,
		AutoRenew:     in.AutoRenew,
		Status:        models.VerificationStatusPending,
		RequestDate:   s.now(),
	}
	if !shot.empty() {
		if req.ScreenshotURL, err = uploadScreenshot(ctx, s.uploader, shot); err != nil {
			return nil, err
		}
	}

	if err := s.repo.CreateVerification(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}

	util.VerificationsSubmittedTotal.WithLabelValues(string(req.Type)).Inc()
	s.logger.Info("Subscription submitted",
		zap.String("request_id", req.ID),
		zap.String("plan", plan.Name))

	publishVerification(ctx, s.publisher, s.logger, models.EventTypeVerificationCreated, req, "")
	return req, nil
}

// ResubmitPayment lets a customer retry proof of payment for a prepaid order
// that is still awaiting verification and has no pending request.
func (s *VerificationService) ResubmitPayment(ctx context.Context, orderID, phone, transactionID string, shot *Screenshot) (*models.VerificationRequest, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.ResubmitPayment")
	defer span.End()

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if models.Digits(phone) != order.CustomerPhone {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}
	if order.PaymentMethod != models.PaymentMethodPrepaid || order.Status != models.OrderStatusVerificationPending {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, models.ErrInvalidTransition)
	}

	txID, err := models.NormalizeTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if shot.empty() {
		return nil, models.NewValidationError("screenshot", "is required")
	}

	pending, err := s.repo.HasPendingVerification(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrDuplicatePending)
	}

	screenshotURL, err := uploadScreenshot(ctx, s.uploader, shot)
	if err != nil {
		return nil, err
	}

	req := &models.VerificationRequest{
		ID:            uuid.NewString(),
		Type:          models.VerificationTypeProduct,
		Name:          order.Customer.Name,
		Phone:         order.CustomerPhone,
		Email:         order.Customer.Email,
		OrderID:       &order.ID,
		Price:         order.Total,
		TransactionID: txID,
		ScreenshotURL: screenshotURL,
		Status:        models.VerificationStatusPending,
		RequestDate:   s.now(),
	}

	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		locked, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.Status != models.OrderStatusVerificationPending {
			return fmt.Errorf("order %s is %s: %w", orderID, locked.Status, models.ErrInvalidTransition)
		}
		locked.TransactionID = txID
		locked.ScreenshotURL = screenshotURL
		locked.UpdatedAt = req.RequestDate
		if err := tx.UpdateOrder(ctx, locked); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return tx.CreateVerification(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	util.VerificationsSubmittedTotal.WithLabelValues(string(req.Type)).Inc()
	s.logger.Info("Payment resubmitted",
		zap.String("order_id", orderID),
		zap.String("request_id", req.ID))

	publishVerification(ctx, s.publisher, s.logger, models.EventTypeVerificationCreated, req, "")
	return req, nil
}
