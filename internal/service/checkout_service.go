package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutConfig tunes checkout sessions.
type CheckoutConfig struct {
	ShippingFee    decimal.Decimal
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
	Payment        PaymentConfig
}

// CheckoutService drives a cart through DETAILS, METHOD and PAYMENT and
// commits the resulting order.
type CheckoutService struct {
	repo          store.Repository
	sessions      SessionStore
	uploader      Uploader
	publisher     Publisher
	notifications *NotificationService
	cfg           CheckoutConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	repo store.Repository,
	sessions SessionStore,
	uploader Uploader,
	publisher Publisher,
	notifications *NotificationService,
	cfg CheckoutConfig,
) *CheckoutService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &CheckoutService{
		repo:          repo,
		sessions:      sessions,
		uploader:      uploader,
		publisher:     publisher,
		notifications: notifications,
		cfg:           cfg,
		logger:        util.GetLogger(),
		now:           time.Now,
	}
}

// CheckoutResult is the session after a step and, once placed, its order.
type CheckoutResult struct {
	Session *models.CheckoutSession `json:"session"`
	Order   *models.Order           `json:"order,omitempty"`
}

// StartCheckout snapshots a cart and reserves the order id.
func (s *CheckoutService) StartCheckout(ctx context.Context, cartID string) (*models.CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.StartCheckout")
	defer span.End()

	cart, err := s.sessions.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	items, err := s.refreshItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	session := &models.CheckoutSession{
		ID:        uuid.NewString(),
		OrderID:   models.NewOrderID(uuid.NewString()),
		CartID:    cart.ID,
		Items:     items,
		Phase:     models.CheckoutPhaseDetails,
		CreatedAt: s.now(),
	}
	s.computeTotals(session)

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhaseDetails), "started").Inc()
	s.logger.Info("Checkout started",
		zap.String("session_id", session.ID),
		zap.String("order_id", session.OrderID),
		zap.Int("items", len(items)))
	return session, nil
}

// refreshItems re-reads every product so the order snapshot carries current
// prices and the line selections are still valid.
func (s *CheckoutService) refreshItems(ctx context.Context, items models.CartItems) (models.CartItems, error) {
	out := make(models.CartItems, 0, len(items))
	for _, it := range items {
		p, err := s.repo.GetProductByID(ctx, it.Product.ID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && !p.Visible) {
			return nil, models.NewValidationError("items", fmt.Sprintf("%s is no longer available", it.Product.Name))
		}
		if err != nil {
			return nil, err
		}
		it.Product = *p
		if err := it.Validate(); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *CheckoutService) computeTotals(session *models.CheckoutSession) {
	session.Subtotal = session.Items.Subtotal()
	session.ShippingFee = decimal.Zero
	if session.Items.HasPhysical() {
		session.ShippingFee = s.cfg.ShippingFee
	}
	session.Total = session.Subtotal.Add(session.ShippingFee)
}

// GetSession retrieves checkout state
func (s *CheckoutService) GetSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// SubmitDetails validates customer details against what the cart needs.
// Purely digital carts go straight to PAYMENT as PREPAID. Details may be
// corrected until the order is placed.
func (s *CheckoutService) SubmitDetails(ctx context.Context, sessionID string, details models.CustomerDetails) (*models.CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.SubmitDetails")
	defer span.End()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Phase == models.CheckoutPhaseDone {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.Phase, models.ErrInvalidPhase)
	}

	normalized, err := details.Normalize(session.Items.HasPhysical(), session.Items.HasDigital())
	if err != nil {
		util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhaseDetails), "invalid").Inc()
		return nil, err
	}
	session.Customer = &normalized

	if session.Items.HasPhysical() {
		session.Phase = models.CheckoutPhaseMethod
		session.PaymentMethod = ""
		session.Reference = nil
	} else {
		session.Phase = models.CheckoutPhasePayment
		session.PaymentMethod = models.PaymentMethodPrepaid
		session.Reference = s.cfg.Payment.PaymentReference(session.Total, session.OrderID)
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhaseDetails), "ok").Inc()
	return session, nil
}

// ChooseMethod records the payment method. COD places the order at once;
// PREPAID moves on to PAYMENT with a payment reference.
func (s *CheckoutService) ChooseMethod(ctx context.Context, sessionID string, method models.PaymentMethod) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.ChooseMethod")
	defer span.End()

	if !method.Valid() {
		return nil, models.NewValidationError("payment_method", "must be PREPAID or COD")
	}

	return s.guarded(ctx, sessionID, func(session *models.CheckoutSession) (*CheckoutResult, error) {
		if session.Phase != models.CheckoutPhaseMethod {
			return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.Phase, models.ErrInvalidPhase)
		}

		session.PaymentMethod = method
		if method == models.PaymentMethodPrepaid {
			session.Phase = models.CheckoutPhasePayment
			session.Reference = s.cfg.Payment.PaymentReference(session.Total, session.OrderID)
			if err := s.sessions.SaveSession(ctx, session); err != nil {
				return nil, fmt.Errorf("failed to save checkout session: %w", err)
			}
			util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhaseMethod), "prepaid").Inc()
			return &CheckoutResult{Session: session}, nil
		}

		order := s.newOrder(session)
		order.Status = models.OrderStatusProcessing
		order.PaymentStatus = models.PaymentStatusPending

		err := s.repo.WithTx(ctx, func(tx store.Repository) error {
			if err := tx.CreateOrder(ctx, order); err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}
			if err := appendEvent(ctx, tx, order.ID, "", order.Status, "customer", "cash on delivery", order.CreatedAt); err != nil {
				return err
			}
			return s.notifications.EnqueueOrderPlaced(ctx, tx, order)
		})
		if err != nil {
			util.RecordError(span, err)
			return nil, err
		}

		return s.complete(ctx, session, order)
	})
}

// SubmitPayment uploads the screenshot, then atomically commits the order,
// its verification request and the admin alert.
func (s *CheckoutService) SubmitPayment(ctx context.Context, sessionID, transactionID string, shot *Screenshot) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.SubmitPayment")
	defer span.End()

	return s.guarded(ctx, sessionID, func(session *models.CheckoutSession) (*CheckoutResult, error) {
		if session.Phase != models.CheckoutPhasePayment {
			return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.Phase, models.ErrInvalidPhase)
		}

		txID, err := models.NormalizeTransactionID(transactionID)
		if err != nil {
			util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhasePayment), "invalid").Inc()
			return nil, err
		}
		if shot.empty() {
			return nil, models.NewValidationError("screenshot", "is required")
		}

		screenshotURL, err := uploadScreenshot(ctx, s.uploader, shot)
		if err != nil {
			util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhasePayment), "upload_failed").Inc()
			return nil, err
		}

		order := s.newOrder(session)
		order.Status = models.OrderStatusVerificationPending
		order.PaymentStatus = models.PaymentStatusVerificationPending
		order.TransactionID = txID
		order.ScreenshotURL = screenshotURL

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
			RequestDate:   order.CreatedAt,
		}

		err = s.repo.WithTx(ctx, func(tx store.Repository) error {
			if err := tx.CreateOrder(ctx, order); err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}
			if err := tx.CreateVerification(ctx, req); err != nil {
				return fmt.Errorf("failed to create verification request: %w", err)
			}
			if err := appendEvent(ctx, tx, order.ID, "", order.Status, "customer", "payment submitted", order.CreatedAt); err != nil {
				return err
			}
			return s.notifications.EnqueueOrderPlaced(ctx, tx, order)
		})
		if err != nil {
			util.RecordError(span, err)
			return nil, err
		}

		util.VerificationsSubmittedTotal.WithLabelValues(string(req.Type)).Inc()
		publishVerification(ctx, s.publisher, s.logger, models.EventTypeVerificationCreated, req, "")
		return s.complete(ctx, session, order)
	})
}

// guarded serialises submits on one session and replays the placed order
// for a session that already completed.
func (s *CheckoutService) guarded(ctx context.Context, sessionID string, fn func(*models.CheckoutSession) (*CheckoutResult, error)) (*CheckoutResult, error) {
	if res, ok, err := s.replay(ctx, sessionID); err != nil || ok {
		return res, err
	}

	lockKey := "checkout:" + sessionID
	acquired, err := s.sessions.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !acquired {
		return nil, models.ErrConcurrentRequest
	}
	defer func() {
		if err := s.sessions.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Error("Failed to release checkout lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()

	// A submit that held the lock may have finished meanwhile.
	if res, ok, err := s.replay(ctx, sessionID); err != nil || ok {
		return res, err
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// The order row is the source of truth: the Redis writes after commit
	// may have been lost.
	order, err := s.repo.GetOrderByID(ctx, session.OrderID)
	switch {
	case err == nil:
		s.logger.Warn("Checkout order already committed, replaying",
			zap.String("session_id", sessionID),
			zap.String("order_id", order.ID))
		if session.Phase != models.CheckoutPhaseDone {
			s.markDone(ctx, session, order)
		}
		return &CheckoutResult{Session: session, Order: order}, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to check for placed order: %w", err)
	}
	if session.Phase == models.CheckoutPhaseDone {
		return nil, fmt.Errorf("order %s: %w", session.OrderID, models.ErrNotFound)
	}
	return fn(session)
}

func (s *CheckoutService) replay(ctx context.Context, sessionID string) (*CheckoutResult, bool, error) {
	orderID, ok, err := s.sessions.GetIdempotencyKey(ctx, "checkout:"+sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		session = &models.CheckoutSession{ID: sessionID, OrderID: orderID, Phase: models.CheckoutPhaseDone}
	}

	s.logger.Info("Duplicate checkout submit detected",
		zap.String("session_id", sessionID),
		zap.String("order_id", orderID))
	return &CheckoutResult{Session: session, Order: order}, true, nil
}

func (s *CheckoutService) newOrder(session *models.CheckoutSession) *models.Order {
	now := s.now()
	return &models.Order{
		ID:            session.OrderID,
		Items:         session.Items,
		Customer:      *session.Customer,
		CustomerPhone: session.Customer.Phone,
		Subtotal:      session.Subtotal,
		ShippingFee:   session.ShippingFee,
		Total:         session.Total,
		PaymentMethod: session.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// markDone records a placed order against its session and clears the cart.
func (s *CheckoutService) markDone(ctx context.Context, session *models.CheckoutSession, order *models.Order) {
	session.Phase = models.CheckoutPhaseDone

	if err := s.sessions.SetIdempotencyKey(ctx, "checkout:"+session.ID, order.ID, s.cfg.IdempotencyTTL); err != nil {
		s.logger.Error("Failed to store checkout idempotency key", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.logger.Error("Failed to save completed session", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := s.sessions.DeleteCart(ctx, session.CartID); err != nil {
		s.logger.Error("Failed to clear cart", zap.String("cart_id", session.CartID), zap.Error(err))
	}
}

// complete runs the post-commit steps. Their failures are logged only; the
// order already exists.
func (s *CheckoutService) complete(ctx context.Context, session *models.CheckoutSession, order *models.Order) (*CheckoutResult, error) {
	s.markDone(ctx, session, order)

	util.OrdersPlacedTotal.WithLabelValues(string(order.PaymentMethod)).Inc()
	util.CheckoutStepsTotal.WithLabelValues(string(models.CheckoutPhaseDone), string(order.PaymentMethod)).Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.Total.StringFixed(2)))

	event := &models.OrderPlacedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderPlaced, s.now()),
		OrderID:       order.ID,
		CustomerName:  order.Customer.Name,
		Total:         order.Total.StringFixed(2),
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		ItemCount:     len(order.Items),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return &CheckoutResult{Session: session, Order: order}, nil
}
