package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// OrderService handles the order ledger and admin-driven status changes
type OrderService struct {
	repo          store.Repository
	publisher     Publisher
	notifications *NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repo store.Repository, publisher Publisher, notifications *NotificationService) *OrderService {
	return &OrderService{
		repo:          repo,
		publisher:     publisher,
		notifications: notifications,
		logger:        util.GetLogger(),
		now:           time.Now,
	}
}

// ShipRequest carries the shipping data an admin enters
type ShipRequest struct {
	TrackingID   string `json:"tracking_id"`
	Carrier      string `json:"carrier"`
	AdminContact string `json:"admin_contact"`
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.repo.GetOrderByID(ctx, id)
}

// TrackOrder is the customer lookup. The phone must match the order's;
// a mismatch is reported as not found.
func (s *OrderService) TrackOrder(ctx context.Context, id, phone string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.TrackOrder")
	defer span.End()

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.Digits(phone) != order.CustomerPhone {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}

	redacted := order.Redacted()
	return &redacted, nil
}

// ListOrders retrieves orders for the admin
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	filter.Phone = models.Digits(filter.Phone)
	return s.repo.ListOrders(ctx, filter)
}

// ListOrderEvents retrieves an order's audit trail
func (s *OrderService) ListOrderEvents(ctx context.Context, id string) ([]models.OrderEvent, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrderEvents")
	defer span.End()

	if _, err := s.repo.GetOrderByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListOrderEvents(ctx, id)
}

// ShipOrder moves a Processing order to Shipped with tracking data
func (s *OrderService) ShipOrder(ctx context.Context, actor, id string, req ShipRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ShipOrder")
	defer span.End()

	return s.transition(ctx, actor, id, func(tx store.Repository, order *models.Order) (string, error) {
		if err := order.Ship(req.TrackingID, req.Carrier, req.AdminContact); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s via %s", order.TrackingID, order.Carrier), nil
	})
}

// AdvanceOrder moves a shipped order one step towards Delivered. Delivering
// a COD order with digital items releases their links to the customer.
func (s *OrderService) AdvanceOrder(ctx context.Context, actor, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdvanceOrder")
	defer span.End()

	return s.transition(ctx, actor, id, func(tx store.Repository, order *models.Order) (string, error) {
		if err := order.Advance(); err != nil {
			return "", err
		}
		if order.Status != models.OrderStatusDelivered || order.PaymentMethod != models.PaymentMethodCOD {
			return "", nil
		}
		queued, err := s.notifications.EnqueueDigitalDelivery(ctx, tx, order)
		if err != nil {
			return "", err
		}
		if queued {
			return "cash collected, digital delivery queued", nil
		}
		return "cash collected", nil
	})
}

// transition locks the order, applies mutate and records the audit event in
// one transaction, then publishes the change.
func (s *OrderService) transition(ctx context.Context, actor, id string, mutate func(tx store.Repository, order *models.Order) (string, error)) (*models.Order, error) {
	var order *models.Order
	var from models.OrderStatus

	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		order, err = tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		from = order.Status

		note, err := mutate(tx, order)
		if err != nil {
			return err
		}

		order.UpdatedAt = s.now()
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return appendEvent(ctx, tx, order.ID, from, order.Status, actor, note, order.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	util.OrderTransitionsTotal.WithLabelValues(string(order.Status)).Inc()
	s.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
		zap.String("actor", actor))

	publishStatusChanged(ctx, s.publisher, s.logger, order.ID, from, order.Status, actor)
	return order, nil
}
