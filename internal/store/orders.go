package store

import (
	"context"

	"storefront-service/internal/models"
)

const orderColumns = `id, items, customer, customer_phone, subtotal, shipping_fee, total, status,
	payment_method, payment_status, transaction_id, screenshot_url, tracking_id, carrier,
	admin_contact, created_at, updated_at`

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := s.exec(ctx, query,
		order.ID, order.Items, order.Customer, order.CustomerPhone, order.Subtotal, order.ShippingFee,
		order.Total, order.Status, order.PaymentMethod, order.PaymentStatus, order.TransactionID,
		order.ScreenshotURL, order.TrackingID, order.Carrier, order.AdminContact,
		order.CreatedAt, order.UpdatedAt)
	return err
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// LockOrder retrieves an order and holds its row lock until the transaction ends
func (s *Store) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// UpdateOrder writes the mutable status and shipping fields
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders SET status = $2, payment_status = $3, transaction_id = $4, screenshot_url = $5,
			tracking_id = $6, carrier = $7, admin_contact = $8, updated_at = $9
		WHERE id = $1`

	n, err := s.exec(ctx, query,
		order.ID, order.Status, order.PaymentStatus, order.TransactionID, order.ScreenshotURL,
		order.TrackingID, order.Carrier, order.AdminContact, order.UpdatedAt)
	return execOne(n, err, "order", order.ID)
}

// ListOrders retrieves orders, newest first
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE ($1 = '' OR status = $1) AND ($2 = '' OR customer_phone = $2)" +
		" ORDER BY created_at DESC"

	orders := []models.Order{}
	err := s.selectAll(ctx, &orders, query, string(filter.Status), filter.Phone)
	return orders, err
}

// AppendOrderEvent records a status transition
func (s *Store) AppendOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	query := `
		INSERT INTO order_events (order_id, from_status, to_status, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.get(ctx, &event.ID, query,
		event.OrderID, event.FromStatus, event.ToStatus, event.Actor, event.Note, event.CreatedAt)
}

// ListOrderEvents retrieves the transition history of an order, oldest first
func (s *Store) ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	events := []models.OrderEvent{}
	err := s.selectAll(ctx, &events,
		"SELECT id, order_id, from_status, to_status, actor, note, created_at FROM order_events WHERE order_id = $1 ORDER BY id",
		orderID)
	return events, err
}

// DeleteOrdersByPhone removes every order placed with exactly this phone.
// Events, verification requests and notifications cascade.
func (s *Store) DeleteOrdersByPhone(ctx context.Context, phone string) (int64, error) {
	return s.exec(ctx, "DELETE FROM orders WHERE customer_phone = $1", phone)
}
