package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Repository is the persistence boundary used by the services. Operations
// that must touch several collections atomically run inside WithTx.
type Repository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	LockOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	AppendOrderEvent(ctx context.Context, event *models.OrderEvent) error
	ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error)
	DeleteOrdersByPhone(ctx context.Context, phone string) (int64, error)

	CreateVerification(ctx context.Context, req *models.VerificationRequest) error
	GetVerificationByID(ctx context.Context, id string) (*models.VerificationRequest, error)
	LockVerification(ctx context.Context, id string) (*models.VerificationRequest, error)
	ListVerifications(ctx context.Context, status models.VerificationStatus) ([]models.VerificationRequest, error)
	HasPendingVerification(ctx context.Context, orderID string) (bool, error)
	HasPendingSubscription(ctx context.Context, phone, planName string) (bool, error)
	ResolveVerification(ctx context.Context, id string, status models.VerificationStatus, actor, note string, at time.Time) (bool, error)
	DeleteSubscriptionVerificationsByPhone(ctx context.Context, phone string) (int64, error)

	CreateTicket(ctx context.Context, t *models.SupportTicket) error
	GetTicketByID(ctx context.Context, id string) (*models.SupportTicket, error)
	LockTicket(ctx context.Context, id string) (*models.SupportTicket, error)
	ListTickets(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus, at time.Time) error
	DeleteTicketsByPhone(ctx context.Context, phone string) (int64, error)

	GetProfile(ctx context.Context, phone string) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, p *models.UserProfile) error
	DeleteProfile(ctx context.Context, phone string) (bool, error)

	EnqueueNotification(ctx context.Context, n *models.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*models.Notification, error)
	UpdateNotification(ctx context.Context, n *models.Notification) error
	ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)

	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

type queryer interface {
	sqlx.ExtContext
}

// Store is the Postgres implementation of Repository.
type Store struct {
	db *sqlx.DB
	q  queryer
	tx *sqlx.Tx
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, q: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks database connectivity for the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn against a transaction-scoped Store. The transaction commits
// when fn returns nil and rolls back otherwise. Nested calls reuse the outer
// transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, s.q, dest, query, args...)
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, s.q, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// notFound maps sql.ErrNoRows onto models.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return err
}

func execOne(n int64, err error, what, id string) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
	}
	return nil
}
