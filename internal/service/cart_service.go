package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService manages carts held in the session store
type CartService struct {
	repo     store.Repository
	sessions SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewCartService creates a new cart service
func NewCartService(repo store.Repository, sessions SessionStore) *CartService {
	return &CartService{
		repo:     repo,
		sessions: sessions,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// CartItemRequest identifies a cart line and its quantity
type CartItemRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	Quantity      int    `json:"quantity"`
	SelectedColor string `json:"selected_color"`
	SelectedSize  string `json:"selected_size"`
}

// CreateCart starts an empty cart
func (s *CartService) CreateCart(ctx context.Context) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.CreateCart")
	defer span.End()

	cart := &models.Cart{ID: uuid.NewString(), Items: models.CartItems{}, UpdatedAt: s.now()}
	if err := s.sessions.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// GetCart retrieves a cart
func (s *CartService) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	return s.sessions.GetCart(ctx, cartID)
}

// AddItem adds a product selection, merging with an identical line
func (s *CartService) AddItem(ctx context.Context, cartID string, req CartItemRequest) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	cart, err := s.sessions.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Visible {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, models.ErrNotFound)
	}

	item := models.CartItem{
		Product:       *product,
		Quantity:      req.Quantity,
		SelectedColor: req.SelectedColor,
		SelectedSize:  req.SelectedSize,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	cart.Add(item)
	cart.UpdatedAt = s.now()
	if err := s.sessions.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	s.logger.Debug("Cart item added",
		zap.String("cart_id", cartID),
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity))
	return cart, nil
}

// SetQuantity changes a line's quantity; zero removes the line
func (s *CartService) SetQuantity(ctx context.Context, cartID string, req CartItemRequest) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetQuantity")
	defer span.End()

	if req.Quantity < 0 {
		return nil, models.NewValidationError("quantity", "must not be negative")
	}

	cart, err := s.sessions.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !cart.SetQuantity(req.ProductID, req.SelectedColor, req.SelectedSize, req.Quantity) {
		return nil, fmt.Errorf("cart line %s: %w", req.ProductID, models.ErrNotFound)
	}

	cart.UpdatedAt = s.now()
	if err := s.sessions.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// ClearCart discards a cart
func (s *CartService) ClearCart(ctx context.Context, cartID string) error {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	return s.sessions.DeleteCart(ctx, cartID)
}
