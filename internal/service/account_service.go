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

	"go.uber.org/zap"
)

// AccountService handles user profiles and account deletion
type AccountService struct {
	repo   store.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(repo store.Repository) *AccountService {
	return &AccountService{
		repo:   repo,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// ProfileUpdate carries the fields a user may edit
type ProfileUpdate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	WhatsApp   string `json:"whatsapp"`
	BirthDate  string `json:"birth_date"`
	BirthTime  string `json:"birth_time"`
	BirthPlace string `json:"birth_place"`
}

// ProfileView is a profile with its derived premium state
type ProfileView struct {
	*models.UserProfile
	PremiumActive bool `json:"premium_active"`
}

func (s *AccountService) view(p *models.UserProfile) *ProfileView {
	return &ProfileView{UserProfile: p, PremiumActive: p.IsPremiumActive(s.now())}
}

// GetProfile retrieves a profile by phone
func (s *AccountService) GetProfile(ctx context.Context, phone string) (*ProfileView, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.GetProfile")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetProfile(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// UpdateProfile creates or edits a profile. Subscription fields are kept.
func (s *AccountService) UpdateProfile(ctx context.Context, phone string, in ProfileUpdate) (*ProfileView, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.UpdateProfile")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}
	var whatsapp string
	if strings.TrimSpace(in.WhatsApp) != "" {
		if whatsapp, err = models.NormalizePhone("whatsapp", in.WhatsApp); err != nil {
			return nil, err
		}
	}

	now := s.now()
	profile, err := s.repo.GetProfile(ctx, normalized)
	if errors.Is(err, models.ErrNotFound) {
		profile = &models.UserProfile{Phone: normalized, CreatedAt: now}
	} else if err != nil {
		return nil, err
	}

	profile.Name = name
	profile.Email = strings.TrimSpace(in.Email)
	profile.WhatsApp = whatsapp
	profile.BirthDate = strings.TrimSpace(in.BirthDate)
	profile.BirthTime = strings.TrimSpace(in.BirthTime)
	profile.BirthPlace = strings.TrimSpace(in.BirthPlace)
	profile.UpdatedAt = now

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return s.view(profile), nil
}

// DeleteAccount removes a profile and every order, ticket and subscription
// request whose phone equals the normalised phone exactly. confirmPhone
// must repeat the phone.
func (s *AccountService) DeleteAccount(ctx context.Context, phone, confirmPhone string) (*models.DeletionResult, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.DeleteAccount")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return nil, err
	}
	if models.Digits(confirmPhone) != normalized {
		return nil, models.ErrConfirmationRequired
	}

	result := &models.DeletionResult{}
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		if result.Orders, err = tx.DeleteOrdersByPhone(ctx, normalized); err != nil {
			return fmt.Errorf("failed to delete orders: %w", err)
		}
		if result.Tickets, err = tx.DeleteTicketsByPhone(ctx, normalized); err != nil {
			return fmt.Errorf("failed to delete tickets: %w", err)
		}
		if result.Verifications, err = tx.DeleteSubscriptionVerificationsByPhone(ctx, normalized); err != nil {
			return fmt.Errorf("failed to delete subscription requests: %w", err)
		}
		if result.Profile, err = tx.DeleteProfile(ctx, normalized); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	util.AccountsDeletedTotal.Inc()
	s.logger.Info("Account deleted",
		zap.Int64("orders", result.Orders),
		zap.Int64("tickets", result.Tickets),
		zap.Int64("verifications", result.Verifications),
		zap.Bool("profile", result.Profile))
	return result, nil
}

// PremiumDelivery returns a digital product's link to an active subscriber
func (s *AccountService) PremiumDelivery(ctx context.Context, phone, productID string) (string, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.PremiumDelivery")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return "", err
	}

	profile, err := s.repo.GetProfile(ctx, normalized)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.ErrPremiumRequired
	}
	if err != nil {
		return "", err
	}
	if !profile.IsPremiumActive(s.now()) {
		return "", models.ErrPremiumRequired
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return "", err
	}
	if !product.Visible || !product.IsDigital() {
		return "", fmt.Errorf("digital product %s: %w", productID, models.ErrNotFound)
	}
	return product.DeliveryLink, nil
}
