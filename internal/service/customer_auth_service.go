package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CustomerAuthConfig tunes one-time code login.
type CustomerAuthConfig struct {
	Secret         string
	TokenTTL       time.Duration
	CodeTTL        time.Duration
	ResendInterval time.Duration
	MaxAttempts    int
}

// CustomerAuthService proves phone ownership with a one-time code sent over
// WhatsApp and issues tokens scoped to that phone.
type CustomerAuthService struct {
	repo          store.Repository
	codes         CodeStore
	notifications *NotificationService
	secret        []byte
	cfg           CustomerAuthConfig
	logger        *zap.Logger
	now           func() time.Time
	newCode       func() (string, error)
}

// NewCustomerAuthService creates a new customer auth service
func NewCustomerAuthService(repo store.Repository, codes CodeStore, notifications *NotificationService, cfg CustomerAuthConfig) (*CustomerAuthService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("customer jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.ResendInterval <= 0 {
		cfg.ResendInterval = time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &CustomerAuthService{
		repo:          repo,
		codes:         codes,
		notifications: notifications,
		secret:        []byte(cfg.Secret),
		cfg:           cfg,
		logger:        util.GetLogger(),
		now:           time.Now,
		newCode:       randomCode,
	}, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestCode sends a fresh login code to phone. A new code replaces the
// previous one; requests closer together than the resend interval are refused.
func (s *CustomerAuthService) RequestCode(ctx context.Context, phone string) error {
	ctx, span := util.StartSpan(ctx, "CustomerAuthService.RequestCode")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return err
	}

	acquired, err := s.codes.AcquireLock(ctx, "login-code:"+normalized, s.cfg.ResendInterval)
	if err != nil {
		return fmt.Errorf("failed to check resend interval: %w", err)
	}
	if !acquired {
		return models.ErrTooManyRequests
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("failed to generate login code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash login code: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := s.notifications.EnqueueLoginCode(ctx, tx, normalized, code, s.cfg.CodeTTL); err != nil {
			return err
		}
		return s.codes.SaveLoginCode(ctx, normalized, string(hash), s.cfg.CodeTTL)
	})
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	s.logger.Info("Login code issued", zap.String("phone_suffix", normalized[len(normalized)-4:]))
	return nil
}

// VerifyCode exchanges a valid code for a token naming phone. A code is
// single use and dies after MaxAttempts wrong guesses.
func (s *CustomerAuthService) VerifyCode(ctx context.Context, phone, code string) (string, time.Time, error) {
	ctx, span := util.StartSpan(ctx, "CustomerAuthService.VerifyCode")
	defer span.End()

	normalized, err := models.NormalizePhone("phone", phone)
	if err != nil {
		return "", time.Time{}, err
	}

	hash, ok, err := s.codes.GetLoginCode(ctx, normalized)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load login code: %w", err)
	}
	if !ok {
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	attempts, err := s.codes.IncrLoginAttempts(ctx, normalized, s.cfg.CodeTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to count login attempt: %w", err)
	}
	if attempts > int64(s.cfg.MaxAttempts) {
		if err := s.codes.DeleteLoginCode(ctx, normalized); err != nil {
			s.logger.Error("Failed to discard exhausted login code", zap.Error(err))
		}
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(models.Digits(code))); err != nil {
		s.logger.Warn("Login code mismatch", zap.Int64("attempt", attempts))
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	if err := s.codes.DeleteLoginCode(ctx, normalized); err != nil {
		s.logger.Error("Failed to discard used login code", zap.Error(err))
	}
	return s.IssueToken(normalized)
}

// IssueToken signs a token for a phone whose ownership is already proven.
func (s *CustomerAuthService) IssueToken(phone string) (string, time.Time, error) {
	return signToken(s.secret, audienceCustomer, phone, s.now(), s.cfg.TokenTTL)
}

// ValidateToken returns the phone carried by a valid customer token
func (s *CustomerAuthService) ValidateToken(tokenString string) (string, error) {
	return parseToken(s.secret, audienceCustomer, tokenString, s.now)
}
