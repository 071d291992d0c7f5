package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthService checks the shared admin password and issues tokens that
// name the admin acting.
type AdminAuthService struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewAdminAuthService accepts either a bcrypt hash or a plain password,
// which is hashed once at startup.
func NewAdminAuthService(password, passwordHash, secret string, ttl time.Duration) (*AdminAuthService, error) {
	if secret == "" {
		return nil, errors.New("admin jwt secret is required")
	}

	hash := []byte(passwordHash)
	if len(hash) == 0 {
		if password == "" {
			return nil, errors.New("admin password or password hash is required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	}

	return &AdminAuthService{
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          ttl,
		logger:       util.GetLogger(),
		now:          time.Now,
	}, nil
}

// Login verifies the password and returns a signed token for name
func (s *AdminAuthService) Login(name, password string) (string, time.Time, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", time.Time{}, models.NewValidationError("name", "is required")
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn("Admin login failed", zap.String("name", name))
		return "", time.Time{}, models.ErrInvalidCredentials
	}

	signed, expiresAt, err := signToken(s.secret, audienceAdmin, name, s.now(), s.ttl)
	if err != nil {
		return "", time.Time{}, err
	}

	s.logger.Info("Admin login successful", zap.String("name", name))
	return signed, expiresAt, nil
}

// ValidateToken returns the admin name carried by a valid token
func (s *AdminAuthService) ValidateToken(tokenString string) (string, error) {
	return parseToken(s.secret, audienceAdmin, tokenString, s.now)
}
