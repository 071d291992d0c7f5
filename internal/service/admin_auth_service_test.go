package service

import (
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) (*AdminAuthService, *fixedClock) {
	t.Helper()
	auth, err := NewAdminAuthService("s3cret", "", "signing-key", time.Hour)
	require.NoError(t, err)
	clock := newClock()
	auth.now = clock.now
	return auth, clock
}

func TestAdminLoginIssuesTokenNamingActor(t *testing.T) {
	auth, clock := newTestAuth(t)

	token, expiresAt, err := auth.Login(" ravi ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, clock.now().Add(time.Hour), expiresAt)

	actor, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ravi", actor)
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, _, err := auth.Login("ravi", "guess")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = auth.Login("", "s3cret")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	auth, clock := newTestAuth(t)

	token, _, err := auth.Login("ravi", "s3cret")
	require.NoError(t, err)

	clock.advance(2 * time.Hour)
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(clock.now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("other-key"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAdminAuthAcceptsPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	auth, err := NewAdminAuthService("", string(hash), "signing-key", time.Hour)
	require.NoError(t, err)

	_, _, err = auth.Login("ravi", "hashed-pass")
	assert.NoError(t, err)
}

func TestNewAdminAuthServiceRequiresSecrets(t *testing.T) {
	_, err := NewAdminAuthService("pw", "", "", time.Hour)
	assert.Error(t, err)

	_, err = NewAdminAuthService("", "", "key", time.Hour)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrInvalidCredentials))
}
