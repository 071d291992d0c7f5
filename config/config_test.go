package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_WHATSAPP_NUMBER", "98765 43210")
	t.Setenv("CHECKOUT_LOCK_TTL", "not-a-duration")
	t.Setenv("SHIPPING_FEE", "49.50")

	cfg := Load()

	assert.Equal(t, "98765 43210", cfg.Notify.AdminNumber)
	assert.Equal(t, 30*time.Second, cfg.Business.CheckoutLockTTL)
	assert.Equal(t, "49.5", cfg.Business.ShippingFee.String())
	assert.Equal(t, "91", cfg.Notify.CountryCode)
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresAdminNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		ok     bool
	}{
		{"unset", "", false},
		{"too short", "98765", false},
		{"ten digits", "9876543210", true},
		{"with country code", "+91 98765-43210", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Notify: NotifyConfig{AdminNumber: tt.number}}
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "ADMIN_WHATSAPP_NUMBER")
			}
		})
	}
}
