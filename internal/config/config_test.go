package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("FRONTEND_URL", "https://shop.example")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 999.0, cfg.FreeShippingThreshold)
	assert.Equal(t, 79.0, cfg.ShippingFlatFee)
	assert.Equal(t, 24*time.Hour, cfg.PendingOrderTTL)
	assert.Equal(t, 10*time.Minute, cfg.PendingSweepInterval)
	assert.Equal(t, []string{"https://shop.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.OAuth.Google.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SHIPPING_FLAT_FEE", "49")
	t.Setenv("PENDING_ORDER_TTL", "2h")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2,")
	t.Setenv("BASE_URL", "https://api.example")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 49.0, cfg.ShippingFlatFee)
	assert.Equal(t, 2*time.Hour, cfg.PendingOrderTTL)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ScyllaHosts)
	assert.True(t, cfg.OAuth.Google.Enabled())
	assert.Equal(t, "https://api.example/api/auth/google/callback", cfg.OAuth.Google.CallbackURL)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("PENDING_SWEEP_INTERVAL", "often")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PENDING_SWEEP_INTERVAL")
	})
}
