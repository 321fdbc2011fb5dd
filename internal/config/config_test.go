package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_MODE", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "@every 5m", cfg.Reconcile.Schedule)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.MinAge)
	assert.Equal(t, time.Hour, cfg.Reconcile.RollbackAfter)
	assert.Equal(t, 5*time.Second, cfg.Reconcile.RetryTimeout)
	assert.Equal(t, 50, cfg.Events.BufferSize)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, 30, cfg.WriteRateLimit)
}

func TestLoadUsesModePrefix(t *testing.T) {
	t.Setenv("APP_MODE", "prod")
	t.Setenv("PROD_DB_HOST", "db.internal")
	t.Setenv("DEV_DB_HOST", "localhost-dev")
	t.Setenv("PROD_JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("mode", func(t *testing.T) {
		t.Setenv("APP_MODE", "staging")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("duration", func(t *testing.T) {
		t.Setenv("APP_MODE", "dev")
		t.Setenv("RECONCILE_MIN_AGE", "soon")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("rate limit", func(t *testing.T) {
		t.Setenv("APP_MODE", "dev")
		t.Setenv("WRITE_RATE_LIMIT", "0")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("buffer", func(t *testing.T) {
		t.Setenv("APP_MODE", "dev")
		t.Setenv("EVENT_BUFFER", "0")
		_, err := Load()
		require.Error(t, err)
	})
}
