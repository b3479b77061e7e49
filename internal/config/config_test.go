package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
		t.Setenv("JWT_SECRET", "0123456789abcdef0123")

		cfg, err := Parse()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
		assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
		assert.Equal(t, 100, cfg.RateLimitPerMinute)
		assert.Equal(t, time.Hour, cfg.SweepInterval)
		assert.Empty(t, cfg.RedisAddr)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
		t.Setenv("JWT_SECRET", "0123456789abcdef0123")
		t.Setenv("PORT", "9000")
		t.Setenv("TOKEN_TTL", "30m")
		t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
		t.Setenv("REDIS_ADDR", "localhost:6379")

		cfg, err := Parse()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
		t.Setenv("JWT_SECRET", "")

		_, err := Parse()
		assert.Error(t, err)
	})

	t.Run("short secret", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
		t.Setenv("JWT_SECRET", "short")

		_, err := Parse()
		assert.Error(t, err)
	})

	durations := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero token ttl", key: "TOKEN_TTL", value: "0s"},
		{name: "negative token ttl", key: "TOKEN_TTL", value: "-1h"},
		{name: "zero idempotency ttl", key: "IDEMPOTENCY_TTL", value: "0s"},
		{name: "negative idempotency ttl", key: "IDEMPOTENCY_TTL", value: "-5m"},
		{name: "zero sweep interval", key: "SWEEP_INTERVAL", value: "0s"},
		{name: "negative sweep interval", key: "SWEEP_INTERVAL", value: "-1s"},
	}
	for _, tt := range durations {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
			t.Setenv("JWT_SECRET", "0123456789abcdef0123")
			t.Setenv(tt.key, tt.value)

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
