package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("Location loads configured timezone", func(t *testing.T) {
		cfg := &Config{Timezone: "Asia/Tokyo"}
		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "Asia/Tokyo", loc.String())
	})

	t.Run("Location rejects unknown timezone", func(t *testing.T) {
		cfg := &Config{Timezone: "Mars/Olympus_Mons"}
		_, err := cfg.Location()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Timezone: "UTC", RedisURL: "rediss://localhost:6379"}
	}

	t.Run("accepts minimal development config", func(t *testing.T) {
		assert.NoError(t, base().Validate(false))
	})

	t.Run("rejects non-bcrypt admin token hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminTokenHash = "plain-text"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt admin token hash", func(t *testing.T) {
		cfg := base()
		cfg.AdminTokenHash = "$2a$12$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects negative rate limit", func(t *testing.T) {
		cfg := base()
		cfg.CommandRateLimitPerMin = -1
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("production requires strong gateway token", func(t *testing.T) {
		cfg := base()
		cfg.GatewayToken = "secret"
		assert.Error(t, cfg.Validate(true))

		cfg.GatewayToken = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "TIMEZONE",
		"COMMAND_RATE_LIMIT_PER_MIN", "AUTO_MIGRATE", "LOG_LEVEL",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("TIMEZONE")
		os.Unsetenv("COMMAND_RATE_LIMIT_PER_MIN")
		os.Unsetenv("AUTO_MIGRATE")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
		assert.Equal(t, 30, cfg.CommandRateLimitPerMin)
		assert.False(t, cfg.AutoMigrate)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("TIMEZONE", "Europe/Berlin")
		os.Setenv("AUTO_MIGRATE", "true")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "Europe/Berlin", cfg.Timezone)
		assert.True(t, cfg.AutoMigrate)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
