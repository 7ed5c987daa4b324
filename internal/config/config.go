package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                   int    `env:"PORT" envDefault:"8080"`
	DatabaseURL            string `env:"DATABASE_URL,required"`
	RedisURL               string `env:"REDIS_URL,required"`
	Timezone               string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`
	CommandSignatureSecret string `env:"COMMAND_SIGNATURE_SECRET"`
	GatewayToken           string `env:"GATEWAY_TOKEN"`
	AdminTokenHash         string `env:"ADMIN_TOKEN_HASH"`
	CommandRateLimitPerMin int    `env:"COMMAND_RATE_LIMIT_PER_MIN" envDefault:"30"`
	AutoMigrate            bool   `env:"AUTO_MIGRATE" envDefault:"false"`
	LogLevel               string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location resolves the civil timezone every date is parsed and rendered in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate(isProduction bool) error {
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <token>)")
		}
	}

	if c.CommandRateLimitPerMin < 0 {
		return fmt.Errorf("COMMAND_RATE_LIMIT_PER_MIN must not be negative")
	}

	if isProduction {
		if err := validateSecret("GATEWAY_TOKEN", c.GatewayToken); err != nil {
			return err
		}

		if c.CommandSignatureSecret == "" {
			log.Warn().Msg("COMMAND_SIGNATURE_SECRET is empty in production: command signature verification disabled")
		}
		if c.AdminTokenHash == "" {
			log.Warn().Msg("ADMIN_TOKEN_HASH is empty in production: export downloads are disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
