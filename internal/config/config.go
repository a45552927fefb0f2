package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port              int    `env:"PORT" envDefault:"8080"`
	BaseURL           string `env:"BASE_URL" envDefault:"http://localhost:8080"` // Prefix of every full short URL
	ShortURLLength    int    `env:"SHORT_URL_LENGTH" envDefault:"6"`
	DefaultExpiryDays int    `env:"DEFAULT_EXPIRY_DAYS" envDefault:"7"`
	MaxCodeAttempts   int    `env:"MAX_CODE_ATTEMPTS" envDefault:"10"` // Draws per generation before giving up
	CreateRetries     uint64 `env:"CREATE_RETRIES" envDefault:"3"`     // Regenerations after a write-time duplicate

	StorageType string        `env:"STORAGE_TYPE" envDefault:"memory"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"` // Optional; cache is disabled when empty
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	AnalyticsQueueSize int           `env:"ANALYTICS_QUEUE_SIZE" envDefault:"1024"`
	AnalyticsWorkers   int           `env:"ANALYTICS_WORKERS" envDefault:"4"`
	AnalyticsTimeout   time.Duration `env:"ANALYTICS_WRITE_TIMEOUT" envDefault:"2s"`

	RateLimitRPS           float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst         int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitShortenRPS    float64 `env:"RATE_LIMIT_SHORTEN_RPS" envDefault:"2"`
	RateLimitShortenBurst  int     `env:"RATE_LIMIT_SHORTEN_BURST" envDefault:"5"`
	RateLimitRedirectRPS   float64 `env:"RATE_LIMIT_REDIRECT_RPS" envDefault:"30"`
	RateLimitRedirectBurst int     `env:"RATE_LIMIT_REDIRECT_BURST" envDefault:"60"`

	JWTSecret         string `env:"JWT_SECRET"`
	JWTTTL            int    `env:"JWT_TTL_HOURS" envDefault:"24"`
	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"` // bcrypt hash

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	// Proxies whose X-Forwarded-For is honored for rate limiting; empty trusts none
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"` // Rotated with lumberjack when set
}

// Load reads an optional .env file, then the environment
func Load() (*Config, error) {
	// Missing .env is fine; variables may come from the environment
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the core cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL must not be empty"))
	}
	if c.ShortURLLength < 4 || c.ShortURLLength > 10 {
		errs = append(errs, fmt.Errorf("SHORT_URL_LENGTH must be between 4 and 10, got %d", c.ShortURLLength))
	}
	if c.DefaultExpiryDays < 1 || c.DefaultExpiryDays > 365 {
		errs = append(errs, fmt.Errorf("DEFAULT_EXPIRY_DAYS must be between 1 and 365, got %d", c.DefaultExpiryDays))
	}
	switch c.StorageType {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType))
	}
	if c.AnalyticsQueueSize < 1 || c.AnalyticsWorkers < 1 {
		errs = append(errs, errors.New("analytics queue size and workers must be positive"))
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether the admin endpoints can issue tokens
func (c *Config) AdminEnabled() bool {
	return c.JWTSecret != "" && c.AdminEmail != "" && c.AdminPasswordHash != ""
}
