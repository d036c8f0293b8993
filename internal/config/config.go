package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAppName        = "PaisaBet"
	defaultAppEnv         = "development"
	defaultPort           = "4000"
	defaultMetricsPort    = "9100"
	defaultLogLevel       = "info"
	defaultCurrency       = "INR"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultLockWait       = 2 * time.Second
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	// MetricsPort serves /metrics on its own listener so the scrape path
	// stays off the public API.
	MetricsPort string
	LogLevel    string
	Currency string

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	JWTSecret     string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Payment provider (Cashfree-style) credentials and webhook signing key.
	ProviderBaseURL   string
	ProviderPayoutURL string
	ProviderAppID     string
	ProviderSecret    string
	WebhookSecret     string

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	LedgerLockWait time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		MetricsPort: getEnv("METRICS_PORT", defaultMetricsPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		Currency:    getEnv("CURRENCY", defaultCurrency),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		RefreshSecret: os.Getenv("REFRESH_SECRET"),
		AccessTTL:     defaultAccessTTL,
		RefreshTTL:    defaultRefreshTTL,

		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://sandbox.cashfree.com"),
		ProviderPayoutURL: getEnv("PROVIDER_PAYOUT_URL", "https://sandbox.payout-api.cashfree.com"),
		ProviderAppID:     os.Getenv("PROVIDER_APP_ID"),
		ProviderSecret:    os.Getenv("PROVIDER_SECRET_KEY"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),

		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		LedgerLockWait: defaultLockWait,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.LedgerLockWait, err = durationEnv("LEDGER_LOCK_WAIT", cfg.LedgerLockWait); err != nil {
		return Config{}, err
	}
	if cfg.AccessTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.JWTSecret
	}
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.WebhookSecret == "" {
			return Config{}, fmt.Errorf("WEBHOOK_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-like environment, where
// Postgres, Redis and provider credentials may be absent.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
