// Package config holds the storefront's runtime configuration, read from
// environment variables.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/quickplate/storefront/pkg/config"
	"github.com/quickplate/storefront/pkg/database"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Browser origins allowed to call the API. Empty allows any origin.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"" envSeparator:","`

	// Pricing. TaxRate is a decimal string; floats never carry money.
	Currency string `env:"CURRENCY" envDefault:"USD"`
	TaxRate  string `env:"TAX_RATE" envDefault:"0.13"`

	// Regional postal code format for the shipping form.
	PostalCodePattern string `env:"POSTAL_CODE_PATTERN" envDefault:"^[A-Za-z]\\d[A-Za-z] ?\\d[A-Za-z]\\d$"`

	// Redis (device carts)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Device cart TTL in hours (default: 30 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"720"`

	// Cart write-through timeout
	CartWriteTimeout time.Duration `env:"CART_WRITE_TIMEOUT" envDefault:"5s"`

	// Postgres (account carts)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka. Empty brokers disable event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Payment processor. "mock" runs in process; "rest" talks to
	// PaymentAPIURL.
	PaymentProcessor string        `env:"PAYMENT_PROCESSOR" envDefault:"mock"`
	PaymentAPIURL    string        `env:"PAYMENT_API_URL" envDefault:""`
	PaymentAPIKey    string        `env:"PAYMENT_API_KEY" envDefault:""`
	PaymentTimeout   time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"30s"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampler  float64 `env:"TRACING_SAMPLER_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative: %s", c.TaxRate)
	}
	if _, err := regexp.Compile(c.PostalCodePattern); err != nil {
		return fmt.Errorf("invalid postal code pattern: %w", err)
	}
	if c.PaymentProcessor != "mock" && c.PaymentProcessor != "rest" {
		return fmt.Errorf("unknown payment processor %q", c.PaymentProcessor)
	}
	if c.PaymentProcessor == "rest" && c.PaymentAPIURL == "" {
		return fmt.Errorf("PAYMENT_API_URL is required for the rest processor")
	}
	return nil
}

// TaxRateDecimal returns the parsed tax rate. Call only after Load.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.TaxRate)
}

// PostalFormat returns the compiled postal code pattern. Call only after Load.
func (c *Config) PostalFormat() *regexp.Regexp {
	return regexp.MustCompile(c.PostalCodePattern)
}

// PostgresConfig assembles the connection pool settings.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return &pg
}
