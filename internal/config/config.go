package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Storage drivers.
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Guest cart storage
	StorageDriver      string `env:"STORAGE_DRIVER" envDefault:"redis"`
	RedisAddr          string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass          string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"storefront.db"`
	GuestCartKeyPrefix string `env:"GUEST_CART_KEY_PREFIX" envDefault:"guest_cart"`

	// Guest cart TTL in hours (default: 30 days). Redis only.
	GuestCartTTL int `env:"GUEST_CART_TTL_HOURS" envDefault:"720"`

	// Upstream APIs
	CartAPIURL      string        `env:"CART_API_URL" envDefault:"http://localhost:8003"`
	CatalogAPIURL   string        `env:"CATALOG_API_URL" envDefault:"http://localhost:8001"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
	BreakerTimeout  time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`

	// Merge after login
	MergeDelay time.Duration `env:"MERGE_DELAY" envDefault:"1s"`

	// Kafka. Empty disables merge events.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// HTTP edge
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
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

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, vars); err != nil {
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

	switch c.StorageDriver {
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis storage driver")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite storage driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of redis, sqlite, memory; got %q", c.StorageDriver)
	}

	if c.GuestCartTTL < 0 {
		return fmt.Errorf("GUEST_CART_TTL_HOURS must not be negative")
	}
	if strings.Contains(c.GuestCartKeyPrefix, " ") {
		return fmt.Errorf("GUEST_CART_KEY_PREFIX must not contain spaces")
	}

	for name, raw := range map[string]string{"CART_API_URL": c.CartAPIURL, "CATALOG_API_URL": c.CatalogAPIURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.MergeDelay < 0 {
		return fmt.Errorf("MERGE_DELAY must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	return nil
}

// CartTTL returns the guest cart TTL.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.GuestCartTTL) * time.Hour
}
