package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvAPIBaseURL     = "STOREFRONT_API_BASE_URL"
	EnvAPITimeout     = "STOREFRONT_API_TIMEOUT"
	EnvCatalogPage    = "STOREFRONT_CATALOG_PAGE_SIZE"
	EnvSellerPage     = "STOREFRONT_SELLER_PAGE_SIZE"
	EnvOrdersPage     = "STOREFRONT_ORDERS_PAGE_SIZE"
	EnvDiscountRate   = "STOREFRONT_DISCOUNT_RATE"
	EnvTaxRate        = "STOREFRONT_TAX_RATE"
	EnvSessionBackend = "STOREFRONT_SESSION_BACKEND"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvMetricsAddr    = "STOREFRONT_METRICS_ADDR"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Catalog CatalogConfig
	Orders  OrdersConfig
	Pricing PricingConfig
	Payment PaymentConfig
	Session SessionConfig
	Redis   RedisConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL   string        `envconfig:"STOREFRONT_API_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"STOREFRONT_API_USER_AGENT" default:"storefront-client/1.0"`
}

type CatalogConfig struct {
	PageSize       int `envconfig:"STOREFRONT_CATALOG_PAGE_SIZE" default:"8"`
	SellerPageSize int `envconfig:"STOREFRONT_SELLER_PAGE_SIZE" default:"10"`
}

type OrdersConfig struct {
	PageSize int `envconfig:"STOREFRONT_ORDERS_PAGE_SIZE" default:"5"`
}

// PricingConfig holds the display-only estimate rates applied to the cart.
type PricingConfig struct {
	DiscountRate decimal.Decimal `envconfig:"STOREFRONT_DISCOUNT_RATE" default:"0.10"`
	TaxRate      decimal.Decimal `envconfig:"STOREFRONT_TAX_RATE" default:"0.05"`
}

type PaymentConfig struct {
	ScriptURL    string        `envconfig:"STOREFRONT_PAYMENT_SCRIPT_URL" default:"https://checkout.razorpay.com/v1/checkout.js"`
	StoreName    string        `envconfig:"STOREFRONT_PAYMENT_STORE_NAME" default:"Storefront"`
	CallbackAddr string        `envconfig:"STOREFRONT_PAYMENT_CALLBACK_ADDR" default:"127.0.0.1:0"`
	Timeout      time.Duration `envconfig:"STOREFRONT_PAYMENT_TIMEOUT" default:"10m"`
	ThemeColor   string        `envconfig:"STOREFRONT_PAYMENT_THEME_COLOR" default:"#ff7f00"`
}

type SessionConfig struct {
	Backend string        `envconfig:"STOREFRONT_SESSION_BACKEND" default:"memory"`
	TTL     time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"24h"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"0"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type MetricsConfig struct {
	Addr string `envconfig:"STOREFRONT_METRICS_ADDR"`
}

// Enabled reports whether the metrics listener should be started.
func (m MetricsConfig) Enabled() bool {
	return strings.TrimSpace(m.Addr) != ""
}

func (c *Config) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url", EnvAPIBaseURL)
	}
	if c.Catalog.PageSize <= 0 || c.Catalog.SellerPageSize <= 0 || c.Orders.PageSize <= 0 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.Pricing.DiscountRate.IsNegative() || c.Pricing.TaxRate.IsNegative() {
		return fmt.Errorf("pricing rates must not be negative")
	}

	backend := strings.ToLower(strings.TrimSpace(c.Session.Backend))
	if backend == "" {
		backend = SessionBackendMemory
	}
	switch backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvRedisURL, EnvSessionBackend, SessionBackendRedis)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSessionBackend, SessionBackendMemory, SessionBackendRedis)
	}
	c.Session.Backend = backend
	return nil
}
