package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support string based YAML decoding.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration values expressed as Go-style strings or numbers interpreted as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err == nil {
			d.Duration = parsed
			return nil
		}
		secs, convErr := time.ParseDuration(fmt.Sprintf("%ss", raw))
		if convErr == nil {
			d.Duration = secs
			return nil
		}
		return fmt.Errorf("invalid duration value %q: %w", raw, err)
	default:
		return fmt.Errorf("unsupported duration node kind: %v", value.Kind)
	}
}

// MarshalYAML renders the duration as a string to keep config edits human-friendly.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds application level configuration aggregated from file and environment variables.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	Checkout       CheckoutConfig       `yaml:"checkout"`
	Stripe         StripeConfig         `yaml:"stripe"`
	Shipping       ShippingConfig       `yaml:"shipping"`
	Shopify        ShopifyConfig        `yaml:"shopify"`
	Storage        StorageConfig        `yaml:"storage"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address            string   `yaml:"address"`
	ReadTimeout        Duration `yaml:"read_timeout"`
	WriteTimeout       Duration `yaml:"write_timeout"`
	IdleTimeout        Duration `yaml:"idle_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AdminMetricsAPIKey string   `yaml:"admin_metrics_api_key"` // Optional API key protecting /metrics (empty disables protection)
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Format      string `yaml:"format"`      // json, console (default: json)
	Environment string `yaml:"environment"` // production, staging, development
}

// CheckoutConfig holds checkout session configuration.
type CheckoutConfig struct {
	// AllowedOrigins lists storefront domains permitted to create sessions.
	// Matching is host-based: scheme and port are ignored.
	AllowedOrigins []string `yaml:"allowed_origins"`
	SessionTTL     Duration `yaml:"session_ttl"` // How long a session remains valid (default: 30m)

	// Environment tags created payment intents and gates webhook order
	// dispatch: events carrying a different environment tag are skipped.
	Environment string `yaml:"environment"` // production, staging, development
}

// StripeConfig holds Stripe payment integration configuration.
type StripeConfig struct {
	SecretKey          string   `yaml:"secret_key"`
	WebhookSecret      string   `yaml:"webhook_secret"`
	PublishableKey     string   `yaml:"publishable_key"`
	Mode               string   `yaml:"mode"`                 // live | test
	AmountCeilingCents int64    `yaml:"amount_ceiling_cents"` // Maximum chargeable amount (default: 999999 = $9,999.99)
	WebhookTolerance   Duration `yaml:"webhook_tolerance"`    // Max age of a webhook timestamp before it is treated as a replay (default: 5m)
	PaymentMethods     []string `yaml:"payment_methods"`      // Allowed payment method types (default: ["card"])
}

// ShippingConfig holds shipping calculation policy.
// Zone and rate tables live in the shipping package; this config carries the
// storefront-specific policy knobs.
type ShippingConfig struct {
	DefaultWeightLbs        float64  `yaml:"default_weight_lbs"`        // Weight assumed for items without one (default: 0.5)
	FreeShippingMinCents    int64    `yaml:"free_shipping_min_cents"`   // Subtotal threshold for free standard shipping (default: 10000)
	RestrictedSurchargeCents int64   `yaml:"restricted_surcharge_cents"` // Flat special-handling surcharge per order (default: 500)
	RestrictedMarkers       []string `yaml:"restricted_markers"`        // product_type/tag substrings that flag special handling
	CaseMarkers             []string `yaml:"case_markers"`              // product_type/tag substrings for case-packed (ONEbox) goods
	CaseSize                int      `yaml:"case_size"`                 // Units per case for case-packed goods (default: 12)
}

// ShopifyConfig holds Shopify Admin API configuration for order creation.
type ShopifyConfig struct {
	ShopDomain  string      `yaml:"shop_domain"`  // e.g. "my-store.myshopify.com"
	APIKey      string      `yaml:"api_key"`
	APISecret   string      `yaml:"api_secret"`
	AccessToken string      `yaml:"access_token"` // Private app access token
	Timeout     Duration    `yaml:"timeout"`      // Per-call timeout for order creation (default: 10s)
	Retry       RetryConfig `yaml:"retry"`
}

// RetryConfig holds exponential backoff retry configuration for order dispatch.
type RetryConfig struct {
	Enabled         bool     `yaml:"enabled"`          // Enable retry with exponential backoff (default: true)
	MaxAttempts     int      `yaml:"max_attempts"`     // Maximum attempts (default: 5)
	InitialInterval Duration `yaml:"initial_interval"` // Initial backoff interval (default: 1s)
	MaxInterval     Duration `yaml:"max_interval"`     // Maximum backoff interval (default: 5m)
	Multiplier      float64  `yaml:"multiplier"`       // Backoff multiplier (default: 2.0)
}

// StorageConfig holds session/event store backend configuration.
type StorageConfig struct {
	Backend         string             `yaml:"backend"`          // "memory", "redis", "mongodb", or "postgres"
	RedisURL        string             `yaml:"redis_url"`        // Redis connection URL
	MongoDBURL      string             `yaml:"mongodb_url"`      // MongoDB connection string
	MongoDBDatabase string             `yaml:"mongodb_database"` // MongoDB database name
	PostgresURL     string             `yaml:"postgres_url"`     // PostgreSQL connection string
	PostgresPool    PostgresPoolConfig `yaml:"postgres_pool"`
	EventTTL        Duration           `yaml:"event_ttl"`        // How long processed webhook event IDs are remembered (default: 24h)
	CleanupInterval Duration           `yaml:"cleanup_interval"` // How often expired records are swept (default: 5m)
}

// PostgresPoolConfig holds PostgreSQL connection pool settings.
type PostgresPoolConfig struct {
	MaxOpenConns    int      `yaml:"max_open_conns"`    // Maximum number of open connections (default: 25)
	MaxIdleConns    int      `yaml:"max_idle_conns"`    // Maximum number of idle connections (default: 5)
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"` // Maximum lifetime of connections (default: 5m)
}

// RateLimitConfig holds rate limiting configuration.
// The global limiter is a coarse DoS backstop; the per-endpoint limiters
// implement the checkout-specific budgets.
type RateLimitConfig struct {
	GlobalEnabled bool     `yaml:"global_enabled"` // Enable global backstop limiting
	GlobalLimit   int      `yaml:"global_limit"`   // Requests allowed per global window
	GlobalWindow  Duration `yaml:"global_window"`  // Time window for global limit

	SessionCreate EndpointLimitConfig `yaml:"session_create"` // Per-IP session creation budget
	PaymentCreate EndpointLimitConfig `yaml:"payment_create"` // Per-session payment creation budget
}

// EndpointLimitConfig configures a single endpoint-class sliding window.
type EndpointLimitConfig struct {
	Enabled bool     `yaml:"enabled"`
	Limit   int      `yaml:"limit"`
	Window  Duration `yaml:"window"`
}

// CircuitBreakerConfig holds circuit breaker configuration for external services.
// Prevents cascading failures by failing fast when external services are degraded.
type CircuitBreakerConfig struct {
	Enabled    bool                 `yaml:"enabled"`     // Enable circuit breakers (default: true)
	StripeAPI  BreakerServiceConfig `yaml:"stripe_api"`  // Stripe API circuit breaker
	ShopifyAPI BreakerServiceConfig `yaml:"shopify_api"` // Shopify Admin API circuit breaker
}

// BreakerServiceConfig configures a circuit breaker for a specific external service.
type BreakerServiceConfig struct {
	MaxRequests         uint32   `yaml:"max_requests"`         // Max requests in half-open state (default: 3)
	Interval            Duration `yaml:"interval"`             // Stats reset interval in closed state (default: 60s)
	Timeout             Duration `yaml:"timeout"`              // Open state timeout before half-open (default: 30s)
	ConsecutiveFailures uint32   `yaml:"consecutive_failures"` // Consecutive failures to trip (default: 5)
	FailureRatio        float64  `yaml:"failure_ratio"`        // Failure ratio to trip 0.0-1.0 (default: 0.5)
	MinRequests         uint32   `yaml:"min_requests"`         // Minimum requests before checking ratio (default: 10)
}
