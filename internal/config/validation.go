package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// finalize applies defaults and validates the configuration.
func (c *Config) finalize() error {
	// Apply defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = c.Checkout.Environment
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Checkout.SessionTTL.Duration <= 0 {
		c.Checkout.SessionTTL = Duration{Duration: 30 * time.Minute}
	}
	if c.Checkout.Environment == "" {
		c.Checkout.Environment = "development"
	}
	if c.Stripe.Mode == "" {
		c.Stripe.Mode = "test"
	}
	if c.Stripe.AmountCeilingCents <= 0 {
		c.Stripe.AmountCeilingCents = 999999
	}
	if c.Stripe.WebhookTolerance.Duration <= 0 {
		c.Stripe.WebhookTolerance = Duration{Duration: 5 * time.Minute}
	}
	if len(c.Stripe.PaymentMethods) == 0 {
		c.Stripe.PaymentMethods = []string{"card"}
	}
	if c.Shipping.DefaultWeightLbs <= 0 {
		c.Shipping.DefaultWeightLbs = 0.5
	}
	if c.Shipping.CaseSize <= 0 {
		c.Shipping.CaseSize = 12
	}
	if c.Storage.EventTTL.Duration <= 0 {
		c.Storage.EventTTL = Duration{Duration: 24 * time.Hour}
	}
	if c.Storage.CleanupInterval.Duration <= 0 {
		c.Storage.CleanupInterval = Duration{Duration: 5 * time.Minute}
	}
	if c.Shopify.Retry.Multiplier < 1 {
		c.Shopify.Retry.Multiplier = 2.0
	}
	if c.Shopify.Retry.MaxAttempts <= 0 {
		c.Shopify.Retry.MaxAttempts = 5
	}

	// Validate
	if c.Stripe.Mode != "test" && c.Stripe.Mode != "live" {
		return fmt.Errorf("stripe.mode must be \"test\" or \"live\", got %q", c.Stripe.Mode)
	}
	switch c.Storage.Backend {
	case "", "memory", "redis", "mongodb", "postgres":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisURL == "" {
		return fmt.Errorf("storage.backend=redis requires storage.redis_url")
	}
	if c.Storage.Backend == "mongodb" && c.Storage.MongoDBURL == "" {
		return fmt.Errorf("storage.backend=mongodb requires storage.mongodb_url")
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresURL == "" {
		return fmt.Errorf("storage.backend=postgres requires storage.postgres_url")
	}

	// Normalize origin allow-list to bare lowercase hosts so the session
	// service can compare against either "https://shop.example.com" or
	// "shop.example.com" Origin headers.
	for i, origin := range c.Checkout.AllowedOrigins {
		c.Checkout.AllowedOrigins[i] = NormalizeOrigin(origin)
	}

	return nil
}

// NormalizeOrigin reduces an origin or URL to its lowercase host, dropping
// scheme, port, and any path component.
func NormalizeOrigin(origin string) string {
	origin = strings.TrimSpace(strings.ToLower(origin))
	if origin == "" {
		return ""
	}
	if strings.Contains(origin, "://") {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	// Bare host, possibly with port or trailing slash
	origin = strings.TrimSuffix(origin, "/")
	if idx := strings.IndexByte(origin, '/'); idx >= 0 {
		origin = origin[:idx]
	}
	if idx := strings.IndexByte(origin, ':'); idx >= 0 {
		origin = origin[:idx]
	}
	return origin
}
