package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over YAML configuration.
// All env vars use CHECKOUT_ prefix for namespace isolation.
func (c *Config) applyEnvOverrides() {
	// Server config
	setIfEnv(&c.Server.Address, "CHECKOUT_SERVER_ADDRESS")
	setIfEnv(&c.Server.AdminMetricsAPIKey, "CHECKOUT_ADMIN_METRICS_API_KEY")
	setListIfEnv(&c.Server.CORSAllowedOrigins, "CHECKOUT_CORS_ALLOWED_ORIGINS")

	// Logging config
	setIfEnv(&c.Logging.Level, "CHECKOUT_LOG_LEVEL")
	setIfEnv(&c.Logging.Format, "CHECKOUT_LOG_FORMAT")
	setIfEnv(&c.Logging.Environment, "CHECKOUT_LOG_ENVIRONMENT")

	// Checkout config
	setListIfEnv(&c.Checkout.AllowedOrigins, "CHECKOUT_ALLOWED_ORIGINS")
	setDurationIfEnv(&c.Checkout.SessionTTL, "CHECKOUT_SESSION_TTL")
	setIfEnv(&c.Checkout.Environment, "CHECKOUT_ENVIRONMENT")

	// Stripe config
	setIfEnv(&c.Stripe.SecretKey, "CHECKOUT_STRIPE_SECRET_KEY")
	setIfEnv(&c.Stripe.WebhookSecret, "CHECKOUT_STRIPE_WEBHOOK_SECRET")
	setIfEnv(&c.Stripe.PublishableKey, "CHECKOUT_STRIPE_PUBLISHABLE_KEY")
	setIfEnv(&c.Stripe.Mode, "CHECKOUT_STRIPE_MODE")
	setInt64IfEnv(&c.Stripe.AmountCeilingCents, "CHECKOUT_STRIPE_AMOUNT_CEILING_CENTS")
	setDurationIfEnv(&c.Stripe.WebhookTolerance, "CHECKOUT_STRIPE_WEBHOOK_TOLERANCE")

	// Shipping config
	setInt64IfEnv(&c.Shipping.FreeShippingMinCents, "CHECKOUT_FREE_SHIPPING_MIN_CENTS")
	setInt64IfEnv(&c.Shipping.RestrictedSurchargeCents, "CHECKOUT_RESTRICTED_SURCHARGE_CENTS")
	setListIfEnv(&c.Shipping.RestrictedMarkers, "CHECKOUT_RESTRICTED_MARKERS")
	setListIfEnv(&c.Shipping.CaseMarkers, "CHECKOUT_CASE_MARKERS")

	// Shopify config
	setIfEnv(&c.Shopify.ShopDomain, "CHECKOUT_SHOPIFY_SHOP_DOMAIN")
	setIfEnv(&c.Shopify.APIKey, "CHECKOUT_SHOPIFY_API_KEY")
	setIfEnv(&c.Shopify.APISecret, "CHECKOUT_SHOPIFY_API_SECRET")
	setIfEnv(&c.Shopify.AccessToken, "CHECKOUT_SHOPIFY_ACCESS_TOKEN")
	setDurationIfEnv(&c.Shopify.Timeout, "CHECKOUT_SHOPIFY_TIMEOUT")

	// Storage config
	setIfEnv(&c.Storage.Backend, "CHECKOUT_STORAGE_BACKEND")
	setIfEnv(&c.Storage.RedisURL, "CHECKOUT_STORAGE_REDIS_URL")
	setIfEnv(&c.Storage.MongoDBURL, "CHECKOUT_STORAGE_MONGODB_URL")
	setIfEnv(&c.Storage.MongoDBDatabase, "CHECKOUT_STORAGE_MONGODB_DATABASE")
	setIfEnv(&c.Storage.PostgresURL, "CHECKOUT_STORAGE_POSTGRES_URL")
	setDurationIfEnv(&c.Storage.EventTTL, "CHECKOUT_STORAGE_EVENT_TTL")

	// Rate limit config
	setBoolIfEnv(&c.RateLimit.GlobalEnabled, "CHECKOUT_RATE_LIMIT_GLOBAL_ENABLED")
	setIntIfEnv(&c.RateLimit.GlobalLimit, "CHECKOUT_RATE_LIMIT_GLOBAL_LIMIT")
	setIntIfEnv(&c.RateLimit.SessionCreate.Limit, "CHECKOUT_RATE_LIMIT_SESSION_CREATE_LIMIT")
	setDurationIfEnv(&c.RateLimit.SessionCreate.Window, "CHECKOUT_RATE_LIMIT_SESSION_CREATE_WINDOW")
	setIntIfEnv(&c.RateLimit.PaymentCreate.Limit, "CHECKOUT_RATE_LIMIT_PAYMENT_CREATE_LIMIT")
	setDurationIfEnv(&c.RateLimit.PaymentCreate.Window, "CHECKOUT_RATE_LIMIT_PAYMENT_CREATE_WINDOW")

	// Circuit breaker config
	setBoolIfEnv(&c.CircuitBreaker.Enabled, "CHECKOUT_CIRCUIT_BREAKER_ENABLED")
}

// setIfEnv sets a string pointer to the environment variable value if it exists.
func setIfEnv(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}

// setBoolIfEnv sets a boolean pointer from an environment variable.
// Accepts "1", "true", "TRUE", "True" as true values.
func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

// setIntIfEnv sets an int pointer from an environment variable.
func setIntIfEnv(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// setInt64IfEnv sets an int64 pointer from an environment variable.
func setInt64IfEnv(target *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = n
		}
	}
}

// setDurationIfEnv sets a Duration pointer from an environment variable.
// Uses time.ParseDuration to parse values like "5m", "120s", "1h30m".
func setDurationIfEnv(target *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			*target = Duration{Duration: dur}
		}
	}
}

// setListIfEnv sets a string slice from a comma-separated environment variable.
func setListIfEnv(target *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*target = out
	}
}
