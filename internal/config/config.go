package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := cfg.parseFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  Duration{Duration: 15 * time.Second},
			WriteTimeout: Duration{Duration: 15 * time.Second},
			IdleTimeout:  Duration{Duration: 60 * time.Second},
		},
		Checkout: CheckoutConfig{
			SessionTTL:  Duration{Duration: 30 * time.Minute},
			Environment: "development",
		},
		Stripe: StripeConfig{
			Mode:               "test",
			AmountCeilingCents: 999999, // $9,999.99
			WebhookTolerance:   Duration{Duration: 5 * time.Minute},
			PaymentMethods:     []string{"card"},
		},
		Shipping: ShippingConfig{
			DefaultWeightLbs:         0.5,
			FreeShippingMinCents:     10000,
			RestrictedSurchargeCents: 500,
			RestrictedMarkers:        []string{"special-handling", "restricted"},
			CaseMarkers:              []string{"onebox"},
			CaseSize:                 12,
		},
		Shopify: ShopifyConfig{
			Timeout: Duration{Duration: 10 * time.Second},
			Retry: RetryConfig{
				Enabled:         true,
				MaxAttempts:     5,
				InitialInterval: Duration{Duration: 1 * time.Second},
				MaxInterval:     Duration{Duration: 5 * time.Minute},
				Multiplier:      2.0,
			},
		},
		Storage: StorageConfig{
			EventTTL:        Duration{Duration: 24 * time.Hour},
			CleanupInterval: Duration{Duration: 5 * time.Minute},
		},
		RateLimit: RateLimitConfig{
			// Global backstop: generous, designed to stop floods, not users
			GlobalEnabled: true,
			GlobalLimit:   1000,
			GlobalWindow:  Duration{Duration: 1 * time.Minute},
			// Session creation is the strictest budget - sessions are cheap
			// to mint but each one occupies store space until expiry
			SessionCreate: EndpointLimitConfig{
				Enabled: true,
				Limit:   10,
				Window:  Duration{Duration: 1 * time.Minute},
			},
			PaymentCreate: EndpointLimitConfig{
				Enabled: true,
				Limit:   30,
				Window:  Duration{Duration: 1 * time.Minute},
			},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled: true,
			StripeAPI: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 30 * time.Second},
				ConsecutiveFailures: 5,
				FailureRatio:        0.5,
				MinRequests:         10,
			},
			ShopifyAPI: BreakerServiceConfig{
				MaxRequests:         3,
				Interval:            Duration{Duration: 60 * time.Second},
				Timeout:             Duration{Duration: 60 * time.Second},
				ConsecutiveFailures: 10,
				FailureRatio:        0.7,
				MinRequests:         20,
			},
		},
	}
}

// parseFile reads and unmarshals a YAML configuration file.
func (c *Config) parseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}
