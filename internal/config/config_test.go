package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Checkout.SessionTTL.Duration != 30*time.Minute {
		t.Errorf("session ttl = %v, want 30m", cfg.Checkout.SessionTTL.Duration)
	}
	if cfg.Stripe.AmountCeilingCents != 999999 {
		t.Errorf("amount ceiling = %d, want 999999", cfg.Stripe.AmountCeilingCents)
	}
	if cfg.Stripe.WebhookTolerance.Duration != 5*time.Minute {
		t.Errorf("webhook tolerance = %v, want 5m", cfg.Stripe.WebhookTolerance.Duration)
	}
	if cfg.Shipping.DefaultWeightLbs != 0.5 {
		t.Errorf("default weight = %v, want 0.5", cfg.Shipping.DefaultWeightLbs)
	}
	if !cfg.RateLimit.SessionCreate.Enabled {
		t.Error("session create limiter should default to enabled")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  address: ":9000"
checkout:
  allowed_origins:
    - "https://Shop.Example.COM"
    - "store.example.net:443"
  session_ttl: 15m
stripe:
  mode: live
  amount_ceiling_cents: 500000
storage:
  backend: memory
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Checkout.SessionTTL.Duration != 15*time.Minute {
		t.Errorf("session ttl = %v, want 15m", cfg.Checkout.SessionTTL.Duration)
	}
	if cfg.Stripe.Mode != "live" || cfg.Stripe.AmountCeilingCents != 500000 {
		t.Errorf("stripe = %+v", cfg.Stripe)
	}

	// Origins are normalized to bare lowercase hosts.
	want := []string{"shop.example.com", "store.example.net"}
	if len(cfg.Checkout.AllowedOrigins) != len(want) {
		t.Fatalf("origins = %v", cfg.Checkout.AllowedOrigins)
	}
	for i, origin := range want {
		if cfg.Checkout.AllowedOrigins[i] != origin {
			t.Errorf("origin[%d] = %q, want %q", i, cfg.Checkout.AllowedOrigins[i], origin)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHECKOUT_SERVER_ADDRESS", ":7777")
	t.Setenv("CHECKOUT_ALLOWED_ORIGINS", "https://a.example.com, b.example.com")
	t.Setenv("CHECKOUT_SESSION_TTL", "45m")
	t.Setenv("CHECKOUT_STRIPE_AMOUNT_CEILING_CENTS", "250000")
	t.Setenv("CHECKOUT_RATE_LIMIT_SESSION_CREATE_LIMIT", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":7777" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if len(cfg.Checkout.AllowedOrigins) != 2 || cfg.Checkout.AllowedOrigins[0] != "a.example.com" {
		t.Errorf("origins = %v", cfg.Checkout.AllowedOrigins)
	}
	if cfg.Checkout.SessionTTL.Duration != 45*time.Minute {
		t.Errorf("session ttl = %v", cfg.Checkout.SessionTTL.Duration)
	}
	if cfg.Stripe.AmountCeilingCents != 250000 {
		t.Errorf("ceiling = %d", cfg.Stripe.AmountCeilingCents)
	}
	if cfg.RateLimit.SessionCreate.Limit != 3 {
		t.Errorf("session create limit = %d", cfg.RateLimit.SessionCreate.Limit)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad stripe mode", func(c *Config) { c.Stripe.Mode = "sandbox" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "cassandra" }},
		{"redis without url", func(c *Config) { c.Storage.Backend = "redis" }},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.finalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNormalizeOrigin(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://shop.example.com", "shop.example.com"},
		{"https://shop.example.com:8443/checkout", "shop.example.com"},
		{"Shop.Example.COM", "shop.example.com"},
		{"shop.example.com:443", "shop.example.com"},
		{"shop.example.com/", "shop.example.com"},
		{"  https://shop.example.com  ", "shop.example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeOrigin(tc.in); got != tc.want {
			t.Errorf("NormalizeOrigin(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDurationYAMLSeconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// Bare numbers are interpreted as seconds.
	yaml := "checkout:\n  session_ttl: 900\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Checkout.SessionTTL.Duration != 15*time.Minute {
		t.Errorf("session ttl = %v, want 15m", cfg.Checkout.SessionTTL.Duration)
	}
}
