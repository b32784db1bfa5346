package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.CheckoutConfig{
		AllowedOrigins: []string{"shop.example.com", "staging.example.com"},
		SessionTTL:     config.Duration{Duration: ttl},
	}
	return NewService(store, cfg, nil), store
}

func TestCreateIssuesWellFormedTokens(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)

	session, err := svc.Create(context.Background(), "cart-token-1", 3500, "https://shop.example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sessionRe := regexp.MustCompile(`^[0-9a-f]{64}$`)
	csrfRe := regexp.MustCompile(`^[0-9a-f]{32}$`)
	if !sessionRe.MatchString(session.Token) {
		t.Errorf("session token %q is not 64 lowercase hex chars", session.Token)
	}
	if !csrfRe.MatchString(session.CSRFToken) {
		t.Errorf("csrf token %q is not 32 lowercase hex chars", session.CSRFToken)
	}
	if session.Origin != "shop.example.com" {
		t.Errorf("origin = %q, want shop.example.com", session.Origin)
	}
}

func TestCreateTokensAreUnique(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		session, err := svc.Create(ctx, "cart-token-1", 3500, "shop.example.com")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[session.Token] {
			t.Fatalf("duplicate session token issued: %s", session.Token)
		}
		seen[session.Token] = true
	}
}

func TestCreateOriginMatching(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{name: "https origin", origin: "https://shop.example.com"},
		{name: "bare host", origin: "shop.example.com"},
		{name: "host with port", origin: "https://shop.example.com:443"},
		{name: "mixed case host", origin: "https://Shop.Example.COM"},
		{name: "second allowed host", origin: "staging.example.com"},
		{name: "unknown host", origin: "https://evil.example.org", wantErr: true},
		{name: "subdomain of allowed host", origin: "https://evil.shop.example.com", wantErr: true},
		{name: "empty origin", origin: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "cart-token-1", 3500, tt.origin)
			if tt.wantErr {
				if !errors.Is(err, ErrOriginForbidden) {
					t.Errorf("expected ErrOriginForbidden, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Create failed: %v", err)
			}
		})
	}
}

func TestCreateCartValidation(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "", 3500, "shop.example.com"); !errors.Is(err, ErrMissingCartToken) {
		t.Errorf("expected ErrMissingCartToken, got %v", err)
	}
	if _, err := svc.Create(ctx, "cart-token-1", -1, "shop.example.com"); !errors.Is(err, ErrInvalidCartTotal) {
		t.Errorf("expected ErrInvalidCartTotal, got %v", err)
	}
	// A zero total is an empty but valid cart.
	if _, err := svc.Create(ctx, "cart-token-1", 0, "shop.example.com"); err != nil {
		t.Errorf("zero cart total should be accepted: %v", err)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)

	_, err := svc.Validate(context.Background(), "deadbeef")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestValidateExpiredSessionEvicted(t *testing.T) {
	svc, store := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	expired := storage.Session{
		Token:     "expiredtoken",
		CSRFToken: "csrf",
		Origin:    "shop.example.com",
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Millisecond),
	}
	if err := store.SaveSession(ctx, expired); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if _, err := svc.Validate(ctx, expired.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired session, got %v", err)
	}

	// Lazy eviction removed the record from the store.
	if _, err := store.GetSession(ctx, expired.Token); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expired session should be evicted on access, got %v", err)
	}
}

func TestValidateBoundary(t *testing.T) {
	svc, store := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	// A session expiring 50ms from now is still valid right up to its expiry.
	session := storage.Session{
		Token:     "boundarytoken",
		CSRFToken: "csrf",
		Origin:    "shop.example.com",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(50 * time.Millisecond),
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if _, err := svc.Validate(ctx, session.Token); err != nil {
		t.Errorf("session before expiry should validate: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if _, err := svc.Validate(ctx, session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("session past expiry should be rejected, got %v", err)
	}
}

func TestVerifyCSRF(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)

	session, err := svc.Create(context.Background(), "cart-token-1", 3500, "shop.example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.VerifyCSRF(session, session.CSRFToken); err != nil {
		t.Errorf("matching csrf token should verify: %v", err)
	}
	if err := svc.VerifyCSRF(session, "0000000000000000"); !errors.Is(err, ErrCSRFMismatch) {
		t.Errorf("expected ErrCSRFMismatch for wrong token, got %v", err)
	}
	if err := svc.VerifyCSRF(session, ""); !errors.Is(err, ErrCSRFMismatch) {
		t.Errorf("expected ErrCSRFMismatch for empty token, got %v", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	svc, _ := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	session, err := svc.Create(ctx, "cart-token-1", 3500, "shop.example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Destroy(ctx, session.Token); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	// Second destroy of the same token still succeeds.
	if err := svc.Destroy(ctx, session.Token); err != nil {
		t.Errorf("repeat Destroy failed: %v", err)
	}
	// Destroying a token that never existed succeeds too.
	if err := svc.Destroy(ctx, "nonexistent"); err != nil {
		t.Errorf("Destroy of unknown token failed: %v", err)
	}

	if _, err := svc.Validate(ctx, session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("destroyed session should not validate, got %v", err)
	}
}
