package ratelimit

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/StorefrontLabs/checkout-server/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	// Global backstop across all callers (counts every request)
	GlobalEnabled bool
	GlobalLimit   int
	GlobalWindow  time.Duration

	// Metrics collector (optional)
	Metrics *metrics.Metrics
}

// rateLimitResponse is the JSON error body for 429 responses.
type rateLimitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// DefaultConfig returns the default global backstop: 1000 req/min stops
// obvious floods without restricting legitimate storefront traffic.
func DefaultConfig() Config {
	return Config{
		GlobalEnabled: true,
		GlobalLimit:   1000,
		GlobalWindow:  1 * time.Minute,
	}
}

// writeLimited writes the standard 429 response with a Retry-After hint.
func writeLimited(w http.ResponseWriter, limitType, message string, retryAfter time.Duration, identifier string, m *metrics.Metrics) {
	if m != nil {
		m.ObserveRateLimit(limitType, metrics.SanitizeLabel(identifier))
	}

	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rateLimitResponse{
		Error:             "rate_limited",
		Message:           message,
		RetryAfterSeconds: seconds,
	})
}

// GlobalLimiter creates the coarse whole-server backstop middleware. Unlike
// the endpoint limiters it counts every request, accepted or not; its job is
// flood protection, not budget accounting.
func GlobalLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.GlobalEnabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		cfg.GlobalLimit,
		cfg.GlobalWindow,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeLimited(w, "global", "Rate limit exceeded. Please try again later.",
				cfg.GlobalWindow, "all", cfg.Metrics)
		}),
	)
}

// EndpointLimiter wraps a handler with a sliding-window budget keyed by
// keyFunc (client IP for session creation, session token for payment intent
// creation). A request with an empty key is passed through; the caller's
// auth middleware is responsible for rejecting it. A nil limiter disables
// the budget entirely.
func EndpointLimiter(limiter *Limiter, limitType string, keyFunc func(*http.Request) string, m *metrics.Metrics) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(key)
			if !allowed {
				writeLimited(w, limitType, "Rate limit exceeded. Please try again later.",
					retryAfter, key, m)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
