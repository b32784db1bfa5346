package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/StorefrontLabs/checkout-server/internal/config"
	checkouterrors "github.com/StorefrontLabs/checkout-server/internal/errors"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/internal/metrics"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
)

// Sentinel errors mapped to error codes by the HTTP layer.
var (
	// ErrMissingCartToken is returned when a session is requested without a
	// cart to bind it to.
	ErrMissingCartToken = errors.New("session: cart token is required")
	// ErrInvalidCartTotal is returned for a negative cart total.
	ErrInvalidCartTotal = errors.New("session: cart total must not be negative")
	// ErrOriginForbidden is returned when the request Origin is not on the
	// storefront allow-list.
	ErrOriginForbidden = errors.New("session: origin not allowed")
	// ErrUnauthenticated covers missing, unknown, and expired session tokens.
	ErrUnauthenticated = errors.New("session: invalid or expired session")
	// ErrCSRFMismatch is returned when the presented CSRF token does not match
	// the one stored for the session.
	ErrCSRFMismatch = errors.New("session: csrf token mismatch")
)

// Code maps a session error to its wire-level error code.
func Code(err error) checkouterrors.ErrorCode {
	switch {
	case errors.Is(err, ErrMissingCartToken):
		return checkouterrors.ErrCodeMissingField
	case errors.Is(err, ErrInvalidCartTotal):
		return checkouterrors.ErrCodeInvalidAmount
	case errors.Is(err, ErrOriginForbidden):
		return checkouterrors.ErrCodeOriginForbidden
	case errors.Is(err, ErrCSRFMismatch):
		return checkouterrors.ErrCodeCSRFMismatch
	case errors.Is(err, ErrUnauthenticated):
		return checkouterrors.ErrCodeUnauthenticated
	default:
		return checkouterrors.ErrCodeStorageError
	}
}

// Service issues and validates checkout sessions.
type Service struct {
	store          storage.Store
	allowedOrigins []string
	ttl            time.Duration
	metrics        *metrics.Metrics
}

// NewService creates a session service backed by the given store.
// cfg.AllowedOrigins must already be normalized to bare lowercase hosts.
func NewService(store storage.Store, cfg config.CheckoutConfig, m *metrics.Metrics) *Service {
	ttl := cfg.SessionTTL.Duration
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		store:          store,
		allowedOrigins: cfg.AllowedOrigins,
		ttl:            ttl,
		metrics:        m,
	}
}

// Create validates the request origin and cart binding and issues a new
// session with fresh, independent session and CSRF tokens. cartTotal is in
// cents; zero is a valid (empty) cart.
func (s *Service) Create(ctx context.Context, cartToken string, cartTotal int64, origin string) (storage.Session, error) {
	if cartToken == "" {
		return storage.Session{}, ErrMissingCartToken
	}
	if cartTotal < 0 {
		return storage.Session{}, ErrInvalidCartTotal
	}

	host := config.NormalizeOrigin(origin)
	if !s.originAllowed(host) {
		log.Warn().
			Str("origin", host).
			Msg("session.create.origin_forbidden")
		return storage.Session{}, ErrOriginForbidden
	}

	token, err := newSessionToken()
	if err != nil {
		return storage.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	csrf, err := newCSRFToken()
	if err != nil {
		return storage.Session{}, fmt.Errorf("generate csrf token: %w", err)
	}

	now := time.Now()
	session := storage.Session{
		Token:     token,
		CSRFToken: csrf,
		CartToken: cartToken,
		CartTotal: cartTotal,
		Origin:    host,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		return storage.Session{}, fmt.Errorf("save session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ObserveSessionCreated(host)
	}
	log.Debug().
		Str("token", logger.TruncateToken(token)).
		Str("origin", host).
		Time("expires_at", session.ExpiresAt).
		Msg("session.created")

	return session, nil
}

// Validate looks up a session by token and enforces expiry lazily: an
// expired record is evicted on access and reported as unauthenticated,
// indistinguishable from a token that never existed.
func (s *Service) Validate(ctx context.Context, token string) (storage.Session, error) {
	if token == "" {
		s.observeLookup("unknown")
		return storage.Session{}, ErrUnauthenticated
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.observeLookup("unknown")
			return storage.Session{}, ErrUnauthenticated
		}
		return storage.Session{}, fmt.Errorf("get session: %w", err)
	}

	if session.ExpiredAt(time.Now()) {
		// Best effort eviction; the record is unusable either way.
		if err := s.store.DeleteSession(ctx, token); err != nil {
			log.Warn().
				Err(err).
				Str("token", logger.TruncateToken(token)).
				Msg("session.evict_expired_failed")
		}
		s.observeLookup("expired")
		return storage.Session{}, ErrUnauthenticated
	}

	s.observeLookup("valid")
	return session, nil
}

// VerifyCSRF checks the presented CSRF token against the session's stored
// token in constant time.
func (s *Service) VerifyCSRF(session storage.Session, presented string) error {
	if presented == "" {
		return ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(presented)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// Destroy removes a session. Destroying an unknown or already-destroyed
// token succeeds; logout is idempotent.
func (s *Service) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SessionsDestroyedTotal.Inc()
	}
	log.Debug().
		Str("token", logger.TruncateToken(token)).
		Msg("session.destroyed")
	return nil
}

func (s *Service) originAllowed(host string) bool {
	if host == "" {
		return false
	}
	for _, allowed := range s.allowedOrigins {
		if host == allowed {
			return true
		}
	}
	return false
}

func (s *Service) observeLookup(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSessionLookup(outcome)
	}
}
