package httpserver

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/StorefrontLabs/checkout-server/internal/errors"
	"github.com/StorefrontLabs/checkout-server/internal/session"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
)

type contextKey string

const sessionContextKey contextKey = "checkout_session"

// bearerToken extracts the session token from the Authorization header.
// Returns "" when the header is missing or not a Bearer scheme.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// sessionFromContext returns the authenticated session stored by
// requireSession. The bool is false on routes that skipped auth.
func sessionFromContext(ctx context.Context) (storage.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(storage.Session)
	return sess, ok
}

// requireSession authenticates the request via its Bearer session token and
// stores the session in the request context. Missing, unknown, and expired
// tokens all produce the same 401.
func (h *handlers) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		sess, err := h.sessions.Validate(r.Context(), token)
		if err != nil {
			apierrors.WriteSimpleError(w, session.Code(err), "Invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCSRF enforces the double-submit check on state-changing routes. Must
// run after requireSession.
func (h *handlers) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFromContext(r.Context())
		if !ok {
			apierrors.WriteSimpleError(w, apierrors.ErrCodeUnauthenticated, "Invalid or expired session")
			return
		}

		if err := h.sessions.VerifyCSRF(sess, r.Header.Get("X-CSRF-Token")); err != nil {
			apierrors.WriteSimpleError(w, apierrors.ErrCodeCSRFMismatch, "CSRF token missing or invalid")
			return
		}

		next.ServeHTTP(w, r)
	})
}
