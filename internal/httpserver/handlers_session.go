package httpserver

import (
	"errors"
	"net/http"
	"time"

	apierrors "github.com/StorefrontLabs/checkout-server/internal/errors"
	"github.com/StorefrontLabs/checkout-server/internal/session"
	"github.com/StorefrontLabs/checkout-server/pkg/responders"
)

type createSessionRequest struct {
	CartToken string `json:"cartToken"`
	CartTotal int64  `json:"cartTotal"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	CSRFToken string    `json:"csrfToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// createSession issues a new checkout session bound to the caller's cart.
// The request origin comes from the Origin header; browsers send it on every
// cross-origin POST, with Referer as the fallback for same-origin setups.
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "Invalid request body")
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}

	sess, err := h.sessions.Create(r.Context(), req.CartToken, req.CartTotal, origin)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	responders.JSON(w, http.StatusCreated, sessionResponse{
		Token:     sess.Token,
		CSRFToken: sess.CSRFToken,
		ExpiresAt: sess.ExpiresAt,
	})
}

// csrfToken returns the CSRF token for an authenticated session, for clients
// that dropped it but still hold the session token.
func (h *handlers) csrfToken(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeUnauthenticated, "Invalid or expired session")
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{
		"csrfToken": sess.CSRFToken,
		"expiresAt": sess.ExpiresAt,
	})
}

// logout destroys the session. Idempotent: logging out twice succeeds.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeUnauthenticated, "Invalid or expired session")
		return
	}

	if err := h.sessions.Destroy(r.Context(), sess.Token); err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeStorageError, "Failed to destroy session")
		return
	}

	responders.JSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeSessionError maps session service errors onto wire responses with
// generic, safe messages.
func (h *handlers) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrMissingCartToken):
		apierrors.WriteSimpleError(w, session.Code(err), "Cart token is required")
	case errors.Is(err, session.ErrInvalidCartTotal):
		apierrors.WriteSimpleError(w, session.Code(err), "Invalid cart total")
	case errors.Is(err, session.ErrOriginForbidden):
		apierrors.WriteSimpleError(w, session.Code(err), "Origin not allowed")
	default:
		apierrors.WriteSimpleError(w, session.Code(err), "Failed to create session")
	}
}
