package httpserver

import (
	"errors"
	"net/http"

	apierrors "github.com/StorefrontLabs/checkout-server/internal/errors"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/internal/payments"
	"github.com/StorefrontLabs/checkout-server/pkg/responders"
)

type createPaymentIntentRequest struct {
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Email       string            `json:"email,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// createPaymentIntent validates the request and creates a payment intent with
// the provider. The response is the minimal tuple the frontend needs to
// confirm the payment; everything else stays server-side.
func (h *handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req createPaymentIntentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "Invalid request body")
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), payments.CreateIntentRequest{
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		ReceiptEmail: req.Email,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.writePaymentError(w, err)
		return
	}

	log.Info().
		Str("intent_id", intent.ID).
		Msg("payment_intent.created")

	responders.JSON(w, http.StatusOK, intent)
}

// writePaymentError maps payment errors onto wire responses. Messages are
// generic by construction; provider error details stay in the logs.
func (h *handlers) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payments.ErrInvalidAmount):
		apierrors.WriteSimpleError(w, payments.Code(err), "Invalid amount")
	case errors.Is(err, payments.ErrInvalidCurrency):
		apierrors.WriteSimpleError(w, payments.Code(err), "Unsupported currency")
	case errors.Is(err, payments.ErrInvalidEmail):
		apierrors.WriteSimpleError(w, payments.Code(err), "Invalid email address")
	default:
		apierrors.WriteSimpleError(w, payments.Code(err), "Payment provider error")
	}
}
