package httpserver

import (
	"errors"
	"io"
	"net/http"

	stripewebhook "github.com/stripe/stripe-go/v72/webhook"

	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/pkg/responders"
)

// maxWebhookBody caps webhook payload reads. Stripe events are a few KB;
// anything near the cap is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// stripeWebhook receives payment provider event deliveries. The only non-200
// responses are verification failures; once the signature checks out, every
// disposition is acknowledged so the provider stops retrying.
func (h *handlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Error().
			Err(err).
			Msg("webhook.read_body_failed")
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	// Rejections are bare text; there is no authenticated end user on the
	// other side, only the provider's delivery machinery.
	outcome, err := h.processor.Process(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		message := "webhook signature verification failed"
		if errors.Is(err, stripewebhook.ErrTooOld) {
			message = "webhook timestamp outside tolerance"
		}
		http.Error(w, message, http.StatusBadRequest)
		return
	}

	log.Info().
		Str("outcome", string(outcome)).
		Msg("webhook.acknowledged")

	responders.JSON(w, http.StatusOK, map[string]any{"received": true})
}
