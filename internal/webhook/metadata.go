package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/StorefrontLabs/checkout-server/internal/orders"
)

// Metadata keys written by the payment intent orchestrator. Structured
// sub-objects are JSON-encoded as string values because the provider's
// metadata bag is flat string key/value pairs.
const (
	metaCustomer        = "customer"
	metaItems           = "items"
	metaShippingAddress = "shipping_address"
	metaShippingMethod  = "shipping_method"
	metaTaxCents        = "tax_cents"
	metaRep             = "rep"
	metaRepLegacy       = "rep_code"
	metaEnvironment     = "environment"
)

// parseOrderDraft turns the intent's flat metadata bag into a typed order
// draft. Optional fields degrade gracefully; the caller decides what to do
// with an incomplete draft.
func parseOrderDraft(intentID string, metadata map[string]string) orders.OrderDraft {
	draft := orders.OrderDraft{
		PaymentIntentID: intentID,
		Environment:     metadata[metaEnvironment],
	}

	if raw := metadata[metaCustomer]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.Customer); err != nil {
			log.Warn().
				Err(err).
				Str("intent_id", intentID).
				Msg("webhook.metadata.customer_unparseable")
		}
	}

	if raw := metadata[metaItems]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.Items); err != nil {
			log.Warn().
				Err(err).
				Str("intent_id", intentID).
				Msg("webhook.metadata.items_unparseable")
		}
	}

	if raw := metadata[metaShippingAddress]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.ShippingAddress); err != nil {
			log.Warn().
				Err(err).
				Str("intent_id", intentID).
				Msg("webhook.metadata.shipping_address_unparseable")
		}
	}

	if raw := metadata[metaShippingMethod]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.ShippingMethod); err != nil {
			log.Warn().
				Err(err).
				Str("intent_id", intentID).
				Msg("webhook.metadata.shipping_method_unparseable")
		}
	}

	if raw := metadata[metaTaxCents]; raw != "" {
		if cents, err := strconv.ParseInt(raw, 10, 64); err == nil {
			draft.TaxCents = cents
		}
	}

	// Rep attribution is last-wins: the current "rep" value overrides any
	// earlier capture carried under the legacy key.
	draft.RepCode = metadata[metaRepLegacy]
	if rep := metadata[metaRep]; rep != "" {
		draft.RepCode = rep
	}

	return draft
}
