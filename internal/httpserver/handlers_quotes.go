package httpserver

import (
	"net/http"
	"time"

	apierrors "github.com/StorefrontLabs/checkout-server/internal/errors"
	"github.com/StorefrontLabs/checkout-server/internal/shipping"
	"github.com/StorefrontLabs/checkout-server/internal/tax"
	"github.com/StorefrontLabs/checkout-server/pkg/responders"
)

type shippingQuoteRequest struct {
	Items   []shipping.Item  `json:"items"`
	Address shipping.Address `json:"address"`
}

// calculateShipping quotes the three shipping methods for a cart and
// destination. An empty cart is quotable (base rates); an absent items field
// is not.
func (h *handlers) calculateShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingQuoteRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidItems, "Invalid request body")
		return
	}
	if req.Items == nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidItems, "Items are required")
		return
	}

	start := time.Now()
	quotes := h.shipping.Calculate(req.Items, req.Address)
	if h.metrics != nil {
		h.metrics.ObserveQuote("shipping", time.Since(start))
	}
	responders.JSON(w, http.StatusOK, quotes)
}

type taxQuoteRequest struct {
	SubtotalCents int64  `json:"subtotal"`
	ShippingCents int64  `json:"shipping"`
	State         string `json:"state"`
}

// calculateTax quotes sales tax for a subtotal, shipping cost, and
// destination state. Unknown states quote zero tax rather than erroring.
func (h *handlers) calculateTax(w http.ResponseWriter, r *http.Request) {
	var req taxQuoteRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidField, "Invalid request body")
		return
	}
	if req.SubtotalCents < 0 || req.ShippingCents < 0 {
		apierrors.WriteSimpleError(w, apierrors.ErrCodeInvalidAmount, "Invalid amount")
		return
	}

	start := time.Now()
	quote := tax.Calculate(req.SubtotalCents, req.ShippingCents, req.State)
	if h.metrics != nil {
		h.metrics.ObserveQuote("tax", time.Since(start))
	}
	responders.JSON(w, http.StatusOK, quote)
}
