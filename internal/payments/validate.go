package payments

import (
	"errors"
	"net/mail"
	"strings"

	checkouterrors "github.com/StorefrontLabs/checkout-server/internal/errors"
)

// Sentinel errors mapped to error codes by the HTTP layer.
var (
	// ErrInvalidAmount covers non-positive amounts and amounts above the
	// configured ceiling.
	ErrInvalidAmount = errors.New("payments: invalid amount")
	// ErrInvalidCurrency is returned for an unsupported currency code.
	ErrInvalidCurrency = errors.New("payments: unsupported currency")
	// ErrInvalidEmail is returned when a supplied email fails to parse.
	// Invalid emails reject the whole request rather than being dropped,
	// so a typo surfaces at checkout instead of producing a receiptless
	// order later.
	ErrInvalidEmail = errors.New("payments: invalid email address")
)

// Code maps a payments validation error to its wire-level error code.
func Code(err error) checkouterrors.ErrorCode {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return checkouterrors.ErrCodeInvalidAmount
	case errors.Is(err, ErrInvalidCurrency):
		return checkouterrors.ErrCodeInvalidField
	case errors.Is(err, ErrInvalidEmail):
		return checkouterrors.ErrCodeInvalidEmail
	default:
		return checkouterrors.ErrCodeStripeError
	}
}

// supportedCurrencies lists the minor-unit currencies the storefront charges in.
var supportedCurrencies = map[string]bool{
	"usd": true,
	"cad": true,
}

// validate applies the ordered request checks: amount first, then currency,
// then email. Each failure is a hard rejection.
func (c *Client) validate(req *CreateIntentRequest) error {
	if req.AmountCents <= 0 || req.AmountCents > c.amountCeiling {
		return ErrInvalidAmount
	}

	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "usd"
	}
	if !supportedCurrencies[req.Currency] {
		return ErrInvalidCurrency
	}

	if req.ReceiptEmail != "" {
		if err := validateEmail(req.ReceiptEmail); err != nil {
			return err
		}
	}
	// Email smuggled through metadata gets the same treatment.
	if email, ok := req.Metadata["email"]; ok && email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	req.Metadata = SanitizeMetadata(req.Metadata)
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return ErrInvalidEmail
	}
	// Reject "Name <a@b>" forms; the field carries a bare address.
	if addr.Address != strings.TrimSpace(email) {
		return ErrInvalidEmail
	}
	// Require a dotted domain: "user@localhost" is parseable but not a
	// deliverable storefront address.
	domain := addr.Address[strings.LastIndex(addr.Address, "@")+1:]
	if !strings.Contains(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}
