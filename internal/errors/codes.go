package errors

// ErrorCode represents a machine-readable error identifier for frontend error handling.
type ErrorCode string

// Validation Errors (Request input validation)
const (
	ErrCodeMissingField  ErrorCode = "missing_field"
	ErrCodeInvalidField  ErrorCode = "invalid_field"
	ErrCodeInvalidAmount ErrorCode = "invalid_amount"
	ErrCodeInvalidItems  ErrorCode = "invalid_items"
	ErrCodeInvalidEmail  ErrorCode = "invalid_email"
)

// Authentication/Authorization Errors
const (
	// Missing, unknown, or expired session token
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"

	// CSRF token missing or not matching the session
	ErrCodeCSRFMismatch ErrorCode = "csrf_mismatch"

	// Request Origin is not an allow-listed storefront domain
	ErrCodeOriginForbidden ErrorCode = "origin_forbidden"
)

// Rate Limiting
const (
	ErrCodeRateLimited ErrorCode = "rate_limited"
)

// Webhook Errors (signature and replay protection)
const (
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
	ErrCodeStaleTimestamp   ErrorCode = "stale_timestamp"
)

// External Service Errors (Stripe, Shopify)
const (
	ErrCodeStripeError  ErrorCode = "stripe_error"
	ErrCodeShopifyError ErrorCode = "shopify_error"
)

// Internal/System Errors
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeStorageError  ErrorCode = "storage_error"
	ErrCodeConfigError   ErrorCode = "config_error"
)

// IsRetryable returns whether an error code represents a retryable error.
// Retryable errors are typically transient network/service issues, not validation failures.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeStripeError,
		ErrCodeShopifyError,
		ErrCodeRateLimited,
		ErrCodeStorageError:
		return true

	// Validation, authorization, and permanent failures are NOT retryable
	default:
		return false
	}
}

// HTTPStatus returns the appropriate HTTP status code for this error.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	// 400 Bad Request - Client validation errors and webhook format failures
	case ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeInvalidAmount,
		ErrCodeInvalidItems,
		ErrCodeInvalidEmail,
		ErrCodeInvalidSignature,
		ErrCodeStaleTimestamp:
		return 400

	// 401 Unauthorized - Missing/expired/invalid session
	case ErrCodeUnauthenticated:
		return 401

	// 403 Forbidden - CSRF mismatch, origin not allow-listed
	case ErrCodeCSRFMismatch,
		ErrCodeOriginForbidden:
		return 403

	// 429 Too Many Requests
	case ErrCodeRateLimited:
		return 429

	// 502 Bad Gateway - External service errors
	case ErrCodeStripeError,
		ErrCodeShopifyError:
		return 502

	// 500 Internal Server Error - System/internal errors
	default:
		return 500
	}
}
