package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the checkout server.
type Metrics struct {
	// Session metrics
	SessionsCreatedTotal   *prometheus.CounterVec
	SessionsDestroyedTotal prometheus.Counter
	SessionLookupsTotal    *prometheus.CounterVec

	// Quote metrics
	QuotesTotal   *prometheus.CounterVec
	QuoteDuration *prometheus.HistogramVec

	// Payment intent metrics
	PaymentIntentsTotal       *prometheus.CounterVec
	PaymentIntentsFailedTotal *prometheus.CounterVec
	PaymentIntentDuration     *prometheus.HistogramVec
	PaymentAmountTotal        *prometheus.CounterVec

	// Webhook metrics
	WebhooksTotal    *prometheus.CounterVec
	WebhookDuration  *prometheus.HistogramVec
	WebhookReplays   prometheus.Counter
	WebhookRejects   *prometheus.CounterVec

	// Order dispatch metrics
	OrdersDispatchedTotal *prometheus.CounterVec
	OrderDispatchDuration *prometheus.HistogramVec
	OrderRetriesTotal     *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Store metrics
	StoreQueryDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		SessionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sessions_created_total",
				Help: "Total number of checkout sessions issued",
			},
			[]string{"origin"},
		),
		SessionsDestroyedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_sessions_destroyed_total",
				Help: "Total number of sessions destroyed via logout",
			},
		),
		SessionLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_session_lookups_total",
				Help: "Total number of session validations by outcome",
			},
			[]string{"outcome"}, // valid, expired, unknown
		),

		QuotesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_quotes_total",
				Help: "Total number of shipping/tax quotes computed",
			},
			[]string{"kind"}, // shipping, tax
		),
		QuoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_quote_duration_seconds",
				Help:    "Time taken to compute a quote",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"kind"},
		),

		PaymentIntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payment_intents_total",
				Help: "Total number of payment intents created",
			},
			[]string{"currency"},
		),
		PaymentIntentsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payment_intents_failed_total",
				Help: "Total number of payment intent creations that failed",
			},
			[]string{"reason"},
		),
		PaymentIntentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_payment_intent_duration_seconds",
				Help:    "Time taken to create a payment intent (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"currency"},
		),
		PaymentAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_payment_amount_total",
				Help: "Total payment intent amount in minor currency units",
			},
			[]string{"currency"},
		),

		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_webhooks_total",
				Help: "Total number of webhook deliveries by terminal outcome",
			},
			[]string{"event_type", "outcome"}, // dispatched, duplicate, skipped, rejected, acknowledged
		),
		WebhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_webhook_duration_seconds",
				Help:    "Time taken to process a webhook delivery",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"},
		),
		WebhookReplays: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_webhook_replays_total",
				Help: "Total number of duplicate webhook deliveries deduplicated",
			},
		),
		WebhookRejects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_webhook_rejects_total",
				Help: "Total number of webhook deliveries rejected before processing",
			},
			[]string{"reason"}, // signature, stale_timestamp, format
		),

		OrdersDispatchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_orders_dispatched_total",
				Help: "Total number of orders dispatched to the commerce platform",
			},
			[]string{"status"}, // success, failed
		),
		OrderDispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_order_dispatch_duration_seconds",
				Help:    "Time from webhook receipt to order creation",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		OrderRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_order_retries_total",
				Help: "Total number of order dispatch retry attempts",
			},
			[]string{"attempt"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_rate_limit_hits_total",
				Help: "Total number of rate limit rejections",
			},
			[]string{"limit_type", "identifier"},
		),

		StoreQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_store_query_duration_seconds",
				Help:    "Session/event store operation duration (supports p50, p95, p99 percentiles)",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation", "backend"},
		),
	}
}

// ObserveSessionCreated records an issued session.
func (m *Metrics) ObserveSessionCreated(origin string) {
	m.SessionsCreatedTotal.WithLabelValues(origin).Inc()
}

// ObserveSessionLookup records a session validation outcome.
func (m *Metrics) ObserveSessionLookup(outcome string) {
	m.SessionLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuote records a shipping or tax quote computation.
func (m *Metrics) ObserveQuote(kind string, duration time.Duration) {
	m.QuotesTotal.WithLabelValues(kind).Inc()
	m.QuoteDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObservePaymentIntent records a payment intent creation and its outcome.
func (m *Metrics) ObservePaymentIntent(currency string, amountCents int64, duration time.Duration) {
	m.PaymentIntentsTotal.WithLabelValues(currency).Inc()
	m.PaymentAmountTotal.WithLabelValues(currency).Add(float64(amountCents))
	m.PaymentIntentDuration.WithLabelValues(currency).Observe(duration.Seconds())
}

// ObservePaymentIntentFailure records a failed payment intent creation with reason.
func (m *Metrics) ObservePaymentIntentFailure(reason string) {
	m.PaymentIntentsFailedTotal.WithLabelValues(reason).Inc()
}

// ObserveWebhook records a webhook delivery terminal outcome.
func (m *Metrics) ObserveWebhook(eventType, outcome string, duration time.Duration) {
	m.WebhooksTotal.WithLabelValues(eventType, outcome).Inc()
	m.WebhookDuration.WithLabelValues(eventType).Observe(duration.Seconds())
	if outcome == "duplicate" {
		m.WebhookReplays.Inc()
	}
}

// ObserveWebhookReject records a webhook rejected before any side effect.
func (m *Metrics) ObserveWebhookReject(reason string) {
	m.WebhookRejects.WithLabelValues(reason).Inc()
}

// ObserveOrderDispatch records an order creation attempt against the commerce platform.
func (m *Metrics) ObserveOrderDispatch(status string, duration time.Duration, attempt int) {
	m.OrdersDispatchedTotal.WithLabelValues(status).Inc()
	m.OrderDispatchDuration.WithLabelValues(status).Observe(duration.Seconds())
	if attempt > 1 {
		m.OrderRetriesTotal.WithLabelValues(formatAttempt(attempt)).Inc()
	}
}

// ObserveRateLimit records a rate limit rejection.
func (m *Metrics) ObserveRateLimit(limitType, identifier string) {
	m.RateLimitHitsTotal.WithLabelValues(limitType, identifier).Inc()
}

// ObserveStoreQuery records a session/event store operation.
func (m *Metrics) ObserveStoreQuery(operation, backend string, duration time.Duration) {
	m.StoreQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func formatAttempt(attempt int) string {
	if attempt <= 5 {
		return string(rune('0' + attempt))
	}
	return "5+"
}

// SanitizeLabel caps label cardinality for user-supplied identifiers.
func SanitizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return s[:64]
	}
	return s
}
