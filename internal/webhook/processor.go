package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/StorefrontLabs/checkout-server/internal/metrics"
	"github.com/StorefrontLabs/checkout-server/internal/orders"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
)

// Outcome is the terminal disposition of one webhook delivery. Every outcome
// except OutcomeRejected is acknowledged with HTTP 200; delivery problems
// after signature verification are an internal matter, never the provider's.
type Outcome string

const (
	// OutcomeRejected: signature, format, or freshness failure. The only
	// outcome that returns a non-200.
	OutcomeRejected Outcome = "rejected"
	// OutcomeDuplicate: event ID already processed; side effects skipped.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeSkipped: verified but not actionable (wrong event type,
	// environment mismatch, or unusable metadata).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDispatched: order successfully created.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeDispatchFailed: order creation failed after retries; logged
	// and acknowledged.
	OutcomeDispatchFailed Outcome = "dispatch_failed"
)

// defaultTolerance is the maximum age of a webhook timestamp before the
// delivery is treated as a replay, independent of signature validity.
const defaultTolerance = 5 * time.Minute

// defaultDispatchTimeout bounds how long one delivery may spend creating the
// order before the processor acknowledges and leaves the failure to logs.
const defaultDispatchTimeout = 30 * time.Second

// Dispatcher places an order for a completed payment.
type Dispatcher interface {
	Dispatch(ctx context.Context, draft orders.OrderDraft) error
}

// Processor drives a verified webhook delivery through signature check,
// dedup, metadata parsing, and order dispatch.
type Processor struct {
	secret          string
	environment     string
	tolerance       time.Duration
	eventTTL        time.Duration
	dispatchTimeout time.Duration
	store           storage.Store
	dispatcher      Dispatcher
	metrics         *metrics.Metrics
}

// ProcessorConfig collects the processor's policy knobs.
type ProcessorConfig struct {
	WebhookSecret   string
	Environment     string
	Tolerance       time.Duration
	EventTTL        time.Duration
	DispatchTimeout time.Duration
}

// NewProcessor builds a processor over the given store and dispatcher.
func NewProcessor(cfg ProcessorConfig, store storage.Store, dispatcher Dispatcher, m *metrics.Metrics) *Processor {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = defaultTolerance
	}
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 24 * time.Hour
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = defaultDispatchTimeout
	}
	return &Processor{
		secret:          cfg.WebhookSecret,
		environment:     cfg.Environment,
		tolerance:       cfg.Tolerance,
		eventTTL:        cfg.EventTTL,
		dispatchTimeout: cfg.DispatchTimeout,
		store:           store,
		dispatcher:      dispatcher,
		metrics:         m,
	}
}

// Process runs one delivery through the pipeline. A non-nil error means the
// delivery must be rejected with 400; any other result is acknowledged 200.
func (p *Processor) Process(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	start := time.Now()

	// Signature and freshness verification over {timestamp}.{rawBody}.
	// A stale timestamp fails here even with a valid signature.
	event, err := webhook.ConstructEventWithTolerance(payload, sigHeader, p.secret, p.tolerance)
	if err != nil {
		reason := "signature"
		if errors.Is(err, webhook.ErrTooOld) {
			reason = "stale_timestamp"
		}
		if p.metrics != nil {
			p.metrics.ObserveWebhookReject(reason)
		}
		log.Warn().
			Err(err).
			Str("reason", reason).
			Msg("webhook.rejected")
		return OutcomeRejected, err
	}

	outcome := p.handleVerified(ctx, event)
	if p.metrics != nil {
		p.metrics.ObserveWebhook(string(event.Type), string(outcome), time.Since(start))
	}
	return outcome, nil
}

// handleVerified covers every state after SignatureVerified; nothing in here
// may influence the HTTP response beyond logging and metrics.
func (p *Processor) handleVerified(ctx context.Context, event stripeapi.Event) Outcome {
	// Atomic check-and-mark: under concurrent duplicate deliveries exactly
	// one caller proceeds to side effects.
	first, err := p.store.MarkEventProcessed(ctx, event.ID, p.eventTTL)
	if err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Msg("webhook.dedup_check_failed")
		return OutcomeSkipped
	}
	if !first {
		log.Info().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("webhook.duplicate_delivery")
		return OutcomeDuplicate
	}

	if event.Type != "payment_intent.succeeded" {
		log.Debug().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("webhook.ignored_event_type")
		return OutcomeSkipped
	}

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Msg("webhook.intent_unparseable")
		return OutcomeSkipped
	}

	// Cross-environment deliveries (e.g. a staging event reaching the
	// production processor) are acknowledged but never acted on.
	if env := intent.Metadata[metaEnvironment]; env != p.environment {
		log.Info().
			Str("event_id", event.ID).
			Str("event_environment", env).
			Str("processor_environment", p.environment).
			Msg("webhook.skipped_environment_mismatch")
		return OutcomeSkipped
	}

	draft := parseOrderDraft(intent.ID, intent.Metadata)
	if !draft.Complete() {
		// Missing customer identity or items. Acknowledge anyway; a retry
		// storm cannot fix bad metadata.
		log.Error().
			Str("event_id", event.ID).
			Str("intent_id", intent.ID).
			Msg("webhook.metadata_incomplete")
		return OutcomeSkipped
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, p.dispatchTimeout)
	defer cancel()
	if err := p.dispatcher.Dispatch(dispatchCtx, draft); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("intent_id", intent.ID).
			Msg("webhook.order_dispatch_failed")
		return OutcomeDispatchFailed
	}

	return OutcomeDispatched
}
