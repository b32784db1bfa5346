package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"

	"github.com/StorefrontLabs/checkout-server/internal/circuitbreaker"
	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/httputil"
	"github.com/StorefrontLabs/checkout-server/internal/metrics"
)

// Intent is the minimal tuple returned to the storefront. No other provider
// fields ever flow back through this API.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// CreateIntentRequest captures one payment intent creation.
type CreateIntentRequest struct {
	AmountCents        int64
	Currency           string
	PaymentMethodTypes []string
	ReceiptEmail       string
	Metadata           map[string]string
}

// intentCreator is the provider call, swappable in tests.
type intentCreator func(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)

// Client wraps stripe-go payment intent operations.
type Client struct {
	cfg           config.StripeConfig
	environment   string
	amountCeiling int64
	breakers      *circuitbreaker.Manager
	metrics       *metrics.Metrics
	create        intentCreator
}

// NewClient sets up stripe-go with the provided credentials.
func NewClient(cfg config.StripeConfig, environment string, breakers *circuitbreaker.Manager, m *metrics.Metrics) *Client {
	stripeapi.Key = cfg.SecretKey
	stripeapi.SetHTTPClient(httputil.NewClient(30 * time.Second))

	ceiling := cfg.AmountCeilingCents
	if ceiling <= 0 {
		ceiling = 999999
	}
	return &Client{
		cfg:           cfg,
		environment:   environment,
		amountCeiling: ceiling,
		breakers:      breakers,
		metrics:       m,
		create:        paymentintent.New,
	}
}

// CreateIntent validates the request and mints a payment intent with the
// provider. Each call produces a distinct intent; a session switching
// payment methods simply creates another one.
func (c *Client) CreateIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	if err := c.validate(&req); err != nil {
		if c.metrics != nil {
			c.metrics.ObservePaymentIntentFailure(string(Code(err)))
		}
		return Intent{}, err
	}

	methods := req.PaymentMethodTypes
	if len(methods) == 0 {
		methods = c.cfg.PaymentMethods
	}
	if len(methods) == 0 {
		methods = []string{"card"}
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	// Tag the intent with our environment so the webhook processor can
	// skip events that belong to another deployment.
	metadata["environment"] = c.environment

	params := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(req.AmountCents),
		Currency:           stripeapi.String(req.Currency),
		PaymentMethodTypes: stripeapi.StringSlice(methods),
	}
	params.Context = ctx
	params.Metadata = metadata
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripeapi.String(req.ReceiptEmail)
	}

	start := time.Now()
	result, err := c.breakers.Execute(circuitbreaker.ServiceStripe, func() (interface{}, error) {
		return c.create(params)
	})
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObservePaymentIntentFailure("stripe_error")
		}
		log.Error().
			Err(err).
			Int64("amount_cents", req.AmountCents).
			Str("currency", req.Currency).
			Msg("stripe.intent.create_failed")
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}

	intent := result.(*stripeapi.PaymentIntent)
	if c.metrics != nil {
		c.metrics.ObservePaymentIntent(req.Currency, req.AmountCents, time.Since(start))
	}
	log.Info().
		Str("intent_id", intent.ID).
		Int64("amount_cents", req.AmountCents).
		Str("currency", req.Currency).
		Msg("stripe.intent.created")

	return Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
