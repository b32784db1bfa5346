package orders

import (
	"context"
	"fmt"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/StorefrontLabs/checkout-server/internal/circuitbreaker"
	"github.com/StorefrontLabs/checkout-server/internal/config"
	"github.com/StorefrontLabs/checkout-server/internal/httputil"
	"github.com/StorefrontLabs/checkout-server/internal/logger"
	"github.com/StorefrontLabs/checkout-server/internal/metrics"
)

// orderCreator is the Shopify Admin API call, swappable in tests.
type orderCreator func(ctx context.Context, order goshopify.Order) (*goshopify.Order, error)

// Dispatcher places orders with the commerce platform, with bounded retry
// and circuit breaker protection. It is the webhook processor's side-effect
// arm: one successful payment produces one dispatched order.
type Dispatcher struct {
	cfg      config.ShopifyConfig
	breakers *circuitbreaker.Manager
	metrics  *metrics.Metrics
	timeout  time.Duration
	create   orderCreator
}

// NewDispatcher builds a dispatcher from Shopify configuration.
func NewDispatcher(cfg config.ShopifyConfig, breakers *circuitbreaker.Manager, m *metrics.Metrics) (*Dispatcher, error) {
	app := goshopify.App{
		ApiKey:    cfg.APIKey,
		ApiSecret: cfg.APISecret,
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := goshopify.NewClient(app, cfg.ShopDomain, cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create shopify client: %w", err)
	}
	client.Client = httputil.NewClient(timeout)

	return &Dispatcher{
		cfg:      cfg,
		breakers: breakers,
		metrics:  m,
		timeout:  timeout,
		create: func(ctx context.Context, order goshopify.Order) (*goshopify.Order, error) {
			return client.Order.Create(ctx, order)
		},
	}, nil
}

// Dispatch creates the order, retrying transient failures with exponential
// backoff up to the configured attempt budget. The caller is responsible for
// invoking it at most once per logical payment (webhook dedup).
func (d *Dispatcher) Dispatch(ctx context.Context, draft OrderDraft) error {
	order := d.buildOrder(draft)

	retry := d.cfg.Retry
	maxAttempts := retry.MaxAttempts
	if !retry.Enabled || maxAttempts <= 0 {
		maxAttempts = 1
	}
	interval := retry.InitialInterval.Duration
	if interval <= 0 {
		interval = time.Second
	}
	maxInterval := retry.MaxInterval.Duration
	if maxInterval <= 0 {
		maxInterval = 5 * time.Minute
	}
	multiplier := retry.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	start := time.Now()
	var lastErr error
retryLoop:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		_, err := d.breakers.Execute(circuitbreaker.ServiceShopify, func() (interface{}, error) {
			return d.create(callCtx, order)
		})
		cancel()

		if err == nil {
			if d.metrics != nil {
				d.metrics.ObserveOrderDispatch("success", time.Since(start), attempt)
			}
			log.Info().
				Str("intent_id", draft.PaymentIntentID).
				Str("customer_email", logger.RedactEmail(draft.Customer.Email)).
				Int("attempt", attempt).
				Msg("orders.dispatched")
			return nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Str("intent_id", draft.PaymentIntentID).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("orders.dispatch_attempt_failed")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retryLoop
		case <-time.After(interval):
		}
		interval = time.Duration(float64(interval) * multiplier)
		if interval > maxInterval {
			interval = maxInterval
		}
	}

	if d.metrics != nil {
		d.metrics.ObserveOrderDispatch("failed", time.Since(start), maxAttempts)
	}
	return fmt.Errorf("dispatch order for intent %s: %w", draft.PaymentIntentID, lastErr)
}

// buildOrder maps the draft onto the Shopify Admin API order shape.
func (d *Dispatcher) buildOrder(draft OrderDraft) goshopify.Order {
	lineItems := make([]goshopify.LineItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		lineItems = append(lineItems, goshopify.LineItem{
			VariantId: uint64(item.VariantID),
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     centsToDecimal(item.PriceCents),
		})
	}

	shippingTitle := draft.ShippingMethod.Title
	if shippingTitle == "" {
		shippingTitle = "Standard Shipping"
	}

	order := goshopify.Order{
		Email: draft.Customer.Email,
		Customer: &goshopify.Customer{
			Email:     draft.Customer.Email,
			FirstName: draft.Customer.FirstName,
			LastName:  draft.Customer.LastName,
			Phone:     draft.Customer.Phone,
		},
		LineItems: lineItems,
		ShippingLines: []goshopify.ShippingLines{
			{
				Title: shippingTitle,
				Code:  draft.ShippingMethod.ID,
				Price: centsToDecimal(draft.ShippingMethod.PriceCents),
			},
		},
		TaxLines: []goshopify.TaxLine{
			{
				Title: "Sales Tax",
				Price: centsToDecimal(draft.TaxCents),
			},
		},
		TotalTax:        centsToDecimal(draft.TaxCents),
		FinancialStatus: goshopify.OrderFinancialStatusPaid,
		SourceName:      "web",
		NoteAttributes: []goshopify.NoteAttribute{
			{Name: "payment_intent_id", Value: draft.PaymentIntentID},
		},
	}

	if draft.ShippingAddress.Address1 != "" {
		order.ShippingAddress = &goshopify.Address{
			Address1:  draft.ShippingAddress.Address1,
			Address2:  draft.ShippingAddress.Address2,
			City:      draft.ShippingAddress.City,
			Province:  draft.ShippingAddress.State,
			Zip:       draft.ShippingAddress.Zip,
			Country:   draft.ShippingAddress.Country,
			FirstName: draft.Customer.FirstName,
			LastName:  draft.Customer.LastName,
		}
	}

	if draft.RepCode != "" {
		order.NoteAttributes = append(order.NoteAttributes, goshopify.NoteAttribute{
			Name:  "rep",
			Value: draft.RepCode,
		})
	}

	return order
}

func centsToDecimal(cents int64) *decimal.Decimal {
	d := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
	return &d
}
