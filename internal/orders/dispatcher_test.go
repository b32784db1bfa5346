package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"

	"github.com/StorefrontLabs/checkout-server/internal/circuitbreaker"
	"github.com/StorefrontLabs/checkout-server/internal/config"
)

func newTestDispatcher(t *testing.T, create orderCreator) *Dispatcher {
	t.Helper()
	return &Dispatcher{
		cfg: config.ShopifyConfig{
			Retry: config.RetryConfig{
				Enabled:         true,
				MaxAttempts:     3,
				InitialInterval: config.Duration{Duration: time.Millisecond},
				MaxInterval:     config.Duration{Duration: 5 * time.Millisecond},
				Multiplier:      2,
			},
		},
		breakers: circuitbreaker.NewManager(circuitbreaker.Config{}),
		timeout:  time.Second,
		create:   create,
	}
}

func testDraft() OrderDraft {
	return OrderDraft{
		PaymentIntentID: "pi_123",
		Customer:        Customer{Email: "buyer@example.com", FirstName: "Pat", LastName: "Jones"},
		ShippingAddress: ShippingAddress{Address1: "1 Main St", City: "Albany", State: "NY", Zip: "12207"},
		Items: []Item{
			{VariantID: 111, Title: "Widget", Quantity: 2, PriceCents: 2500},
		},
		ShippingMethod: ShippingMethod{ID: "standard", Title: "Standard Shipping", PriceCents: 1000},
		TaxCents:       537,
		RepCode:        "REP42",
	}
}

func TestDispatchSuccess(t *testing.T) {
	var calls int
	d := newTestDispatcher(t, func(ctx context.Context, order goshopify.Order) (*goshopify.Order, error) {
		calls++
		return &order, nil
	})

	if err := d.Dispatch(context.Background(), testDraft()); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestDispatchRetriesTransientFailures(t *testing.T) {
	var calls int
	d := newTestDispatcher(t, func(ctx context.Context, order goshopify.Order) (*goshopify.Order, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("503 service unavailable")
		}
		return &order, nil
	})

	if err := d.Dispatch(context.Background(), testDraft()); err != nil {
		t.Fatalf("Dispatch should succeed on third attempt: %v", err)
	}
	if calls != 3 {
		t.Errorf("create called %d times, want 3", calls)
	}
}

func TestDispatchExhaustsRetryBudget(t *testing.T) {
	var calls int
	d := newTestDispatcher(t, func(ctx context.Context, order goshopify.Order) (*goshopify.Order, error) {
		calls++
		return nil, errors.New("persistent failure")
	})

	err := d.Dispatch(context.Background(), testDraft())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("create called %d times, want 3", calls)
	}
}

func TestDispatchStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	d := newTestDispatcher(t, func(_ context.Context, order goshopify.Order) (*goshopify.Order, error) {
		calls++
		cancel()
		return nil, errors.New("failure")
	})

	err := d.Dispatch(ctx, testDraft())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("create called %d times after cancel, want 1", calls)
	}
}

func TestBuildOrderMapsDraft(t *testing.T) {
	d := newTestDispatcher(t, nil)
	order := d.buildOrder(testDraft())

	if order.Email != "buyer@example.com" {
		t.Errorf("email = %q", order.Email)
	}
	if len(order.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(order.LineItems))
	}
	li := order.LineItems[0]
	if li.VariantId != 111 || li.Quantity != 2 {
		t.Errorf("line item = %+v", li)
	}
	if got := li.Price.String(); got != "25" {
		t.Errorf("line item price = %s, want 25", got)
	}

	if len(order.ShippingLines) != 1 {
		t.Fatalf("shipping lines = %d, want 1", len(order.ShippingLines))
	}
	if got := order.ShippingLines[0].Price.String(); got != "10" {
		t.Errorf("shipping price = %s, want 10", got)
	}
	if got := order.TaxLines[0].Price.String(); got != "5.37" {
		t.Errorf("tax = %s, want 5.37", got)
	}

	if order.ShippingAddress == nil || order.ShippingAddress.Province != "NY" {
		t.Errorf("shipping address = %+v", order.ShippingAddress)
	}

	foundRep := false
	for _, attr := range order.NoteAttributes {
		if attr.Name == "rep" && attr.Value == "REP42" {
			foundRep = true
		}
	}
	if !foundRep {
		t.Error("rep code note attribute missing")
	}
}

func TestBuildOrderOmitsEmptyRep(t *testing.T) {
	d := newTestDispatcher(t, nil)
	draft := testDraft()
	draft.RepCode = ""
	order := d.buildOrder(draft)

	for _, attr := range order.NoteAttributes {
		if attr.Name == "rep" {
			t.Error("rep attribute should be absent when no rep code supplied")
		}
	}
}

func TestDraftComplete(t *testing.T) {
	draft := testDraft()
	if !draft.Complete() {
		t.Error("full draft should be complete")
	}

	noEmail := testDraft()
	noEmail.Customer.Email = ""
	if noEmail.Complete() {
		t.Error("draft without customer email should be incomplete")
	}

	noItems := testDraft()
	noItems.Items = nil
	if noItems.Complete() {
		t.Error("draft without items should be incomplete")
	}
}
