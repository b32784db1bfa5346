package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v72/webhook"

	"github.com/StorefrontLabs/checkout-server/internal/orders"
	"github.com/StorefrontLabs/checkout-server/internal/storage"
)

const testSecret = "whsec_test_secret"

type fakeDispatcher struct {
	mu     sync.Mutex
	drafts []orders.OrderDraft
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, draft orders.OrderDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.drafts = append(f.drafts, draft)
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drafts)
}

func newTestProcessor(t *testing.T, dispatcher Dispatcher) *Processor {
	t.Helper()
	store := storage.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return NewProcessor(ProcessorConfig{
		WebhookSecret: testSecret,
		Environment:   "test",
	}, store, dispatcher, nil)
}

// eventPayload builds a payment_intent.succeeded event body with the given
// metadata bag.
func eventPayload(eventID, intentID string, metadata map[string]string) []byte {
	intent := map[string]interface{}{
		"id":       intentID,
		"object":   "payment_intent",
		"amount":   6000,
		"currency": "usd",
		"metadata": metadata,
	}
	event := map[string]interface{}{
		"id":      eventID,
		"object":  "event",
		"type":    "payment_intent.succeeded",
		"created": time.Now().Unix(),
		"data":    map[string]interface{}{"object": intent},
	}
	payload, _ := json.Marshal(event)
	return payload
}

func completeMetadata() map[string]string {
	return map[string]string{
		"environment":      "test",
		"customer":         `{"email":"buyer@example.com","first_name":"Pat","last_name":"Jones"}`,
		"items":            `[{"variant_id":111,"quantity":2,"price":2500}]`,
		"shipping_address": `{"address1":"1 Main St","city":"Albany","state":"NY","zip":"12207"}`,
		"shipping_method":  `{"id":"standard","title":"Standard Shipping","price":1000}`,
		"tax_cents":        "537",
		"rep":              "REP42",
	}
}

// signHeader produces a stripe-signature header for the payload at the given
// timestamp.
func signHeader(payload []byte, at time.Time) string {
	sig := stripewebhook.ComputeSignature(at, payload, testSecret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), sig)
}

func TestProcessDispatchesOrder(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_1", "pi_1", completeMetadata())
	outcome, err := p.Process(context.Background(), payload, signHeader(payload, time.Now()))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if outcome != OutcomeDispatched {
		t.Errorf("outcome = %v, want dispatched", outcome)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("dispatched %d orders, want 1", dispatcher.count())
	}

	draft := dispatcher.drafts[0]
	if draft.Customer.Email != "buyer@example.com" {
		t.Errorf("customer email = %q", draft.Customer.Email)
	}
	if len(draft.Items) != 1 || draft.Items[0].VariantID != 111 {
		t.Errorf("items = %+v", draft.Items)
	}
	if draft.ShippingMethod.PriceCents != 1000 {
		t.Errorf("shipping price = %d", draft.ShippingMethod.PriceCents)
	}
	if draft.TaxCents != 537 {
		t.Errorf("tax = %d", draft.TaxCents)
	}
	if draft.RepCode != "REP42" {
		t.Errorf("rep = %q", draft.RepCode)
	}
}

func TestProcessDuplicateDeliveryDispatchesOnce(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_dup", "pi_1", completeMetadata())
	header := signHeader(payload, time.Now())

	first, err := p.Process(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	second, err := p.Process(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("second delivery must still be acknowledged: %v", err)
	}

	if first != OutcomeDispatched {
		t.Errorf("first outcome = %v, want dispatched", first)
	}
	if second != OutcomeDuplicate {
		t.Errorf("second outcome = %v, want duplicate", second)
	}
	if dispatcher.count() != 1 {
		t.Errorf("dispatched %d orders across two deliveries, want 1", dispatcher.count())
	}
}

func TestProcessConcurrentDuplicates(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_race", "pi_1", completeMetadata())
	header := signHeader(payload, time.Now())

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Process(context.Background(), payload, header); err != nil {
				t.Errorf("Process failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if dispatcher.count() != 1 {
		t.Errorf("dispatched %d orders under concurrent delivery, want 1", dispatcher.count())
	}
}

func TestProcessRejectsStaleTimestamp(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_old", "pi_1", completeMetadata())
	// Correctly signed six minutes ago: outside the freshness window.
	header := signHeader(payload, time.Now().Add(-6*time.Minute))

	outcome, err := p.Process(context.Background(), payload, header)
	if err == nil {
		t.Fatal("stale delivery must be rejected")
	}
	if outcome != OutcomeRejected {
		t.Errorf("outcome = %v, want rejected", outcome)
	}
	if dispatcher.count() != 0 {
		t.Error("stale delivery must not dispatch")
	}
}

func TestProcessRejectsBadSignature(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_bad", "pi_1", completeMetadata())

	cases := map[string]string{
		"missing header":   "",
		"malformed header": "not-a-signature",
		"wrong signature":  fmt.Sprintf("t=%d,v1=%064x", time.Now().Unix(), 0),
	}
	for name, header := range cases {
		outcome, err := p.Process(context.Background(), payload, header)
		if err == nil {
			t.Errorf("%s: expected rejection", name)
		}
		if outcome != OutcomeRejected {
			t.Errorf("%s: outcome = %v, want rejected", name, outcome)
		}
	}
	if dispatcher.count() != 0 {
		t.Error("unsigned deliveries must not dispatch")
	}
}

func TestProcessSkipsEnvironmentMismatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	metadata := completeMetadata()
	metadata["environment"] = "production"
	payload := eventPayload("evt_env", "pi_1", metadata)

	outcome, err := p.Process(context.Background(), payload, signHeader(payload, time.Now()))
	if err != nil {
		t.Fatalf("cross-environment delivery must still be acknowledged: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}
	if dispatcher.count() != 0 {
		t.Error("cross-environment delivery must not dispatch")
	}
}

func TestProcessSkipsOtherEventTypes(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	event := map[string]interface{}{
		"id":      "evt_other",
		"object":  "event",
		"type":    "payment_intent.payment_failed",
		"created": time.Now().Unix(),
		"data":    map[string]interface{}{"object": map[string]interface{}{"id": "pi_1"}},
	}
	payload, _ := json.Marshal(event)

	outcome, err := p.Process(context.Background(), payload, signHeader(payload, time.Now()))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}
	if dispatcher.count() != 0 {
		t.Error("non-succeeded event must not dispatch")
	}
}

func TestProcessIncompleteMetadataAcknowledged(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	p := newTestProcessor(t, dispatcher)

	// No customer or items: required fields missing.
	payload := eventPayload("evt_incomplete", "pi_1", map[string]string{
		"environment": "test",
		"rep":         "REP42",
	})

	outcome, err := p.Process(context.Background(), payload, signHeader(payload, time.Now()))
	if err != nil {
		t.Fatalf("incomplete metadata must still be acknowledged: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}
	if dispatcher.count() != 0 {
		t.Error("incomplete draft must not dispatch")
	}
}

func TestProcessDispatchFailureStillAcknowledged(t *testing.T) {
	dispatcher := &fakeDispatcher{err: fmt.Errorf("shopify is down")}
	p := newTestProcessor(t, dispatcher)

	payload := eventPayload("evt_fail", "pi_1", completeMetadata())

	outcome, err := p.Process(context.Background(), payload, signHeader(payload, time.Now()))
	if err != nil {
		t.Fatalf("dispatch failure must not surface to the provider: %v", err)
	}
	if outcome != OutcomeDispatchFailed {
		t.Errorf("outcome = %v, want dispatch_failed", outcome)
	}
}

func TestParseOrderDraftRepLastWins(t *testing.T) {
	metadata := map[string]string{
		"rep_code": "OLD1",
		"rep":      "NEW2",
	}
	draft := parseOrderDraft("pi_1", metadata)
	if draft.RepCode != "NEW2" {
		t.Errorf("rep = %q, want NEW2 (last-wins)", draft.RepCode)
	}

	// Legacy key alone still carries attribution.
	draft = parseOrderDraft("pi_1", map[string]string{"rep_code": "OLD1"})
	if draft.RepCode != "OLD1" {
		t.Errorf("rep = %q, want OLD1", draft.RepCode)
	}

	// Missing rep degrades gracefully.
	draft = parseOrderDraft("pi_1", map[string]string{})
	if draft.RepCode != "" {
		t.Errorf("rep = %q, want empty", draft.RepCode)
	}
}

func TestParseOrderDraftMalformedSubObjects(t *testing.T) {
	metadata := completeMetadata()
	metadata["items"] = "{not json"
	draft := parseOrderDraft("pi_1", metadata)

	if len(draft.Items) != 0 {
		t.Errorf("malformed items should parse to empty, got %+v", draft.Items)
	}
	// The rest of the draft still parses.
	if draft.Customer.Email != "buyer@example.com" {
		t.Errorf("customer email = %q", draft.Customer.Email)
	}
	if draft.Complete() {
		t.Error("draft without items must be incomplete")
	}
}
